package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/hoteldesk/backend/pkg/auth"
	"github.com/hoteldesk/backend/pkg/config"
	"github.com/hoteldesk/backend/pkg/logger"
	"github.com/hoteldesk/backend/pkg/mailer"
	"github.com/hoteldesk/backend/services/users/internal/domain"
	"github.com/hoteldesk/backend/services/users/internal/repository"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidResetCode   = errors.New("invalid or expired reset code")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrUserNotFound       = errors.New("user not found")
)

// Reset-code throttling per email address.
const (
	resetRequestLimit = 5
	resetAttemptLimit = 10
	resetLimitWindow  = time.Hour
	resetCodeDigits   = 6
	bcryptResetRounds = 10
)

type AuthService struct {
	users   repository.UserRepository
	limiter repository.RateLimitRepository
	mail    mailer.Service
	cfg     config.AuthConfig
}

func NewAuthService(
	users repository.UserRepository,
	limiter repository.RateLimitRepository,
	mail mailer.Service,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		users:   users,
		limiter: limiter,
		mail:    mail,
		cfg:     cfg,
	}
}

// Register creates a client account and logs it straight in. The role is
// always CLIENT here; staff accounts are created through the admin
// endpoints.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &domain.User{
		Name:         req.Name,
		Surname:      req.Surname,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.RoleClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := auth.NewToken(user.ID, user.Email, user.Role, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	logger.InfoContext(ctx, "User registered", "user_id", user.ID, "email", user.Email)
	return &domain.LoginResponse{Token: token, User: user.ToUserInfo()}, nil
}

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	token, err := auth.NewToken(user.ID, user.Email, user.Role, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	logger.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return &domain.LoginResponse{Token: token, User: user.ToUserInfo()}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *domain.ChangePasswordRequest) error {
	if len(req.NewPassword) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	match, err := argon2id.ComparePasswordAndHash(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return ErrInvalidCredentials
	}

	hash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	logger.InfoContext(ctx, "Password changed", "user_id", userID)
	return nil
}

// ForgotPassword generates a 6-digit code, stores its bcrypt hash on the user
// row and emails the code. An unknown email still returns success so the
// endpoint cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, req *domain.ForgotPasswordRequest) error {
	req.Normalize()
	if req.Email == "" {
		return fmt.Errorf("email is required")
	}

	allowed, err := s.limiter.Allow(ctx, "reset-request:"+req.Email, resetRequestLimit, resetLimitWindow)
	if err != nil {
		logger.WarnContext(ctx, "Rate limiter unavailable, allowing request", "error", err)
	} else if !allowed {
		return ErrTooManyRequests
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.Active {
		return nil
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptResetRounds)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.ResetCodeTTL)
	if err := s.users.SetResetCode(ctx, user.ID, string(codeHash), expiresAt); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	if err := s.mail.SendPasswordResetEmail(user.Email, user.Name, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send reset email", "user_id", user.ID, "error", err)
	}

	logger.InfoContext(ctx, "Password reset requested", "user_id", user.ID)
	return nil
}

// ValidateResetCode checks a code without consuming it.
func (s *AuthService) ValidateResetCode(ctx context.Context, req *domain.ValidateResetCodeRequest) error {
	req.Normalize()
	return s.checkResetCode(ctx, req.Email, req.Code)
}

func (s *AuthService) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error {
	req.Normalize()
	if len(req.NewPassword) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}

	if err := s.checkResetCode(ctx, req.Email, req.Code); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return ErrInvalidResetCode
	}

	hash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.users.ClearResetCode(ctx, user.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to clear reset code", "user_id", user.ID, "error", err)
	}

	logger.InfoContext(ctx, "Password reset", "user_id", user.ID)
	return nil
}

func (s *AuthService) checkResetCode(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return ErrInvalidResetCode
	}

	allowed, err := s.limiter.Allow(ctx, "reset-attempt:"+email, resetAttemptLimit, resetLimitWindow)
	if err != nil {
		logger.WarnContext(ctx, "Rate limiter unavailable, allowing attempt", "error", err)
	} else if !allowed {
		return ErrTooManyRequests
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.ResetCodeHash == nil || user.ResetExpiresAt == nil {
		return ErrInvalidResetCode
	}
	if time.Now().After(*user.ResetExpiresAt) {
		return ErrInvalidResetCode
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.ResetCodeHash), []byte(code)) != nil {
		return ErrInvalidResetCode
	}
	return nil
}

func generateResetCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < resetCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
