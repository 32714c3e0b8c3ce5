package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/hoteldesk/backend/pkg/logger"
	"github.com/hoteldesk/backend/services/users/internal/domain"
	"github.com/hoteldesk/backend/services/users/internal/repository"
)

// UserService covers the admin CRUD surface plus the lookups other
// services call over HTTP.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.UserInfo, error) {
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
		Role:         req.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.InfoContext(ctx, "User created", "user_id", user.ID, "role", user.Role)
	return user.ToUserInfo(), nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.UserInfo, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user.ToUserInfo(), nil
}

func (s *UserService) Exists(ctx context.Context, id int64) (bool, error) {
	return s.users.ExistsByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]domain.UserInfo, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return toInfos(users), nil
}

func (s *UserService) ListClients(ctx context.Context, limit, offset int) ([]domain.UserInfo, error) {
	users, err := s.users.ListByRole(ctx, domain.RoleClient, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return toInfos(users), nil
}

func (s *UserService) Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.UserInfo, error) {
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Surname != nil {
		user.Surname = *req.Surname
	}
	if req.Email != nil && *req.Email != user.Email {
		taken, err := s.users.ExistsByEmail(ctx, *req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return nil, fmt.Errorf("password must be at least 6 characters")
		}
		hash, err := argon2id.CreateHash(*req.Password, argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}

	logger.InfoContext(ctx, "User updated", "user_id", id)
	return updated.ToUserInfo(), nil
}

// UpdateProfile lets a user change their own name, surname, email and
// password. Role and active flag stay untouched.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.UserInfo, error) {
	return s.Update(ctx, id, &domain.UpdateUserRequest{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Password: req.Password,
	})
}

// Delete removes a client account. Staff accounts are deactivated instead so
// their ids stay referenced in reservation and payment history.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if domain.IsPrivilegedRole(user.Role) {
		if err := s.users.Deactivate(ctx, id); err != nil {
			return fmt.Errorf("failed to deactivate user: %w", err)
		}
		logger.InfoContext(ctx, "User deactivated", "user_id", id)
		return nil
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	logger.InfoContext(ctx, "User deleted", "user_id", id)
	return nil
}

func toInfos(users []domain.User) []domain.UserInfo {
	infos := make([]domain.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, *users[i].ToUserInfo())
	}
	return infos
}
