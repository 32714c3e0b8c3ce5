package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoteldesk/backend/pkg/auth"
	"github.com/hoteldesk/backend/pkg/config"
	"github.com/hoteldesk/backend/services/users/internal/domain"
	"github.com/hoteldesk/backend/services/users/internal/handlers"
	"github.com/hoteldesk/backend/services/users/internal/repository"
	"github.com/hoteldesk/backend/services/users/internal/service"
)

const testSecret = "test-secret"

// ---------- Mocks ----------

type mockUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, users: make(map[int64]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	stored := *u
	stored.ID = m.nextID
	stored.Active = true
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = time.Now()
	m.nextID++
	m.users[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := m.FindByEmail(ctx, email)
	return u != nil, nil
}

func (m *mockUserRepo) ExistsByID(_ context.Context, id int64) (bool, error) {
	_, ok := m.users[id]
	return ok, nil
}

func (m *mockUserRepo) Update(_ context.Context, u *domain.User) (*domain.User, error) {
	if _, ok := m.users[u.ID]; !ok {
		return nil, nil
	}
	stored := *u
	stored.UpdatedAt = time.Now()
	m.users[u.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) Deactivate(_ context.Context, id int64) error {
	if u, ok := m.users[id]; ok {
		u.Active = false
	}
	return nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	var out []domain.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string, limit, offset int) ([]domain.User, error) {
	var out []domain.User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) SetResetCode(_ context.Context, id int64, codeHash string, expiresAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.ResetCodeHash = &codeHash
		u.ResetExpiresAt = &expiresAt
	}
	return nil
}

func (m *mockUserRepo) ClearResetCode(_ context.Context, id int64) error {
	if u, ok := m.users[id]; ok {
		u.ResetCodeHash = nil
		u.ResetExpiresAt = nil
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

type mockMailer struct {
	lastTo   string
	lastCode string
}

func (m *mockMailer) Send(toEmail, toName, subject, text, html string) error {
	m.lastTo = toEmail
	return nil
}

func (m *mockMailer) SendPasswordResetEmail(toEmail, toName, code string) error {
	m.lastTo = toEmail
	m.lastCode = code
	return nil
}

func (m *mockMailer) SendInvoiceEmail(toEmail string, invoiceID int64, amount float64) error {
	m.lastTo = toEmail
	return nil
}

type denyingLimiter struct{}

func (denyingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

// ---------- Test setup ----------

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.ResetCodeTTL = time.Hour
	return cfg
}

func setupServer(t *testing.T, limiter repository.RateLimitRepository) (*httptest.Server, *mockUserRepo, *mockMailer) {
	t.Helper()

	userRepo := newMockUserRepo()
	mail := &mockMailer{}
	cfg := testConfig()

	authService := service.NewAuthService(userRepo, limiter, mail, cfg.Auth)
	userService := service.NewUserService(userRepo)
	h := handlers.New(authService, userService, cfg)

	r := chi.NewRouter()
	h.Routes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, userRepo, mail
}

func postJSON(t *testing.T, url string, body interface{}, wantStatus int) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPost, url, "", body, wantStatus)
}

func doJSON(t *testing.T, method, url, token string, body interface{}, wantStatus int) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d", method, url, resp.StatusCode, wantStatus)
	}
	return resp
}

func registerClient(t *testing.T, server *httptest.Server, email, password string) {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/auth/register", map[string]string{
		"name":     "Test",
		"surname":  "User",
		"email":    email,
		"password": password,
	}, http.StatusCreated)
	resp.Body.Close()
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusOK)
	defer resp.Body.Close()

	var result domain.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected token in login response")
	}
	return result.Token
}

// ---------- Tests ----------

func TestRegister_ForcesClientRole(t *testing.T) {
	server, userRepo, _ := setupServer(t, repository.NoopRateLimiter{})

	resp := postJSON(t, server.URL+"/api/auth/register", map[string]string{
		"name":     "Amina",
		"surname":  "Berrada",
		"email":    "Amina@Example.com",
		"password": "secret123",
	}, http.StatusCreated)
	defer resp.Body.Close()

	var result domain.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a token on registration")
	}
	user := result.User
	if user.Role != domain.RoleClient {
		t.Fatalf("expected role CLIENT, got %s", user.Role)
	}
	if user.Email != "amina@example.com" {
		t.Fatalf("expected lowercased email, got %s", user.Email)
	}

	stored := userRepo.users[user.ID]
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.PasswordHash == "secret123" {
		t.Fatal("password stored in plain text")
	}
}

func TestRegister_DuplicateEmail_Conflict(t *testing.T) {
	server, _, _ := setupServer(t, repository.NoopRateLimiter{})

	registerClient(t, server, "dup@example.com", "secret123")

	resp := postJSON(t, server.URL+"/api/auth/register", map[string]string{
		"name":     "Other",
		"email":    "dup@example.com",
		"password": "secret456",
	}, http.StatusConflict)
	resp.Body.Close()
}

func TestRegister_Validation(t *testing.T) {
	server, _, _ := setupServer(t, repository.NoopRateLimiter{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"name": "A", "password": "secret123"}},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": "secret123"}},
		{"short password", map[string]string{"name": "A", "email": "a@b.co", "password": "123"}},
		{"missing name", map[string]string{"email": "a@b.co", "password": "secret123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/auth/register", tt.body, http.StatusBadRequest)
			resp.Body.Close()
		})
	}
}

func TestLogin_SuccessAndFailure(t *testing.T) {
	server, userRepo, _ := setupServer(t, repository.NoopRateLimiter{})
	registerClient(t, server, "login@example.com", "secret123")

	token := login(t, server, "login@example.com", "secret123")

	claims, err := auth.Parse(token, testSecret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Email != "login@example.com" || claims.Role != domain.RoleClient {
		t.Fatalf("unexpected claims: email=%s role=%s", claims.Email, claims.Role)
	}

	resp := postJSON(t, server.URL+"/api/auth/login", map[string]string{
		"email":    "login@example.com",
		"password": "wrong-password",
	}, http.StatusUnauthorized)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "secret123",
	}, http.StatusUnauthorized)
	resp.Body.Close()

	// A deactivated account cannot log in even with the right password.
	for _, u := range userRepo.users {
		u.Active = false
	}
	resp = postJSON(t, server.URL+"/api/auth/login", map[string]string{
		"email":    "login@example.com",
		"password": "secret123",
	}, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestMe_RequiresToken(t *testing.T) {
	server, _, _ := setupServer(t, repository.NoopRateLimiter{})
	registerClient(t, server, "me@example.com", "secret123")
	token := login(t, server, "me@example.com", "secret123")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/auth/me", token, nil, http.StatusOK)
	defer resp.Body.Close()

	var user domain.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if user.Email != "me@example.com" {
		t.Fatalf("unexpected profile email: %s", user.Email)
	}

	noAuth := doJSON(t, http.MethodGet, server.URL+"/api/auth/me", "", nil, http.StatusUnauthorized)
	noAuth.Body.Close()
}

func TestPasswordResetFlow(t *testing.T) {
	server, _, mail := setupServer(t, repository.NoopRateLimiter{})
	registerClient(t, server, "reset@example.com", "oldpassword")

	resp := postJSON(t, server.URL+"/api/auth/forgot-password", map[string]string{
		"email": "reset@example.com",
	}, http.StatusOK)
	resp.Body.Close()

	if mail.lastTo != "reset@example.com" {
		t.Fatalf("reset email sent to %q", mail.lastTo)
	}
	code := mail.lastCode
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	// A wrong code is rejected.
	bad := postJSON(t, server.URL+"/api/auth/validate-reset-token", map[string]string{
		"email": "reset@example.com",
		"code":  "000000",
	}, http.StatusForbidden)
	bad.Body.Close()
	if code == "000000" {
		t.Skip("generated code collided with the wrong-code probe")
	}

	ok := postJSON(t, server.URL+"/api/auth/validate-reset-token", map[string]string{
		"email": "reset@example.com",
		"code":  code,
	}, http.StatusOK)
	ok.Body.Close()

	done := postJSON(t, server.URL+"/api/auth/reset-password", map[string]string{
		"email":        "reset@example.com",
		"code":         code,
		"new_password": "newpassword",
	}, http.StatusOK)
	done.Body.Close()

	login(t, server, "reset@example.com", "newpassword")

	// The consumed code no longer works.
	again := postJSON(t, server.URL+"/api/auth/reset-password", map[string]string{
		"email":        "reset@example.com",
		"code":         code,
		"new_password": "anotherpassword",
	}, http.StatusForbidden)
	again.Body.Close()
}

func TestPasswordReset_ExpiredCode(t *testing.T) {
	server, userRepo, mail := setupServer(t, repository.NoopRateLimiter{})
	registerClient(t, server, "expired@example.com", "secret123")

	resp := postJSON(t, server.URL+"/api/auth/forgot-password", map[string]string{
		"email": "expired@example.com",
	}, http.StatusOK)
	resp.Body.Close()

	// Force the stored code past its expiry.
	for _, u := range userRepo.users {
		if u.Email == "expired@example.com" {
			past := time.Now().Add(-time.Minute)
			u.ResetExpiresAt = &past
		}
	}

	bad := postJSON(t, server.URL+"/api/auth/validate-reset-token", map[string]string{
		"email": "expired@example.com",
		"code":  mail.lastCode,
	}, http.StatusForbidden)
	bad.Body.Close()
}

func TestForgotPassword_RateLimited(t *testing.T) {
	server, _, _ := setupServer(t, denyingLimiter{})
	registerClient(t, server, "limited@example.com", "secret123")

	resp := postJSON(t, server.URL+"/api/auth/forgot-password", map[string]string{
		"email": "limited@example.com",
	}, http.StatusTooManyRequests)
	resp.Body.Close()
}

func TestForgotPassword_UnknownEmailStillOK(t *testing.T) {
	server, _, mail := setupServer(t, repository.NoopRateLimiter{})

	resp := postJSON(t, server.URL+"/api/auth/forgot-password", map[string]string{
		"email": "ghost@example.com",
	}, http.StatusOK)
	resp.Body.Close()

	if mail.lastTo != "" {
		t.Fatalf("no email should be sent for unknown address, got %q", mail.lastTo)
	}
}

func TestChangePassword(t *testing.T) {
	server, _, _ := setupServer(t, repository.NoopRateLimiter{})
	registerClient(t, server, "change@example.com", "oldpassword")
	token := login(t, server, "change@example.com", "oldpassword")

	wrong := doJSON(t, http.MethodPut, server.URL+"/api/auth/change-password", token, map[string]string{
		"current_password": "not-it",
		"new_password":     "newpassword",
	}, http.StatusUnauthorized)
	wrong.Body.Close()

	ok := doJSON(t, http.MethodPut, server.URL+"/api/auth/change-password", token, map[string]string{
		"current_password": "oldpassword",
		"new_password":     "newpassword",
	}, http.StatusOK)
	ok.Body.Close()

	login(t, server, "change@example.com", "newpassword")
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	server, userRepo, _ := setupServer(t, repository.NoopRateLimiter{})
	registerClient(t, server, "client@example.com", "secret123")
	clientToken := login(t, server, "client@example.com", "secret123")

	forbidden := doJSON(t, http.MethodGet, server.URL+"/api/admin/users", clientToken, nil, http.StatusForbidden)
	forbidden.Body.Close()

	adminToken := issueToken(t, 99, "admin@example.com", domain.RoleAdmin)
	userRepo.users[99] = &domain.User{ID: 99, Email: "admin@example.com", Role: domain.RoleAdmin, Active: true}

	ok := doJSON(t, http.MethodGet, server.URL+"/api/admin/users", adminToken, nil, http.StatusOK)
	ok.Body.Close()
}

func TestAdmin_CreateUserWithRole(t *testing.T) {
	server, _, _ := setupServer(t, repository.NoopRateLimiter{})
	adminToken := issueToken(t, 1000, "boss@example.com", domain.RoleAdmin)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/admin/users", adminToken, map[string]string{
		"name":     "Front",
		"surname":  "Desk",
		"email":    "desk@example.com",
		"password": "secret123",
		"role":     domain.RoleReceptionist,
	}, http.StatusCreated)
	defer resp.Body.Close()

	var user domain.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if user.Role != domain.RoleReceptionist {
		t.Fatalf("expected RECEPTIONIST, got %s", user.Role)
	}
}

func TestAdmin_DeleteDeactivatesStaff(t *testing.T) {
	server, userRepo, _ := setupServer(t, repository.NoopRateLimiter{})
	adminToken := issueToken(t, 1000, "boss@example.com", domain.RoleAdmin)

	userRepo.users[5] = &domain.User{ID: 5, Email: "staff@example.com", Role: domain.RoleReceptionist, Active: true}
	userRepo.users[6] = &domain.User{ID: 6, Email: "guest@example.com", Role: domain.RoleClient, Active: true}

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/admin/users/5", adminToken, nil, http.StatusOK)
	resp.Body.Close()
	if u := userRepo.users[5]; u == nil || u.Active {
		t.Fatal("staff account should be deactivated, not removed")
	}

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/admin/users/6", adminToken, nil, http.StatusOK)
	resp.Body.Close()
	if userRepo.users[6] != nil {
		t.Fatal("client account should be removed")
	}
}

func TestClientListing_ReceptionistAccess(t *testing.T) {
	server, userRepo, _ := setupServer(t, repository.NoopRateLimiter{})
	registerClient(t, server, "c1@example.com", "secret123")
	registerClient(t, server, "c2@example.com", "secret123")
	userRepo.users[50] = &domain.User{ID: 50, Email: "rec@example.com", Role: domain.RoleReceptionist, Active: true}

	recToken := issueToken(t, 50, "rec@example.com", domain.RoleReceptionist)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/auth/clients", recToken, nil, http.StatusOK)
	defer resp.Body.Close()

	var clients []domain.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&clients); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	for _, c := range clients {
		if c.Role != domain.RoleClient {
			t.Fatalf("non-client in listing: %s", c.Role)
		}
	}
}

func TestUserExists_InterService(t *testing.T) {
	server, _, _ := setupServer(t, repository.NoopRateLimiter{})
	registerClient(t, server, "exists@example.com", "secret123")

	for _, tc := range []struct {
		id   string
		want bool
	}{
		{"1", true},
		{"424242", false},
	} {
		resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/users/exists/%s", server.URL, tc.id), "", nil, http.StatusOK)
		var result map[string]bool
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		resp.Body.Close()
		if result["exists"] != tc.want {
			t.Fatalf("exists(%s) = %v, want %v", tc.id, result["exists"], tc.want)
		}
	}
}

func TestGetUserSummary_InterService(t *testing.T) {
	server, _, _ := setupServer(t, repository.NoopRateLimiter{})
	registerClient(t, server, "summary@example.com", "secret123")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/users/1", "", nil, http.StatusOK)
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if result["email"] != "summary@example.com" {
		t.Fatalf("expected email in summary, got %v", result["email"])
	}
	if result["id"] == nil || result["name"] == nil {
		t.Fatalf("expected id and name in summary, got %v", result)
	}
	for _, field := range []string{"role", "active"} {
		if _, leaked := result[field]; leaked {
			t.Fatalf("peer summary must not expose %q", field)
		}
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/users/424242", "", nil, http.StatusNotFound)
	resp.Body.Close()
}

func issueToken(t *testing.T, id int64, email, role string) string {
	t.Helper()
	token, err := auth.NewToken(id, email, role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
