package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hoteldesk/backend/pkg/auth"
	"github.com/hoteldesk/backend/pkg/config"
	"github.com/hoteldesk/backend/services/users/internal/domain"
	"github.com/hoteldesk/backend/services/users/internal/service"
)

type Handlers struct {
	authService *service.AuthService
	userService *service.UserService
	config      *config.Config
}

func New(authService *service.AuthService, userService *service.UserService, cfg *config.Config) *Handlers {
	return &Handlers{
		authService: authService,
		userService: userService,
		config:      cfg,
	}
}

// Routes mounts every endpoint of the users service.
func (h *Handlers) Routes(r chi.Router) {
	secret := h.config.Auth.JWTSecret

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/validate-reset-token", h.ValidateResetCode)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireJWT(secret))
			r.Get("/me", h.Me)
			r.Put("/me", h.UpdateMe)
			r.Put("/change-password", h.ChangePassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireJWT(secret, domain.RoleReceptionist))
			r.Get("/clients", h.ListClients)
			r.Get("/clients/{id}", h.GetClient)
		})
	})

	r.Route("/api/admin/users", func(r chi.Router) {
		r.Use(auth.RequireJWT(secret, domain.RoleAdmin))
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})

	// Inter-service lookups used by the reservations service.
	r.Get("/api/users/exists/{id}", h.UserExists)
	r.Get("/api/users/{id}", h.GetUserSummary)
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
