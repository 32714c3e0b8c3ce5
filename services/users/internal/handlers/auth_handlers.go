package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hoteldesk/backend/pkg/auth"
	"github.com/hoteldesk/backend/pkg/response"
	"github.com/hoteldesk/backend/services/users/internal/domain"
	"github.com/hoteldesk/backend/services/users/internal/service"
)

// Register handles public client registration.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	result, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, result)
}

// Login handles user authentication.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrAccountDisabled) {
			response.Unauthorized(w, err.Error())
			return
		}
		response.Unauthorized(w, "Invalid email or password")
		return
	}

	response.WriteJSON(w, http.StatusOK, resp)
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), claims.Sub)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w, "Failed to load profile")
		return
	}

	response.WriteJSON(w, http.StatusOK, user)
}

// UpdateMe updates the authenticated user's own profile.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), claims.Sub, &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, user)
}

// ChangePassword verifies the current password and sets a new one.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), claims.Sub, &req); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(w, "Current password is incorrect")
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	response.WriteMessage(w, http.StatusOK, "Password changed")
}

// ForgotPassword issues a reset code by email. It always reports success so
// the endpoint does not leak which addresses have accounts.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), &req); err != nil {
		if errors.Is(err, service.ErrTooManyRequests) {
			response.TooManyRequests(w, "Too many reset requests. Please try again later.")
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	response.WriteMessage(w, http.StatusOK, "If the email exists, a reset code has been sent")
}

// ValidateResetCode checks a reset code without consuming it.
func (h *Handlers) ValidateResetCode(w http.ResponseWriter, r *http.Request) {
	var req domain.ValidateResetCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.authService.ValidateResetCode(r.Context(), &req); err != nil {
		if errors.Is(err, service.ErrTooManyRequests) {
			response.TooManyRequests(w, "Too many attempts. Please try again later.")
			return
		}
		response.Forbidden(w, "Invalid or expired reset code")
		return
	}

	response.WriteMessage(w, http.StatusOK, "Reset code is valid")
}

// ResetPassword sets a new password after validating the reset code.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), &req); err != nil {
		switch {
		case errors.Is(err, service.ErrTooManyRequests):
			response.TooManyRequests(w, "Too many attempts. Please try again later.")
		case errors.Is(err, service.ErrInvalidResetCode):
			response.Forbidden(w, "Invalid or expired reset code")
		default:
			response.BadRequest(w, err.Error())
		}
		return
	}

	response.WriteMessage(w, http.StatusOK, "Password has been reset")
}
