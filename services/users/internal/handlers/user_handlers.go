package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hoteldesk/backend/pkg/response"
	"github.com/hoteldesk/backend/services/users/internal/domain"
	"github.com/hoteldesk/backend/services/users/internal/service"
)

// Admin endpoints

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, err := h.userService.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to list users")
		return
	}

	response.WriteJSON(w, http.StatusOK, users)
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.userService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w, "Failed to load user")
		return
	}

	response.WriteJSON(w, http.StatusOK, user)
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	var req domain.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.userService.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, service.ErrEmailTaken):
			response.WriteError(w, http.StatusConflict, err.Error())
		default:
			response.BadRequest(w, err.Error())
		}
		return
	}

	response.WriteJSON(w, http.StatusOK, user)
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w, "Failed to delete user")
		return
	}

	response.WriteMessage(w, http.StatusOK, "User deleted")
}

// Receptionist endpoints

func (h *Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	clients, err := h.userService.ListClients(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to list clients")
		return
	}

	response.WriteJSON(w, http.StatusOK, clients)
}

func (h *Handlers) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid client id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(w, "Client not found")
			return
		}
		response.InternalError(w, "Failed to load client")
		return
	}
	if user.Role != domain.RoleClient {
		response.NotFound(w, "Client not found")
		return
	}

	response.WriteJSON(w, http.StatusOK, user)
}

// Inter-service endpoints

// UserExists reports whether a user id exists. The reservations service
// calls this before creating a reservation.
func (h *Handlers) UserExists(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	exists, err := h.userService.Exists(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to check user")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// GetUserSummary serves the trimmed user shape the reservations service
// consumes when sending invoice emails.
func (h *Handlers) GetUserSummary(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w, "Failed to load user")
		return
	}

	response.WriteJSON(w, http.StatusOK, user.Summary())
}
