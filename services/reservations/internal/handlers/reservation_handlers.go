package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hoteldesk/backend/pkg/response"
	"github.com/hoteldesk/backend/services/reservations/internal/domain"
	"github.com/hoteldesk/backend/services/reservations/internal/service"
)

func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	result, err := h.reservationService.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			response.BadRequest(w, "Client does not exist")
		case errors.Is(err, service.ErrRoomUnavailable):
			response.WriteError(w, http.StatusConflict, "Room is not available")
		default:
			response.BadRequest(w, err.Error())
		}
		return
	}

	response.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var clientID *int64
	if v := r.URL.Query().Get("clientId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(w, "Invalid clientId filter")
			return
		}
		clientID = &id
	}

	reservations, err := h.reservationService.List(r.Context(), clientID, limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to list reservations")
		return
	}
	if reservations == nil {
		reservations = []domain.Reservation{}
	}

	response.WriteJSON(w, http.StatusOK, reservations)
}

func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid reservation id")
		return
	}

	result, err := h.reservationService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			response.NotFound(w, "Reservation not found")
			return
		}
		response.InternalError(w, "Failed to load reservation")
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}

func (h *Handlers) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid reservation id")
		return
	}

	var req domain.UpdateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	result, err := h.reservationService.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			response.NotFound(w, "Reservation not found")
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}

func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	h.closeOut(w, r, h.reservationService.Cancel)
}

func (h *Handlers) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	h.closeOut(w, r, h.reservationService.Complete)
}

func (h *Handlers) closeOut(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (*domain.Reservation, error)) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid reservation id")
		return
	}

	reservation, err := fn(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			response.NotFound(w, "Reservation not found")
			return
		}
		response.InternalError(w, "Failed to update reservation")
		return
	}

	response.WriteJSON(w, http.StatusOK, reservation)
}

func (h *Handlers) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid reservation id")
		return
	}

	if err := h.reservationService.Delete(r.Context(), id); err != nil {
		response.NotFound(w, "Reservation not found")
		return
	}

	response.WriteMessage(w, http.StatusOK, "Reservation deleted")
}
