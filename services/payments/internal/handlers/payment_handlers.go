package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hoteldesk/backend/pkg/auth"
	"github.com/hoteldesk/backend/pkg/response"
	"github.com/hoteldesk/backend/services/payments/internal/domain"
	"github.com/hoteldesk/backend/services/payments/internal/service"
)

// OnSite records a cash or card payment taken at the desk. The operator
// is whoever presents the token.
func (h *Handlers) OnSite(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req domain.OnSitePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	payment, err := h.paymentService.OnSite(r.Context(), &req, claims.Sub)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, payment)
}

func (h *Handlers) CreateStripeIntent(w http.ResponseWriter, r *http.Request) {
	var req domain.StripeIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	result, err := h.paymentService.CreateStripeIntent(r.Context(), &req)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handlers) ConfirmStripe(w http.ResponseWriter, r *http.Request) {
	var req domain.StripeConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	payment, err := h.paymentService.ConfirmStripe(r.Context(), &req)
	h.writeCaptureResult(w, payment, err)
}

func (h *Handlers) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.PayPalCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	result, err := h.paymentService.CreatePayPalOrder(r.Context(), &req)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handlers) ExecutePayPal(w http.ResponseWriter, r *http.Request) {
	var req domain.PayPalExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	payment, err := h.paymentService.ExecutePayPal(r.Context(), &req)
	h.writeCaptureResult(w, payment, err)
}

// writeCaptureResult maps a capture outcome: success returns the payment,
// a provider decline returns 402 with the failed payment attached.
func (h *Handlers) writeCaptureResult(w http.ResponseWriter, payment *domain.Payment, err error) {
	switch {
	case err == nil:
		response.WriteJSON(w, http.StatusOK, payment)
	case errors.Is(err, service.ErrPaymentFailed):
		response.WriteJSON(w, http.StatusPaymentRequired, response.Envelope{
			Success: false,
			Message: "Payment was not completed",
			Data:    payment,
		})
	case errors.Is(err, service.ErrPaymentNotFound):
		response.NotFound(w, "Payment not found")
	default:
		response.BadRequest(w, err.Error())
	}
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid payment id")
		return
	}

	payment, err := h.paymentService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			response.NotFound(w, "Payment not found")
			return
		}
		response.InternalError(w, "Failed to load payment")
		return
	}

	response.WriteJSON(w, http.StatusOK, payment)
}

func (h *Handlers) ListByReservation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid reservation id")
		return
	}

	payments, err := h.paymentService.ListByReservation(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to list payments")
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}

	response.WriteJSON(w, http.StatusOK, payments)
}

// StripeConfig hands the publishable key to the front end.
func (h *Handlers) StripeConfig(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{
		"publishable_key": h.config.Stripe.PublishableKey,
	})
}
