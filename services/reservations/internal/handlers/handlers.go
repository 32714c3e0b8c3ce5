package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hoteldesk/backend/pkg/auth"
	"github.com/hoteldesk/backend/pkg/config"
	"github.com/hoteldesk/backend/services/reservations/internal/service"
)

type Handlers struct {
	reservationService *service.ReservationService
	invoiceService     *service.InvoiceService
	config             *config.Config
}

func New(reservationService *service.ReservationService, invoiceService *service.InvoiceService, cfg *config.Config) *Handlers {
	return &Handlers{
		reservationService: reservationService,
		invoiceService:     invoiceService,
		config:             cfg,
	}
}

// Routes mounts every endpoint of the reservations service. The invoice
// pay callback stays open because the payments service calls it without a
// user token.
func (h *Handlers) Routes(r chi.Router) {
	secret := h.config.Auth.JWTSecret

	r.Route("/api/reservations", func(r chi.Router) {
		r.Use(auth.RequireJWT(secret))
		r.Get("/", h.ListReservations)
		r.Post("/", h.CreateReservation)
		r.Get("/{id}", h.GetReservation)
		r.Put("/{id}", h.UpdateReservation)
		r.Delete("/{id}", h.DeleteReservation)
		r.Post("/{id}/cancel", h.CancelReservation)
		r.Post("/{id}/complete", h.CompleteReservation)
	})

	r.Route("/api/invoices", func(r chi.Router) {
		r.Put("/{id}/pay", h.PayInvoice)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireJWT(secret))
			r.Get("/", h.ListInvoices)
			r.Get("/{id}", h.GetInvoice)
			r.Get("/reservation/{id}", h.GetInvoiceByReservation)
		})
	})
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
