package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hoteldesk/backend/pkg/auth"
	"github.com/hoteldesk/backend/pkg/config"
	"github.com/hoteldesk/backend/services/payments/internal/service"
)

type Handlers struct {
	paymentService *service.PaymentService
	config         *config.Config
}

func New(paymentService *service.PaymentService, cfg *config.Config) *Handlers {
	return &Handlers{paymentService: paymentService, config: cfg}
}

// Routes mounts every endpoint of the payments service. On-site capture
// is desk staff only; online flows need any authenticated user.
func (h *Handlers) Routes(r chi.Router) {
	secret := h.config.Auth.JWTSecret

	r.Route("/api/payments", func(r chi.Router) {
		r.Get("/stripe/config", h.StripeConfig)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireJWT(secret, "RECEPTIONIST"))
			r.Post("/on-site", h.OnSite)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireJWT(secret))
			r.Post("/stripe/intent", h.CreateStripeIntent)
			r.Post("/stripe/confirm", h.ConfirmStripe)
			r.Post("/paypal/create", h.CreatePayPalOrder)
			r.Post("/paypal/execute", h.ExecutePayPal)
			r.Get("/{id}", h.GetPayment)
			r.Get("/reservation/{id}", h.ListByReservation)
		})
	})
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
