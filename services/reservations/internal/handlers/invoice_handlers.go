package handlers

import (
	"errors"
	"net/http"

	"github.com/hoteldesk/backend/pkg/response"
	"github.com/hoteldesk/backend/services/reservations/internal/domain"
	"github.com/hoteldesk/backend/services/reservations/internal/service"
)

func (h *Handlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	invoices, err := h.invoiceService.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to list invoices")
		return
	}
	if invoices == nil {
		invoices = []domain.Invoice{}
	}

	response.WriteJSON(w, http.StatusOK, invoices)
}

func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid invoice id")
		return
	}

	invoice, err := h.invoiceService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			response.NotFound(w, "Invoice not found")
			return
		}
		response.InternalError(w, "Failed to load invoice")
		return
	}

	response.WriteJSON(w, http.StatusOK, invoice)
}

func (h *Handlers) GetInvoiceByReservation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid reservation id")
		return
	}

	invoice, err := h.invoiceService.GetByReservation(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			response.NotFound(w, "Invoice not found")
			return
		}
		response.InternalError(w, "Failed to load invoice")
		return
	}

	response.WriteJSON(w, http.StatusOK, invoice)
}

// PayInvoice is the settlement callback the payments service fires after a
// successful capture.
func (h *Handlers) PayInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		response.BadRequest(w, "Invalid invoice id")
		return
	}

	invoice, err := h.invoiceService.MarkPaid(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			response.NotFound(w, "Invoice not found")
			return
		}
		response.InternalError(w, "Failed to mark invoice paid")
		return
	}

	response.WriteJSON(w, http.StatusOK, invoice)
}
