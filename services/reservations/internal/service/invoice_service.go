package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hoteldesk/backend/pkg/events"
	"github.com/hoteldesk/backend/pkg/logger"
	"github.com/hoteldesk/backend/pkg/mailer"
	"github.com/hoteldesk/backend/services/reservations/internal/clients"
	"github.com/hoteldesk/backend/services/reservations/internal/domain"
	"github.com/hoteldesk/backend/services/reservations/internal/repository"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

type InvoiceService struct {
	invoices     repository.InvoiceRepository
	reservations repository.ReservationRepository
	users        clients.UsersClient
	mail         mailer.Service
	bus          events.Publisher
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	reservations repository.ReservationRepository,
	users clients.UsersClient,
	mail mailer.Service,
	bus events.Publisher,
) *InvoiceService {
	return &InvoiceService{
		invoices:     invoices,
		reservations: reservations,
		users:        users,
		mail:         mail,
		bus:          bus,
	}
}

func (s *InvoiceService) Get(ctx context.Context, id int64) (*domain.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *InvoiceService) GetByReservation(ctx context.Context, reservationID int64) (*domain.Invoice, error) {
	invoice, err := s.invoices.FindByReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *InvoiceService) List(ctx context.Context, limit, offset int) ([]domain.Invoice, error) {
	invoices, err := s.invoices.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// MarkPaid settles an invoice. Paying an already paid invoice succeeds
// and changes nothing. Emailing the client afterwards is best-effort.
func (s *InvoiceService) MarkPaid(ctx context.Context, id int64) (*domain.Invoice, error) {
	invoice, err := s.invoices.MarkPaid(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}

	s.emailClient(ctx, invoice)

	if s.bus != nil {
		err := s.bus.Publish(ctx, events.InvoicePaid, events.InvoicePaidEvent{
			InvoiceID:     invoice.ID,
			ReservationID: invoice.ReservationID,
			Amount:        invoice.Amount,
			PaidAt:        time.Now(),
		})
		if err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", events.InvoicePaid, "error", err)
		}
	}

	logger.InfoContext(ctx, "Invoice paid", "invoice_id", invoice.ID, "amount", invoice.Amount)
	return invoice, nil
}

func (s *InvoiceService) emailClient(ctx context.Context, invoice *domain.Invoice) {
	reservation, err := s.reservations.FindByID(ctx, invoice.ReservationID)
	if err != nil || reservation == nil {
		logger.WarnContext(ctx, "Could not load reservation for invoice email",
			"invoice_id", invoice.ID, "error", err)
		return
	}

	client, err := s.users.GetUser(ctx, reservation.ClientID)
	if err != nil || client == nil || client.Email == "" {
		logger.WarnContext(ctx, "Could not resolve client email for invoice",
			"invoice_id", invoice.ID, "client_id", reservation.ClientID, "error", err)
		return
	}

	if err := s.mail.SendInvoiceEmail(client.Email, invoice.ID, invoice.Amount); err != nil {
		logger.ErrorContext(ctx, "Failed to send invoice email",
			"invoice_id", invoice.ID, "to", client.Email, "error", err)
	}
}
