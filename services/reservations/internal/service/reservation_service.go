package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hoteldesk/backend/pkg/events"
	"github.com/hoteldesk/backend/pkg/logger"
	"github.com/hoteldesk/backend/services/reservations/internal/clients"
	"github.com/hoteldesk/backend/services/reservations/internal/domain"
	"github.com/hoteldesk/backend/services/reservations/internal/repository"
)

var (
	ErrClientNotFound      = errors.New("client does not exist")
	ErrRoomUnavailable     = errors.New("room is not available")
	ErrReservationNotFound = errors.New("reservation not found")
)

type ReservationService struct {
	reservations repository.ReservationRepository
	invoices     repository.InvoiceRepository
	rooms        clients.RoomsClient
	users        clients.UsersClient
	bus          events.Publisher
}

func NewReservationService(
	reservations repository.ReservationRepository,
	invoices repository.InvoiceRepository,
	rooms clients.RoomsClient,
	users clients.UsersClient,
	bus events.Publisher,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		invoices:     invoices,
		rooms:        rooms,
		users:        users,
		bus:          bus,
	}
}

// Create books a room. The client must exist, the room must currently be
// free, and the stay must span at least one whole night. Reservation and
// invoice land in one transaction; flipping the room to occupied is
// best-effort and never rolls the booking back.
func (s *ReservationService) Create(ctx context.Context, req *domain.CreateReservationRequest) (*domain.ReservationWithInvoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify client: %w", err)
	}
	if !exists {
		return nil, ErrClientNotFound
	}

	room, err := s.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		logger.WarnContext(ctx, "Room lookup failed", "room_id", req.RoomID, "error", err)
		return nil, ErrRoomUnavailable
	}
	if room.Status != clients.RoomStatusFree {
		return nil, ErrRoomUnavailable
	}

	nights := domain.Nights(req.CheckIn, req.CheckOut)
	amount := domain.InvoiceAmount(room.Price, nights)

	reservation, invoice, err := s.reservations.CreateWithInvoice(ctx, &domain.Reservation{
		ClientID: req.ClientID,
		RoomID:   req.RoomID,
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
	}, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	if err := s.rooms.SetStatus(ctx, req.RoomID, clients.RoomStatusOccupied); err != nil {
		logger.ErrorContext(ctx, "Failed to mark room occupied",
			"reservation_id", reservation.ID, "room_id", req.RoomID, "error", err)
	}

	s.publish(ctx, events.ReservationCreated, events.ReservationCreatedEvent{
		ReservationID: reservation.ID,
		ClientID:      reservation.ClientID,
		RoomID:        reservation.RoomID,
		StartDate:     reservation.CheckIn,
		EndDate:       reservation.CheckOut,
		InvoiceID:     invoice.ID,
		Amount:        invoice.Amount,
		CreatedAt:     reservation.CreatedAt,
	})

	logger.InfoContext(ctx, "Reservation created",
		"reservation_id", reservation.ID, "invoice_id", invoice.ID, "amount", invoice.Amount)

	return &domain.ReservationWithInvoice{Reservation: *reservation, Invoice: invoice}, nil
}

func (s *ReservationService) Get(ctx context.Context, id int64) (*domain.ReservationWithInvoice, error) {
	reservation, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}

	invoice, err := s.invoices.FindByReservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}

	return &domain.ReservationWithInvoice{Reservation: *reservation, Invoice: invoice}, nil
}

func (s *ReservationService) List(ctx context.Context, clientID *int64, limit, offset int) ([]domain.Reservation, error) {
	reservations, err := s.reservations.List(ctx, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// Update changes the room or the dates and reprices the invoice. The
// nightly price comes from the request; missing means the default rate.
func (s *ReservationService) Update(ctx context.Context, id int64, req *domain.UpdateReservationRequest) (*domain.ReservationWithInvoice, error) {
	reservation, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}

	if req.RoomID != nil {
		reservation.RoomID = *req.RoomID
	}
	if req.CheckIn != nil {
		reservation.CheckIn = *req.CheckIn
	}
	if req.CheckOut != nil {
		reservation.CheckOut = *req.CheckOut
	}

	nights := domain.Nights(reservation.CheckIn, reservation.CheckOut)
	if nights <= 0 {
		return nil, fmt.Errorf("check_out must be at least one day after check_in")
	}

	updated, err := s.reservations.Update(ctx, reservation)
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	if updated == nil {
		return nil, ErrReservationNotFound
	}

	invoice, err := s.invoices.FindByReservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	if invoice != nil {
		amount := domain.InvoiceAmount(req.NightlyPrice, nights)
		invoice, err = s.invoices.UpdateAmount(ctx, invoice.ID, amount)
		if err != nil {
			return nil, fmt.Errorf("failed to reprice invoice: %w", err)
		}
	}

	logger.InfoContext(ctx, "Reservation updated", "reservation_id", id)
	return &domain.ReservationWithInvoice{Reservation: *updated, Invoice: invoice}, nil
}

func (s *ReservationService) Cancel(ctx context.Context, id int64) (*domain.Reservation, error) {
	return s.closeOut(ctx, id, domain.StatusCancelled, events.ReservationCanceled)
}

func (s *ReservationService) Complete(ctx context.Context, id int64) (*domain.Reservation, error) {
	return s.closeOut(ctx, id, domain.StatusCompleted, events.ReservationCompleted)
}

// closeOut ends a stay either way: status change, best-effort room
// release, event.
func (s *ReservationService) closeOut(ctx context.Context, id int64, status, subject string) (*domain.Reservation, error) {
	reservation, err := s.reservations.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}

	if err := s.rooms.SetStatus(ctx, reservation.RoomID, clients.RoomStatusFree); err != nil {
		logger.ErrorContext(ctx, "Failed to release room",
			"reservation_id", id, "room_id", reservation.RoomID, "error", err)
	}

	s.publish(ctx, subject, events.ReservationStatusEvent{
		ReservationID: reservation.ID,
		RoomID:        reservation.RoomID,
		Status:        reservation.Status,
		ChangedAt:     time.Now(),
	})

	logger.InfoContext(ctx, "Reservation closed", "reservation_id", id, "status", status)
	return reservation, nil
}

func (s *ReservationService) Delete(ctx context.Context, id int64) error {
	if err := s.reservations.Delete(ctx, id); err != nil {
		return ErrReservationNotFound
	}
	logger.InfoContext(ctx, "Reservation deleted", "reservation_id", id)
	return nil
}

func (s *ReservationService) publish(ctx context.Context, subject string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
