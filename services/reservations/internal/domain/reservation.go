package domain

import (
	"fmt"
	"time"
)

// Reservation statuses
const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// Invoice states
const (
	InvoiceIssued = "ISSUED"
	InvoicePaid   = "PAID"
)

// DefaultNightlyPrice applies when the room record carries no price.
const DefaultNightlyPrice = 100.00

type Reservation struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"client_id"`
	RoomID    int64     `json:"room_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Invoice struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservation_id"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	IssuedAt      time.Time `json:"issued_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ReservationWithInvoice is the create/read response shape.
type ReservationWithInvoice struct {
	Reservation
	Invoice *Invoice `json:"invoice,omitempty"`
}

type CreateReservationRequest struct {
	ClientID int64     `json:"client_id"`
	RoomID   int64     `json:"room_id"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

type UpdateReservationRequest struct {
	RoomID       *int64     `json:"room_id,omitempty"`
	CheckIn      *time.Time `json:"check_in,omitempty"`
	CheckOut     *time.Time `json:"check_out,omitempty"`
	NightlyPrice *float64   `json:"nightly_price,omitempty"`
}

func (r *CreateReservationRequest) Validate() error {
	if r.ClientID <= 0 {
		return fmt.Errorf("client_id is required")
	}
	if r.RoomID <= 0 {
		return fmt.Errorf("room_id is required")
	}
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return fmt.Errorf("check_in and check_out are required")
	}
	if Nights(r.CheckIn, r.CheckOut) <= 0 {
		return fmt.Errorf("check_out must be at least one day after check_in")
	}
	return nil
}

// Nights counts calendar days between check-in and check-out, ignoring
// the time of day. A 15:00 arrival with an 11:00 departure the next
// morning is one night.
func Nights(checkIn, checkOut time.Time) int {
	in := time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(checkOut.Year(), checkOut.Month(), checkOut.Day(), 0, 0, 0, 0, time.UTC)
	return int(out.Sub(in).Hours() / 24)
}

// InvoiceAmount prices a stay. A nil nightly price falls back to
// DefaultNightlyPrice.
func InvoiceAmount(nightlyPrice *float64, nights int) float64 {
	price := DefaultNightlyPrice
	if nightlyPrice != nil && *nightlyPrice > 0 {
		price = *nightlyPrice
	}
	return price * float64(nights)
}
