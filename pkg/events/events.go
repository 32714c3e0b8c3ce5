package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hoteldesk/backend/pkg/logger"
)

// Publisher is the only bus surface the services need. Events are
// fire-and-forget; nothing in this repo consumes them.
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	ReservationCreated   = "reservation.created"
	ReservationCanceled  = "reservation.canceled"
	ReservationCompleted = "reservation.completed"

	InvoicePaid = "invoice.paid"

	PaymentCaptured = "payment.captured"
	PaymentFailed   = "payment.failed"
)

// Event payloads
type ReservationCreatedEvent struct {
	ReservationID int64     `json:"reservation_id"`
	ClientID      int64     `json:"client_id"`
	RoomID        int64     `json:"room_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	InvoiceID     int64     `json:"invoice_id"`
	Amount        float64   `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReservationStatusEvent struct {
	ReservationID int64     `json:"reservation_id"`
	RoomID        int64     `json:"room_id"`
	Status        string    `json:"status"`
	ChangedAt     time.Time `json:"changed_at"`
}

type InvoicePaidEvent struct {
	InvoiceID     int64     `json:"invoice_id"`
	ReservationID int64     `json:"reservation_id"`
	Amount        float64   `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

type PaymentCapturedEvent struct {
	PaymentID     int64   `json:"payment_id"`
	InvoiceID     int64   `json:"invoice_id"`
	ReservationID int64   `json:"reservation_id"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	Reference     string  `json:"reference,omitempty"`
}

type PaymentFailedEvent struct {
	PaymentID int64  `json:"payment_id"`
	InvoiceID int64  `json:"invoice_id"`
	Method    string `json:"method"`
	Reason    string `json:"reason"`
}
