package domain

import (
	"fmt"
	"time"
)

// Payment methods
const (
	MethodCash       = "CASH"
	MethodCardOnSite = "CARD_ON_SITE"
	MethodStripe     = "STRIPE"
	MethodPayPal     = "PAYPAL"
)

// Payment statuses
const (
	StatusPending  = "PENDING"
	StatusComplete = "COMPLETE"
	StatusFailed   = "FAILED"
)

type Payment struct {
	ID            int64     `json:"id"`
	InvoiceID     int64     `json:"invoice_id"`
	ReservationID int64     `json:"reservation_id"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	Reference     string    `json:"reference,omitempty"`
	ProviderState string    `json:"provider_state,omitempty"`
	OperatorID    *int64    `json:"operator_id,omitempty"`
	PayerEmail    *string   `json:"payer_email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type OnSitePaymentRequest struct {
	InvoiceID     int64   `json:"invoice_id"`
	ReservationID int64   `json:"reservation_id"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"` // CASH or CARD_ON_SITE
}

type StripeIntentRequest struct {
	InvoiceID     int64   `json:"invoice_id"`
	ReservationID int64   `json:"reservation_id"`
	Amount        float64 `json:"amount"`
}

type StripeIntentResponse struct {
	PaymentID    int64  `json:"payment_id"`
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

type StripeConfirmRequest struct {
	IntentID string `json:"intent_id"`
}

type PayPalCreateRequest struct {
	InvoiceID     int64   `json:"invoice_id"`
	ReservationID int64   `json:"reservation_id"`
	Amount        float64 `json:"amount"`
}

type PayPalCreateResponse struct {
	PaymentID   int64  `json:"payment_id"`
	OrderID     string `json:"order_id"`
	ApprovalURL string `json:"approval_url"`
}

type PayPalExecuteRequest struct {
	OrderID string `json:"order_id"`
}

func (r *OnSitePaymentRequest) Validate() error {
	if err := validateCharge(r.InvoiceID, r.ReservationID, r.Amount); err != nil {
		return err
	}
	if r.Method == "" {
		r.Method = MethodCash
	}
	if r.Method != MethodCash && r.Method != MethodCardOnSite {
		return fmt.Errorf("method must be %s or %s", MethodCash, MethodCardOnSite)
	}
	return nil
}

func (r *StripeIntentRequest) Validate() error {
	return validateCharge(r.InvoiceID, r.ReservationID, r.Amount)
}

func (r *PayPalCreateRequest) Validate() error {
	return validateCharge(r.InvoiceID, r.ReservationID, r.Amount)
}

func validateCharge(invoiceID, reservationID int64, amount float64) error {
	if invoiceID <= 0 {
		return fmt.Errorf("invoice_id is required")
	}
	if reservationID <= 0 {
		return fmt.Errorf("reservation_id is required")
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}
