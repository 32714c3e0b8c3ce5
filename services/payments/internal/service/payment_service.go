package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hoteldesk/backend/pkg/events"
	"github.com/hoteldesk/backend/pkg/logger"
	"github.com/hoteldesk/backend/services/payments/internal/clients"
	"github.com/hoteldesk/backend/services/payments/internal/domain"
	"github.com/hoteldesk/backend/services/payments/internal/providers"
	"github.com/hoteldesk/backend/services/payments/internal/repository"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPaymentFailed   = errors.New("payment was not completed by the provider")
)

type PaymentService struct {
	payments repository.PaymentRepository
	stripe   providers.StripeProvider
	paypal   providers.PayPalProvider
	invoices clients.InvoicesClient
	bus      events.Publisher
}

func NewPaymentService(
	payments repository.PaymentRepository,
	stripe providers.StripeProvider,
	paypal providers.PayPalProvider,
	invoices clients.InvoicesClient,
	bus events.Publisher,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		stripe:   stripe,
		paypal:   paypal,
		invoices: invoices,
		bus:      bus,
	}
}

// OnSite records a cash or card payment taken at the front desk. It
// completes immediately, keeps the operator on record, and notifies the
// reservations service best-effort.
func (s *PaymentService) OnSite(ctx context.Context, req *domain.OnSitePaymentRequest, operatorID int64) (*domain.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payment, err := s.payments.Create(ctx, &domain.Payment{
		InvoiceID:     req.InvoiceID,
		ReservationID: req.ReservationID,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        domain.StatusComplete,
		Reference:     fmt.Sprintf("ONSITE-%d", time.Now().UnixMilli()),
		OperatorID:    &operatorID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.settle(ctx, payment)

	logger.InfoContext(ctx, "On-site payment captured",
		"payment_id", payment.ID, "invoice_id", payment.InvoiceID, "operator_id", operatorID)
	return payment, nil
}

// CreateStripeIntent opens a Stripe PaymentIntent and records the pending
// payment under the intent id.
func (s *PaymentService) CreateStripeIntent(ctx context.Context, req *domain.StripeIntentRequest) (*domain.StripeIntentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	intentID, clientSecret, err := s.stripe.CreateIntent(ctx, req.Amount, req.InvoiceID, req.ReservationID)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.Create(ctx, &domain.Payment{
		InvoiceID:     req.InvoiceID,
		ReservationID: req.ReservationID,
		Amount:        req.Amount,
		Method:        domain.MethodStripe,
		Status:        domain.StatusPending,
		Reference:     intentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	logger.InfoContext(ctx, "Stripe intent created", "payment_id", payment.ID, "intent_id", intentID)
	return &domain.StripeIntentResponse{
		PaymentID:    payment.ID,
		IntentID:     intentID,
		ClientSecret: clientSecret,
	}, nil
}

// ConfirmStripe re-fetches the intent from Stripe and settles or fails
// the pending payment based on what the provider reports.
func (s *PaymentService) ConfirmStripe(ctx context.Context, req *domain.StripeConfirmRequest) (*domain.Payment, error) {
	if req.IntentID == "" {
		return nil, fmt.Errorf("intent_id is required")
	}

	payment, err := s.payments.FindByReference(ctx, req.IntentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	status, err := s.stripe.GetIntentStatus(ctx, req.IntentID)
	if err != nil {
		return nil, err
	}

	if status != "succeeded" {
		failed, err := s.payments.Fail(ctx, payment.ID, status)
		if err != nil {
			return nil, fmt.Errorf("failed to record failure: %w", err)
		}
		s.publishFailure(ctx, failed, status)
		return failed, ErrPaymentFailed
	}

	completed, err := s.payments.Complete(ctx, payment.ID, status, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	s.settle(ctx, completed)

	logger.InfoContext(ctx, "Stripe payment captured", "payment_id", completed.ID, "intent_id", req.IntentID)
	return completed, nil
}

// CreatePayPalOrder opens a PayPal order and records the pending payment
// under the order id.
func (s *PaymentService) CreatePayPalOrder(ctx context.Context, req *domain.PayPalCreateRequest) (*domain.PayPalCreateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	orderID, approvalURL, err := s.paypal.CreateOrder(ctx, req.Amount, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.Create(ctx, &domain.Payment{
		InvoiceID:     req.InvoiceID,
		ReservationID: req.ReservationID,
		Amount:        req.Amount,
		Method:        domain.MethodPayPal,
		Status:        domain.StatusPending,
		Reference:     orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	logger.InfoContext(ctx, "PayPal order created", "payment_id", payment.ID, "order_id", orderID)
	return &domain.PayPalCreateResponse{
		PaymentID:   payment.ID,
		OrderID:     orderID,
		ApprovalURL: approvalURL,
	}, nil
}

// ExecutePayPal captures an approved order and settles or fails the
// pending payment.
func (s *PaymentService) ExecutePayPal(ctx context.Context, req *domain.PayPalExecuteRequest) (*domain.Payment, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("order_id is required")
	}

	payment, err := s.payments.FindByReference(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	status, payerEmail, err := s.paypal.CaptureOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if status != "COMPLETED" {
		failed, err := s.payments.Fail(ctx, payment.ID, status)
		if err != nil {
			return nil, fmt.Errorf("failed to record failure: %w", err)
		}
		s.publishFailure(ctx, failed, status)
		return failed, ErrPaymentFailed
	}

	var email *string
	if payerEmail != "" {
		email = &payerEmail
	}
	completed, err := s.payments.Complete(ctx, payment.ID, status, email)
	if err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	s.settle(ctx, completed)

	logger.InfoContext(ctx, "PayPal payment captured", "payment_id", completed.ID, "order_id", req.OrderID)
	return completed, nil
}

func (s *PaymentService) Get(ctx context.Context, id int64) (*domain.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) ListByReservation(ctx context.Context, reservationID int64) ([]domain.Payment, error) {
	payments, err := s.payments.FindByReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// settle tells the reservations service the invoice is paid and emits the
// captured event. Both are best-effort; the payment record is already
// final.
func (s *PaymentService) settle(ctx context.Context, payment *domain.Payment) {
	if err := s.invoices.MarkPaid(ctx, payment.InvoiceID); err != nil {
		logger.ErrorContext(ctx, "Invoice-paid callback failed",
			"payment_id", payment.ID, "invoice_id", payment.InvoiceID, "error", err)
	}

	if s.bus != nil {
		err := s.bus.Publish(ctx, events.PaymentCaptured, events.PaymentCapturedEvent{
			PaymentID:     payment.ID,
			InvoiceID:     payment.InvoiceID,
			ReservationID: payment.ReservationID,
			Amount:        payment.Amount,
			Method:        payment.Method,
			Reference:     payment.Reference,
		})
		if err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", events.PaymentCaptured, "error", err)
		}
	}
}

func (s *PaymentService) publishFailure(ctx context.Context, payment *domain.Payment, reason string) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(ctx, events.PaymentFailed, events.PaymentFailedEvent{
		PaymentID: payment.ID,
		InvoiceID: payment.InvoiceID,
		Method:    payment.Method,
		Reason:    reason,
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", events.PaymentFailed, "error", err)
	}
}
