package providers

import (
	"context"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// StripeProvider wraps the PaymentIntent calls this service needs so
// tests can swap in a fake.
type StripeProvider interface {
	CreateIntent(ctx context.Context, amount float64, invoiceID, reservationID int64) (intentID, clientSecret string, err error)
	GetIntentStatus(ctx context.Context, intentID string) (string, error)
}

// Charges go through Stripe in Moroccan dirhams.
const stripeCurrency = "mad"

type stripeProvider struct{}

// NewStripeProvider sets the global API key and returns the live
// implementation.
func NewStripeProvider(secretKey string) StripeProvider {
	stripe.Key = secretKey
	return &stripeProvider{}
}

func (s *stripeProvider) CreateIntent(ctx context.Context, amount float64, invoiceID, reservationID int64) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(stripeCurrency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("invoice_id", fmt.Sprintf("%d", invoiceID))
	params.AddMetadata("reservation_id", fmt.Sprintf("%d", reservationID))

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intent.ID, intent.ClientSecret, nil
}

func (s *stripeProvider) GetIntentStatus(ctx context.Context, intentID string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(intentID, params)
	if err != nil {
		return "", fmt.Errorf("failed to fetch payment intent: %w", err)
	}
	return string(intent.Status), nil
}

// toMinorUnits converts dirhams to centimes.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
