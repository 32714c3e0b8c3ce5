package providers

import (
	"context"
	"fmt"

	"github.com/plutov/paypal/v4"
)

// PayPalProvider wraps the order calls this service needs so tests can
// swap in a fake.
type PayPalProvider interface {
	CreateOrder(ctx context.Context, amount float64, invoiceID int64) (orderID, approvalURL string, err error)
	CaptureOrder(ctx context.Context, orderID string) (status, payerEmail string, err error)
}

// PayPal orders are charged in USD; MAD is not a supported PayPal
// currency.
const paypalCurrency = "USD"

type paypalProvider struct {
	client *paypal.Client
}

func NewPayPalProvider(clientID, secret, mode string) (PayPalProvider, error) {
	base := paypal.APIBaseSandBox
	if mode == "live" {
		base = paypal.APIBaseLive
	}

	client, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create PayPal client: %w", err)
	}
	return &paypalProvider{client: client}, nil
}

func (p *paypalProvider) CreateOrder(ctx context.Context, amount float64, invoiceID int64) (string, string, error) {
	if _, err := p.client.GetAccessToken(ctx); err != nil {
		return "", "", fmt.Errorf("failed to authenticate with PayPal: %w", err)
	}

	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: fmt.Sprintf("invoice-%d", invoiceID),
		Amount: &paypal.PurchaseUnitAmount{
			Currency: paypalCurrency,
			Value:    fmt.Sprintf("%.2f", amount),
		},
	}}

	order, err := p.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create PayPal order: %w", err)
	}

	var approvalURL string
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approvalURL = link.Href
			break
		}
	}
	return order.ID, approvalURL, nil
}

func (p *paypalProvider) CaptureOrder(ctx context.Context, orderID string) (string, string, error) {
	if _, err := p.client.GetAccessToken(ctx); err != nil {
		return "", "", fmt.Errorf("failed to authenticate with PayPal: %w", err)
	}

	capture, err := p.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return "", "", fmt.Errorf("failed to capture PayPal order: %w", err)
	}

	var payerEmail string
	if capture.Payer != nil {
		payerEmail = capture.Payer.EmailAddress
	}
	return capture.Status, payerEmail, nil
}
