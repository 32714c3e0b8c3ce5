package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// InvoicesClient notifies the reservations service that an invoice has
// been settled.
type InvoicesClient interface {
	MarkPaid(ctx context.Context, invoiceID int64) error
}

type invoicesClient struct {
	baseURL string
	client  *http.Client
}

func NewInvoicesClient(baseURL string) InvoicesClient {
	return &invoicesClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *invoicesClient) MarkPaid(ctx context.Context, invoiceID int64) error {
	url := fmt.Sprintf("%s/api/invoices/%d/pay", c.baseURL, invoiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reservations service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reservations service returned status %d", resp.StatusCode)
	}
	return nil
}
