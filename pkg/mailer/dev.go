package mailer

import (
	"github.com/hoteldesk/backend/pkg/logger"
)

// DevMailer logs emails instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) error {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return nil
}

func (d *DevMailer) SendPasswordResetEmail(toEmail, toName, code string) error {
	logger.Info("[DEV MAIL] Password reset code",
		"to", toEmail,
		"name", toName,
		"code", code,
	)
	return nil
}

func (d *DevMailer) SendInvoiceEmail(toEmail string, invoiceID int64, amount float64) error {
	logger.Info("[DEV MAIL] Invoice paid",
		"to", toEmail,
		"invoice_id", invoiceID,
		"amount", amount,
	)
	return nil
}
