package mailer

// Service sends transactional email. Implementations must be safe for
// concurrent use.
type Service interface {
	// Send delivers a plain text + optional HTML email.
	Send(toEmail, toName, subject, text, html string) error
	// SendPasswordResetEmail delivers the 6-digit reset code.
	SendPasswordResetEmail(toEmail, toName, code string) error
	// SendInvoiceEmail delivers an invoice summary after payment.
	SendInvoiceEmail(toEmail string, invoiceID int64, amount float64) error
}
