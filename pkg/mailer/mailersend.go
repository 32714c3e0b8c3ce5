package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) Send(toEmail, toName, subject, text, html string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}

func (m *MailerSendClient) SendPasswordResetEmail(toEmail, toName, code string) error {
	subject := "Your HotelDesk password reset code"
	html := fmt.Sprintf(`
		<h2>Password reset</h2>
		<p>Hi %s,</p>
		<p>Your reset code is: <strong style="font-size: 24px;">%s</strong></p>
		<p>This code will expire in 1 hour.</p>
		<p>If you did not request a password reset, please ignore this email.</p>
	`, toName, code)

	text := fmt.Sprintf("Your password reset code is: %s\n\nIt expires in 1 hour.", code)

	return m.Send(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendInvoiceEmail(toEmail string, invoiceID int64, amount float64) error {
	subject := fmt.Sprintf("Your invoice #%d", invoiceID)
	html := fmt.Sprintf(`
		<h2>Thank you for your payment</h2>
		<p>Your invoice <strong>#%d</strong> for <strong>%.2f MAD</strong> has been paid.</p>
		<p>We look forward to welcoming you.</p>
	`, invoiceID, amount)

	text := fmt.Sprintf("Your invoice #%d for %.2f MAD has been paid.", invoiceID, amount)

	return m.Send(toEmail, "", subject, text, html)
}
