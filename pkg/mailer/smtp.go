package mailer

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPMailer struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

func NewSMTPMailer(host string, port int, from, user, pass string) *SMTPMailer {
	return &SMTPMailer{
		Host: strings.TrimSpace(host),
		Port: port,
		From: strings.TrimSpace(from),
		User: strings.TrimSpace(user),
		Pass: strings.TrimSpace(pass),
	}
}

func (s *SMTPMailer) Send(toEmail, toName, subject, text, html string) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("empty recipient email")
	}

	var buf bytes.Buffer
	boundary := "mixed-boundary"

	fmt.Fprintf(&buf, "From: %s\r\n", s.From)
	fmt.Fprintf(&buf, "To: %s\r\n", toEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", text)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", html)

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	// Development SMTP (Mailpit): no auth
	if s.User == "" {
		return smtp.SendMail(addr, nil, s.From, []string{toEmail}, buf.Bytes())
	}

	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)
	return smtp.SendMail(addr, auth, s.From, []string{toEmail}, buf.Bytes())
}

func (s *SMTPMailer) SendPasswordResetEmail(toEmail, toName, code string) error {
	subject := "Your HotelDesk password reset code"
	text := fmt.Sprintf("Your password reset code is: %s\n\nIt expires in 1 hour.", code)
	html := fmt.Sprintf(`
		<h2>Password reset</h2>
		<p>Hi %s,</p>
		<p>Your reset code is: <strong style="font-size: 24px;">%s</strong></p>
		<p>This code will expire in 1 hour.</p>
	`, toName, code)

	return s.Send(toEmail, toName, subject, text, html)
}

func (s *SMTPMailer) SendInvoiceEmail(toEmail string, invoiceID int64, amount float64) error {
	subject := fmt.Sprintf("Your invoice #%d", invoiceID)
	text := fmt.Sprintf("Your invoice #%d for %.2f MAD has been paid.", invoiceID, amount)
	html := fmt.Sprintf(`
		<h2>Thank you for your payment</h2>
		<p>Your invoice <strong>#%d</strong> for <strong>%.2f MAD</strong> has been paid.</p>
	`, invoiceID, amount)

	return s.Send(toEmail, "", subject, text, html)
}
