package mailer

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer defines behavior for sending transactional mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendGridMailer is a Mailer implementation backed by SendGrid.
type SendGridMailer struct {
	apiKey   string
	fromName string
	fromAddr string
}

// NewSendGridMailer creates a SendGrid-backed mailer.
func NewSendGridMailer(apiKey, fromName, fromAddr string) *SendGridMailer {
	return &SendGridMailer{
		apiKey:   apiKey,
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

// Send sends a single email.
func (m *SendGridMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.apiKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	from := mail.NewEmail(m.fromName, m.fromAddr)
	toEmail := mail.NewEmail("", to)
	htmlContent := fmt.Sprintf("<pre>%s</pre>", body)

	message := mail.NewSingleEmail(from, subject, toEmail, body, htmlContent)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	log.Printf("[mailer] mail sent: status=%d to=%s subject=%s", response.StatusCode, to, subject)
	return nil
}

// NoopMailer discards mail. Used in tests and local development without an API key.
type NoopMailer struct{}

// Send implements Mailer.
func (NoopMailer) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("[mailer] (noop) to=%s subject=%s", to, subject)
	return nil
}
