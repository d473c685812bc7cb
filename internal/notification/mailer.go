package notification

import (
	"context"
	"fmt"

	"chargedesk/internal/config"
	"chargedesk/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends a plain text email to one recipient.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridMailer returns nil when no API key is configured; the dispatcher
// then skips the email channel.
func NewSendGridMailer(cfg config.SendGridConfig) *SendGridMailer {
	if cfg.APIKey == "" {
		logger.Warn("sendgrid.api_key not set, email notifications disabled")
		return nil
	}
	return &SendGridMailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail(toName, toEmail), body, "")

	logger.ExternalServiceCall("sendgrid", "send", "to", toEmail)
	resp, err := m.client.SendWithContext(ctx, message)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", toEmail)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
