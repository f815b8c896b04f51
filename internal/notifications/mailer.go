// Package notifications delivers learner-facing email about quiz results.
package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/SAP-F-2025/quiz-service/internal/config"
)

type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Plain   string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns a SendGrid mailer when an API key is configured and a
// logging mailer otherwise.
func NewMailer(cfg config.MailConfig, logger *slog.Logger) Mailer {
	if !cfg.Enabled() {
		return &LogMailer{logger: logger}
	}
	return &SendgridMailer{
		client: sendgrid.NewSendClient(cfg.SendgridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromAddress),
		logger: logger,
	}
}

type SendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *slog.Logger
}

func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Plain, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.logger.Info("Email sent", "to", msg.ToEmail, "subject", msg.Subject, "status", resp.StatusCode)
	return nil
}

// LogMailer only records what would have been sent.
type LogMailer struct {
	logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "Mail delivery disabled, skipping email", "to", msg.ToEmail, "subject", msg.Subject)
	return nil
}
