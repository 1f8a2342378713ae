package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// EmailSender delivers one email. SendGrid, SES and the stub are interchangeable.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain text alert email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

const defaultFromName = "Radiology Assistant"

// SendGridConfig holds SendGrid settings.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends alert email through the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send implements EmailSender.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("alerts: sendgrid client not configured")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Body,
		"",
	)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("alerts: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("alerts: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Debug("alerts: email sent via sendgrid", "to", msg.To, "status", resp.StatusCode)
	return nil
}

// StubEmailSender logs instead of sending.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a StubEmailSender.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send implements EmailSender.
func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("alerts: stub email", "to", msg.To, "subject", msg.Subject)
	return nil
}

// EmailNotifier is a SystemNotifier that mails every recipient.
type EmailNotifier struct {
	sender     EmailSender
	recipients []string
}

// NewEmailNotifier returns nil without a sender or recipients.
func NewEmailNotifier(sender EmailSender, recipients []string) *EmailNotifier {
	clean := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			clean = append(clean, r)
		}
	}
	if sender == nil || len(clean) == 0 {
		return nil
	}
	return &EmailNotifier{sender: sender, recipients: clean}
}

// Show implements SystemNotifier. It attempts every recipient and returns the
// first failure.
func (n *EmailNotifier) Show(ctx context.Context, title, body string) error {
	var firstErr error
	for _, to := range n.recipients {
		err := n.sender.Send(ctx, EmailMessage{To: to, Subject: title, Body: body})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("alerts: email %s: %w", to, err)
		}
	}
	return firstErr
}

var (
	_ EmailSender    = (*SendGridSender)(nil)
	_ EmailSender    = (*StubEmailSender)(nil)
	_ SystemNotifier = (*EmailNotifier)(nil)
)
