// Package notify sends operator notifications for noteworthy events,
// currently completed credit purchases.
package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// EmailSender sends a single email. Implementations can be swapped
// without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one email to deliver.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// SendGridConfig holds the SendGrid credentials and sender identity.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender delivers email through the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSendGridSender creates a SendGrid sender. Returns nil when no API
// key is configured so callers can treat notifications as optional.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Anisa"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send delivers one email via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notify: sendgrid status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// PaymentNotifier emails the operator about completed purchases.
type PaymentNotifier struct {
	sender EmailSender
	to     string
}

// NewPaymentNotifier creates the notifier. Returns nil when either
// part is missing; payment notifications are best-effort.
func NewPaymentNotifier(sender EmailSender, operatorEmail string) *PaymentNotifier {
	if sender == nil || operatorEmail == "" {
		return nil
	}
	return &PaymentNotifier{sender: sender, to: operatorEmail}
}

// PaymentCompleted reports one applied purchase.
func (n *PaymentNotifier) PaymentCompleted(ctx context.Context, userID, packageID string, credits int) error {
	return n.sender.Send(ctx, EmailMessage{
		To:      n.to,
		Subject: fmt.Sprintf("Credit purchase: %s", packageID),
		Body:    fmt.Sprintf("User %s purchased the %s package (%d credits).", userID, packageID, credits),
	})
}
