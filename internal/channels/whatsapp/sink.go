package whatsapp

import (
	"context"

	"github.com/anisalabs/anisa-platform/internal/assistant"
	"github.com/anisalabs/anisa-platform/internal/i18n"
)

// Button ids the webhook handler recognizes on interactive replies.
const (
	ButtonRefill     = "refill_credits"
	ButtonNotNow     = "not_now"
	ButtonPackagePfx = "credit_pkg_"
)

// Sink delivers engine results over WhatsApp.
type Sink struct {
	client *Client
}

// NewSink wraps a client as the engine's reply sink.
func NewSink(client *Client) *Sink {
	if client == nil {
		panic("whatsapp: client cannot be nil")
	}
	return &Sink{client: client}
}

// Send delivers a result: text as a plain message, images with the
// result text as caption.
func (s *Sink) Send(ctx context.Context, userID string, result assistant.Result) error {
	if result.Kind == assistant.ResultImage && result.ImageURL != "" {
		return s.client.SendImage(ctx, userID, result.ImageURL, result.Text)
	}
	return s.client.SendText(ctx, userID, result.Text)
}

// PromptTopUp tells the user they are out of credits and offers the
// refill flow.
func (s *Sink) PromptTopUp(ctx context.Context, userID, language string) error {
	return s.client.SendButtons(ctx, userID, i18n.T(language, "no_credits"), []Button{
		{ID: ButtonRefill, Title: i18n.T(language, "refill_button")},
		{ID: ButtonNotNow, Title: i18n.T(language, "not_now_button")},
	})
}
