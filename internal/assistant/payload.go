package assistant

import (
	"encoding/json"
	"fmt"
)

// Kind classifies the inbound payload.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// InboundMessage is the normalized message handed to the engine. The
// channel webhooks produce this shape when enqueueing; Kind defaults
// to text when absent.
type InboundMessage struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Text     string `json:"text,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	Kind     Kind   `json:"kind,omitempty"`
	Channel  string `json:"channel,omitempty"`
}

// ParseInbound decodes a queue message body.
func ParseInbound(body []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("assistant: failed to decode inbound message: %w", err)
	}
	if msg.UserID == "" {
		return InboundMessage{}, fmt.Errorf("assistant: inbound message without user id")
	}
	if msg.Kind == "" {
		msg.Kind = KindText
	}
	switch msg.Kind {
	case KindText, KindImage, KindAudio:
	default:
		return InboundMessage{}, fmt.Errorf("assistant: unknown message kind %q", msg.Kind)
	}
	if msg.Kind != KindText && msg.MediaURL == "" {
		return InboundMessage{}, fmt.Errorf("assistant: %s message without media url", msg.Kind)
	}
	return msg, nil
}
