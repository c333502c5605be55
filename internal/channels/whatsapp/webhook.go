package whatsapp

import (
	"encoding/json"
	"fmt"
)

// Event is one normalized inbound thing that happened on the channel.
type Event struct {
	MessageID string
	From      string
	Type      string // text, image, audio, button
	Text      string
	MediaID   string
	Caption   string
	ButtonID  string
}

// envelope mirrors the Cloud API webhook payload, trimmed to the
// fields the bot consumes.
type envelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image *struct {
		ID      string `json:"id"`
		Caption string `json:"caption"`
	} `json:"image"`
	Audio *struct {
		ID string `json:"id"`
	} `json:"audio"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

// ParseWebhook extracts the supported events from a webhook body.
// Unsupported message types (stickers, locations, status updates) are
// skipped, not errors.
func ParseWebhook(body []byte) ([]Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("whatsapp: failed to decode webhook: %w", err)
	}

	var events []Event
	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				event := Event{MessageID: msg.ID, From: msg.From, Type: msg.Type}
				switch msg.Type {
				case "text":
					if msg.Text == nil {
						continue
					}
					event.Text = msg.Text.Body
				case "image":
					if msg.Image == nil {
						continue
					}
					event.MediaID = msg.Image.ID
					event.Caption = msg.Image.Caption
				case "audio":
					if msg.Audio == nil {
						continue
					}
					event.MediaID = msg.Audio.ID
				case "interactive":
					if msg.Interactive == nil || msg.Interactive.ButtonReply == nil {
						continue
					}
					event.Type = "button"
					event.ButtonID = msg.Interactive.ButtonReply.ID
				default:
					continue
				}
				events = append(events, event)
			}
		}
	}
	return events, nil
}
