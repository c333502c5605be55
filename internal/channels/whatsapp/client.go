// Package whatsapp is the WhatsApp Cloud API channel: outbound
// delivery, inbound webhook parsing and the reply sink.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// Client is a raw HTTP client for the WhatsApp Cloud API.
type Client struct {
	token         string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	logger        *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the Graph API base URL (for testing).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a WhatsApp client for one business phone number.
func NewClient(token, phoneNumberID string, opts ...ClientOption) *Client {
	if token == "" {
		panic("whatsapp: token cannot be empty")
	}
	if phoneNumberID == "" {
		panic("whatsapp: phone number id cannot be empty")
	}
	c := &Client{
		token:         token,
		phoneNumberID: phoneNumberID,
		baseURL:       "https://graph.facebook.com/v19.0",
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		logger:        logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Button is one interactive reply button.
type Button struct {
	ID    string
	Title string
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	return c.send(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"body": text},
	})
}

// SendImage delivers an image by URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, to, imageURL, caption string) error {
	image := map[string]any{"link": imageURL}
	if caption != "" {
		image["caption"] = caption
	}
	return c.send(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "image",
		"image":             image,
	})
}

// SendButtons delivers an interactive message with up to three reply
// buttons, the Cloud API limit.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Button) error {
	if len(buttons) == 0 || len(buttons) > 3 {
		return fmt.Errorf("whatsapp: interactive messages need 1-3 buttons, got %d", len(buttons))
	}
	rendered := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		rendered = append(rendered, map[string]any{
			"type":  "reply",
			"reply": map[string]any{"id": b.ID, "title": b.Title},
		})
	}
	return c.send(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]any{"text": body},
			"action": map[string]any{"buttons": rendered},
		},
	})
}

// SendLink delivers a call-to-action message opening a URL, used for
// checkout links.
func (c *Client) SendLink(ctx context.Context, to, body, buttonText, url string) error {
	return c.send(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "cta_url",
			"body": map[string]any{"text": body},
			"action": map[string]any{
				"name": "cta_url",
				"parameters": map[string]any{
					"display_text": buttonText,
					"url":          url,
				},
			},
		},
	})
}

// MarkAsRead flags an inbound message as read so the user sees the
// blue ticks while the reply is being computed.
func (c *Client) MarkAsRead(ctx context.Context, messageID string) error {
	return c.send(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	})
}

// MediaURL resolves a webhook media id to its short-lived download
// URL.
func (c *Client) MediaURL(ctx context.Context, mediaID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, mediaID), nil)
	if err != nil {
		return "", fmt.Errorf("whatsapp: failed to build media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp: media lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whatsapp: media lookup status %d: %s", resp.StatusCode, string(data))
	}

	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("whatsapp: failed to decode media response: %w", err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("whatsapp: media %s has no url", mediaID)
	}
	return parsed.URL, nil
}

// DownloadMedia fetches media bytes from a resolved media URL. These
// URLs require the same bearer token as the API.
func (c *Client) DownloadMedia(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: failed to build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: media download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("whatsapp: media download status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: failed to read media body: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

func (c *Client) send(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: failed to encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp: api status %d: %s", resp.StatusCode, string(data))
	}
	return nil
}
