// Package handlers holds the HTTP entry points: the channel webhook,
// the synchronous chat endpoint and job polling.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/anisalabs/anisa-platform/internal/assistant"
	"github.com/anisalabs/anisa-platform/internal/channels/whatsapp"
	"github.com/anisalabs/anisa-platform/internal/i18n"
	"github.com/anisalabs/anisa-platform/internal/jobs"
	"github.com/anisalabs/anisa-platform/internal/payments"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// ChannelClient is the slice of the WhatsApp client the webhook needs.
type ChannelClient interface {
	MarkAsRead(ctx context.Context, messageID string) error
	MediaURL(ctx context.Context, mediaID string) (string, error)
	DownloadMedia(ctx context.Context, url string) ([]byte, string, error)
	SendText(ctx context.Context, to, text string) error
	SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) error
	SendLink(ctx context.Context, to, body, buttonText, url string) error
}

// MediaUploader republishes channel media to durable storage.
type MediaUploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// JobRecorder tracks enqueued messages for polling.
type JobRecorder interface {
	PutPending(ctx context.Context, job *jobs.Record) error
}

// CheckoutCreator opens a payment session for a credit package.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, userID string, pkg payments.Package) (string, error)
}

// WebhookHandler receives WhatsApp webhook deliveries, normalizes
// them and enqueues response jobs.
type WebhookHandler struct {
	verifyToken string
	client      ChannelClient
	media       MediaUploader
	queue       assistant.Publisher
	jobs        JobRecorder
	checkout    CheckoutCreator
	logger      *logging.Logger
}

// NewWebhookHandler wires the webhook. jobs and checkout may be nil to
// disable job tracking and purchases respectively.
func NewWebhookHandler(verifyToken string, client ChannelClient, media MediaUploader, queue assistant.Publisher, jobRecorder JobRecorder, checkout CheckoutCreator, logger *logging.Logger) *WebhookHandler {
	if client == nil {
		panic("handlers: channel client cannot be nil")
	}
	if media == nil {
		panic("handlers: media uploader cannot be nil")
	}
	if queue == nil {
		panic("handlers: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		client:      client,
		media:       media,
		queue:       queue,
		jobs:        jobRecorder,
		checkout:    checkout,
		logger:      logger,
	}
}

// Verify answers the Cloud API subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken && h.verifyToken != "" {
		fmt.Fprint(w, q.Get("hub.challenge"))
		return
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

// Receive handles webhook deliveries. Event processing is
// best-effort per event; only enqueue failures surface as 5xx so the
// channel redelivers.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	events, err := whatsapp.ParseWebhook(body)
	if err != nil {
		h.logger.Warn("unparseable webhook delivery", "error", err)
		// Acknowledge; redelivery cannot fix a malformed payload.
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, event := range events {
		if err := h.handleEvent(r.Context(), event); err != nil {
			h.logger.Error("failed to handle webhook event",
				"message_id", event.MessageID, "type", event.Type, "error", err)
			http.Error(w, "event processing failed", http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleEvent(ctx context.Context, event whatsapp.Event) error {
	if event.MessageID != "" {
		if err := h.client.MarkAsRead(ctx, event.MessageID); err != nil {
			h.logger.Warn("failed to mark message as read", "message_id", event.MessageID, "error", err)
		}
	}

	switch event.Type {
	case "text":
		return h.enqueue(ctx, assistant.InboundMessage{
			ID:      event.MessageID,
			UserID:  event.From,
			Text:    event.Text,
			Kind:    assistant.KindText,
			Channel: "whatsapp",
		})
	case "image":
		url, err := h.republishMedia(ctx, event.MediaID)
		if err != nil {
			return err
		}
		return h.enqueue(ctx, assistant.InboundMessage{
			ID:       event.MessageID,
			UserID:   event.From,
			Text:     event.Caption,
			MediaURL: url,
			Kind:     assistant.KindImage,
			Channel:  "whatsapp",
		})
	case "audio":
		url, err := h.republishMedia(ctx, event.MediaID)
		if err != nil {
			return err
		}
		return h.enqueue(ctx, assistant.InboundMessage{
			ID:       event.MessageID,
			UserID:   event.From,
			MediaURL: url,
			Kind:     assistant.KindAudio,
			Channel:  "whatsapp",
		})
	case "button":
		return h.handleButton(ctx, event)
	default:
		return nil
	}
}

// republishMedia copies channel media to durable storage. Channel
// media URLs expire within minutes; the queue consumer needs a stable
// reference.
func (h *WebhookHandler) republishMedia(ctx context.Context, mediaID string) (string, error) {
	url, err := h.client.MediaURL(ctx, mediaID)
	if err != nil {
		return "", err
	}
	data, contentType, err := h.client.DownloadMedia(ctx, url)
	if err != nil {
		return "", err
	}
	return h.media.Upload(ctx, data, contentType)
}

func (h *WebhookHandler) enqueue(ctx context.Context, msg assistant.InboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("handlers: failed to encode message: %w", err)
	}
	if err := h.queue.Publish(ctx, body); err != nil {
		return fmt.Errorf("handlers: failed to enqueue message: %w", err)
	}
	if h.jobs != nil {
		if err := h.jobs.PutPending(ctx, &jobs.Record{JobID: msg.ID, UserID: msg.UserID}); err != nil {
			// Tracking is advisory; the message is already queued.
			h.logger.Warn("failed to record pending job", "job_id", msg.ID, "error", err)
		}
	}
	return nil
}

// handleButton drives the top-up flow: the refill button shows the
// package list, a package button opens checkout.
func (h *WebhookHandler) handleButton(ctx context.Context, event whatsapp.Event) error {
	language := i18n.DetectLanguage(event.From)

	switch {
	case event.ButtonID == whatsapp.ButtonRefill:
		pkgs := payments.Packages(language)
		buttons := make([]whatsapp.Button, 0, len(pkgs))
		for _, pkg := range pkgs {
			title := fmt.Sprintf("%s: %d", pkg.Name, pkg.Credits)
			buttons = append(buttons, whatsapp.Button{ID: whatsapp.ButtonPackagePfx + pkg.ID, Title: title})
		}
		return h.client.SendButtons(ctx, event.From, i18n.T(language, "buy_prompt"), buttons)

	case event.ButtonID == whatsapp.ButtonNotNow:
		return nil

	case len(event.ButtonID) > len(whatsapp.ButtonPackagePfx) && event.ButtonID[:len(whatsapp.ButtonPackagePfx)] == whatsapp.ButtonPackagePfx:
		if h.checkout == nil {
			return h.client.SendText(ctx, event.From, i18n.T(language, "payment_failed"))
		}
		pkgID := event.ButtonID[len(whatsapp.ButtonPackagePfx):]
		pkg, ok := payments.Lookup(language, pkgID)
		if !ok {
			h.logger.Warn("unknown credit package selected", "package_id", pkgID)
			return nil
		}
		url, err := h.checkout.CreateCheckout(ctx, event.From, pkg)
		if err != nil {
			h.logger.Error("checkout creation failed", "user_id", event.From, "error", err)
			return h.client.SendText(ctx, event.From, i18n.T(language, "payment_failed"))
		}
		body := fmt.Sprintf("%s (%d)", pkg.Name, pkg.Credits)
		return h.client.SendLink(ctx, event.From, body, i18n.T(language, "checkout_button"), url)

	default:
		return nil
	}
}
