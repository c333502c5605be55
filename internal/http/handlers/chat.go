package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/anisalabs/anisa-platform/internal/assistant"
	"github.com/anisalabs/anisa-platform/internal/jobs"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// Responder runs the engine synchronously, bypassing the queue. Used
// by the admin chat endpoint.
type Responder interface {
	Respond(ctx context.Context, msg assistant.InboundMessage) assistant.Result
}

// JobReader fetches job records for polling.
type JobReader interface {
	Get(ctx context.Context, jobID string) (*jobs.Record, error)
}

// ChatHandler serves the synchronous chat endpoint and job polling.
type ChatHandler struct {
	responder Responder
	jobs      JobReader
	logger    *logging.Logger
}

// NewChatHandler creates the handler. jobs may be nil to disable
// polling.
func NewChatHandler(responder Responder, jobReader JobReader, logger *logging.Logger) *ChatHandler {
	if responder == nil {
		panic("handlers: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{responder: responder, jobs: jobReader, logger: logger}
}

type chatRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// Message answers one chat message inline. Credit gating does not
// apply here; the endpoint sits behind admin auth.
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Text == "" {
		http.Error(w, "user_id and text are required", http.StatusBadRequest)
		return
	}

	result := h.responder.Respond(r.Context(), assistant.InboundMessage{
		ID:      uuid.NewString(),
		UserID:  req.UserID,
		Text:    req.Text,
		Kind:    assistant.KindText,
		Channel: "admin",
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode chat response", "error", err)
	}
}

// Job returns the state of an enqueued message.
func (h *ChatHandler) Job(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "job tracking disabled", http.StatusNotFound)
		return
	}
	jobID := chi.URLParam(r, "jobID")
	record, err := h.jobs.Get(r.Context(), jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load job", "job_id", jobID, "error", err)
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		h.logger.Error("failed to encode job", "error", err)
	}
}
