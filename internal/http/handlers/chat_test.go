package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anisalabs/anisa-platform/internal/assistant"
	"github.com/anisalabs/anisa-platform/internal/jobs"
)

type fakeResponder struct {
	got    assistant.InboundMessage
	result assistant.Result
}

func (f *fakeResponder) Respond(_ context.Context, msg assistant.InboundMessage) assistant.Result {
	f.got = msg
	return f.result
}

type fakeJobReader struct {
	record *jobs.Record
	err    error
}

func (f *fakeJobReader) Get(_ context.Context, _ string) (*jobs.Record, error) {
	return f.record, f.err
}

func TestChatMessage(t *testing.T) {
	t.Run("answers inline", func(t *testing.T) {
		responder := &fakeResponder{result: assistant.Result{Kind: assistant.ResultText, Text: "Hello!"}}
		h := NewChatHandler(responder, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"user_id":"4915551234","text":"hi"}`))
		rec := httptest.NewRecorder()
		h.Message(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var result assistant.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "Hello!", result.Text)
		assert.Equal(t, "4915551234", responder.got.UserID)
	})

	t.Run("rejects incomplete body", func(t *testing.T) {
		h := NewChatHandler(&fakeResponder{}, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"user_id":""}`))
		rec := httptest.NewRecorder()
		h.Message(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestChatJob(t *testing.T) {
	router := func(h *ChatHandler) *chi.Mux {
		r := chi.NewRouter()
		r.Get("/jobs/{jobID}", h.Job)
		return r
	}

	t.Run("returns the record", func(t *testing.T) {
		h := NewChatHandler(&fakeResponder{}, &fakeJobReader{record: &jobs.Record{JobID: "job-1", Status: jobs.StatusCompleted}}, nil)
		req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
		rec := httptest.NewRecorder()
		router(h).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var record jobs.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
		assert.Equal(t, jobs.StatusCompleted, record.Status)
	})

	t.Run("missing job is 404", func(t *testing.T) {
		h := NewChatHandler(&fakeResponder{}, &fakeJobReader{err: jobs.ErrNotFound}, nil)
		req := httptest.NewRequest(http.MethodGet, "/jobs/job-404", nil)
		rec := httptest.NewRecorder()
		router(h).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
