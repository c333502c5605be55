// Package router assembles the HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/anisalabs/anisa-platform/internal/http/handlers"
	httpmiddleware "github.com/anisalabs/anisa-platform/internal/http/middleware"
	"github.com/anisalabs/anisa-platform/internal/payments"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	WebhookHandler  *handlers.WebhookHandler
	ChatHandler     *handlers.ChatHandler
	PaymentsHandler *payments.Handler
	MetricsHandler  http.Handler
	AdminJWTSecret  string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: channel webhook, payment redirects, health.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.WebhookHandler != nil {
			public.Get("/webhook/whatsapp", cfg.WebhookHandler.Verify)
			public.Post("/webhook/whatsapp", cfg.WebhookHandler.Receive)
		}
		if cfg.PaymentsHandler != nil {
			cfg.PaymentsHandler.Routes(public)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin endpoints behind JWT auth.
	if cfg.ChatHandler != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
			admin.Post("/admin/chat/message", cfg.ChatHandler.Message)
			admin.Get("/admin/jobs/{jobID}", cfg.ChatHandler.Job)
		})
	}

	return r
}
