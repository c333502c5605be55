package payments

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anisalabs/anisa-platform/internal/i18n"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// Verifier confirms a checkout session with the payment provider.
type Verifier interface {
	Verify(ctx context.Context, sessionID string) (VerifiedPayment, error)
}

// Creditor applies a verified purchase to the user's balance.
type Creditor interface {
	TopUp(ctx context.Context, userID string, credits int, paymentID string) (int, error)
}

// Confirmer tells the user their purchase went through, in their
// language.
type Confirmer interface {
	SendText(ctx context.Context, userID, text string) error
}

// Notifier reports completed purchases to the operator. Optional.
type Notifier interface {
	PaymentCompleted(ctx context.Context, userID, packageID string, credits int) error
}

// Handler serves the checkout redirect endpoints.
type Handler struct {
	verifier Verifier
	creditor Creditor
	confirm  Confirmer
	notifier Notifier
	logger   *logging.Logger
}

// NewHandler creates the payments handler. notifier may be nil.
func NewHandler(verifier Verifier, creditor Creditor, confirm Confirmer, notifier Notifier, logger *logging.Logger) *Handler {
	if verifier == nil {
		panic("payments: verifier cannot be nil")
	}
	if creditor == nil {
		panic("payments: creditor cannot be nil")
	}
	if confirm == nil {
		panic("payments: confirmer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{verifier: verifier, creditor: creditor, confirm: confirm, notifier: notifier, logger: logger}
}

// Routes mounts the redirect endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/payments/success", h.handleSuccess)
	r.Get("/payments/cancel", h.handleCancel)
}

// handleSuccess is the landing endpoint after a completed checkout.
// The session is verified with the provider before any credits move;
// the query parameter alone is untrusted.
func (h *Handler) handleSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	payment, err := h.verifier.Verify(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("payment verification failed", "session_id", sessionID, "error", err)
		http.Error(w, "payment could not be verified", http.StatusBadGateway)
		return
	}

	balance, err := h.creditor.TopUp(r.Context(), payment.UserID, payment.Credits, payment.PaymentID)
	if err != nil {
		h.logger.Error("credit top-up failed",
			"user_id", payment.UserID, "payment_id", payment.PaymentID, "error", err)
		http.Error(w, "failed to apply credits", http.StatusInternalServerError)
		return
	}

	language := i18n.DetectLanguage(payment.UserID)
	thanks := fmt.Sprintf(i18n.T(language, "payment_thanks"), balance)
	if err := h.confirm.SendText(r.Context(), payment.UserID, thanks); err != nil {
		h.logger.Error("failed to send purchase confirmation", "user_id", payment.UserID, "error", err)
	}
	if h.notifier != nil {
		if err := h.notifier.PaymentCompleted(r.Context(), payment.UserID, payment.PackageID, payment.Credits); err != nil {
			h.logger.Error("operator payment notification failed", "error", err)
		}
	}

	h.logger.Info("payment applied",
		"user_id", payment.UserID, "package_id", payment.PackageID,
		"credits", payment.Credits, "balance", balance)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Payment complete</h1><p>Your credits have been added. You can return to the chat.</p></body></html>")
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Payment cancelled</h1><p>You have not been charged.</p></body></html>")
}
