package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/anisalabs/anisa-platform/pkg/logging"
)

var stripeTracer = otel.Tracer("internal/payments")

// VerifiedPayment is the outcome of a completed checkout session.
type VerifiedPayment struct {
	UserID    string
	PackageID string
	Credits   int
	PaymentID string
}

// StripeService creates Stripe Checkout Sessions for credit packages
// and verifies completed sessions on the success redirect.
type StripeService struct {
	secretKey  string
	successURL string
	cancelURL  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

// NewStripeService creates a Stripe client. successURL and cancelURL
// are the public redirect endpoints; Stripe substitutes the session id
// into {CHECKOUT_SESSION_ID}.
func NewStripeService(secretKey, successURL, cancelURL string, logger *logging.Logger) *StripeService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeService{
		secretKey:  secretKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeService) WithBaseURL(baseURL string) *StripeService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithDryRun returns fake checkout URLs without calling Stripe.
func (s *StripeService) WithDryRun(enabled bool) *StripeService {
	s.dryRun = enabled
	return s
}

// CreateCheckout opens a checkout session for the package and returns
// the redirect URL.
func (s *StripeService) CreateCheckout(ctx context.Context, userID string, pkg Package) (string, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_checkout_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("package.id", pkg.ID),
		attribute.Int("package.credits", pkg.Credits),
	)

	if s.dryRun {
		fakeID := "cs_dryrun_" + uuid.NewString()[:8]
		s.logger.Info("stripe dry run: skipping checkout session creation",
			"user_id", userID, "package_id", pkg.ID)
		return fmt.Sprintf("https://checkout.stripe.com/dry-run/%s", fakeID), nil
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", pkg.Currency)
	form.Set("line_items[0][price_data][unit_amount]", fmt.Sprintf("%d", pkg.Amount))
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("%s (%d credits)", pkg.Name, pkg.Credits))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", s.successURL)
	form.Set("cancel_url", s.cancelURL)
	form.Set("metadata[user_id]", userID)
	form.Set("metadata[package_id]", pkg.ID)
	form.Set("metadata[credits]", fmt.Sprintf("%d", pkg.Credits))

	var parsed stripeSession
	if err := s.call(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()), &parsed); err != nil {
		return "", err
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("payments: stripe response missing checkout url")
	}
	return parsed.URL, nil
}

// Verify loads a session by id and confirms payment completed. It is
// the only trusted source for crediting a purchase; the redirect alone
// proves nothing.
func (s *StripeService) Verify(ctx context.Context, sessionID string) (VerifiedPayment, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.verify_session",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if s.dryRun {
		return VerifiedPayment{}, fmt.Errorf("payments: cannot verify sessions in dry-run mode")
	}

	var parsed stripeSession
	if err := s.call(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &parsed); err != nil {
		return VerifiedPayment{}, err
	}
	if parsed.PaymentStatus != "paid" {
		return VerifiedPayment{}, fmt.Errorf("payments: session %s not paid (status %s)", sessionID, parsed.PaymentStatus)
	}

	credits := 0
	fmt.Sscanf(parsed.Metadata.Credits, "%d", &credits)
	if parsed.Metadata.UserID == "" || credits <= 0 {
		return VerifiedPayment{}, fmt.Errorf("payments: session %s missing credit metadata", sessionID)
	}

	paymentID := parsed.PaymentIntent
	if paymentID == "" {
		paymentID = parsed.ID
	}
	return VerifiedPayment{
		UserID:    parsed.Metadata.UserID,
		PackageID: parsed.Metadata.PackageID,
		Credits:   credits,
		PaymentID: paymentID,
	}, nil
}

func (s *StripeService) call(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", s.apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, string(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: stripe decode: %w", err)
	}
	return nil
}

// stripeSession is the subset of Stripe's Checkout Session we need.
type stripeSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
	PaymentIntent string `json:"payment_intent"`
	Metadata      struct {
		UserID    string `json:"user_id"`
		PackageID string `json:"package_id"`
		Credits   string `json:"credits"`
	} `json:"metadata"`
}
