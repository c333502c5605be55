package assistant

import (
	"context"
	"fmt"

	"github.com/anisalabs/anisa-platform/internal/account"
)

// Accounts is the account-store collaborator. The store owns
// atomicity of each mutation; the gate applies no locking of its own.
type Accounts interface {
	GetOrCreate(ctx context.Context, userID, language string) (account.User, error)
	Decrement(ctx context.Context, userID string, amount int) (int, error)
	AddCredits(ctx context.Context, userID string, amount int, paymentID string) (int, error)
}

// CreditGate gates message processing on a prepaid balance. The
// decrement is a flat amount per processed message regardless of which
// capability ran; image generation and plain chat cost the same
// balance on purpose.
type CreditGate struct {
	accounts Accounts
	perReply int
}

// NewCreditGate creates a gate charging perReply credits per message.
func NewCreditGate(accounts Accounts, perReply int) *CreditGate {
	if accounts == nil {
		panic("assistant: accounts cannot be nil")
	}
	if perReply <= 0 {
		perReply = 1
	}
	return &CreditGate{accounts: accounts, perReply: perReply}
}

// Allow loads (creating on first contact) the user and reports whether
// the balance permits processing.
func (g *CreditGate) Allow(ctx context.Context, userID, language string) (bool, account.User, error) {
	user, err := g.accounts.GetOrCreate(ctx, userID, language)
	if err != nil {
		return false, account.User{}, fmt.Errorf("assistant: failed to load account: %w", err)
	}
	return user.Credits > 0, user, nil
}

// Consume charges the flat per-message amount. The store floors the
// balance at zero.
func (g *CreditGate) Consume(ctx context.Context, userID string) (int, error) {
	return g.accounts.Decrement(ctx, userID, g.perReply)
}

// TopUp applies a verified payment. Idempotency on paymentID is the
// store's responsibility.
func (g *CreditGate) TopUp(ctx context.Context, userID string, credits int, paymentID string) (int, error) {
	return g.accounts.AddCredits(ctx, userID, credits, paymentID)
}
