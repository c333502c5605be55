package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("internal/account")

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("account: user not found")

// User is a messaging user and their credit balance. ID is the
// channel-scoped identity, the WhatsApp phone number for WhatsApp
// users.
type User struct {
	ID        string
	Credits   int
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// querier is the subset of the pgx pool the store needs. Tests
// substitute pgxmock.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages users and their credit balances in PostgreSQL.
type Store struct {
	db             querier
	defaultCredits int
}

// NewStore creates an account store. New users start with
// defaultCredits on first contact.
func NewStore(db *pgxpool.Pool, defaultCredits int) *Store {
	if db == nil {
		panic("account: db cannot be nil")
	}
	return newStore(db, defaultCredits)
}

func newStore(db querier, defaultCredits int) *Store {
	if defaultCredits < 0 {
		defaultCredits = 0
	}
	return &Store{db: db, defaultCredits: defaultCredits}
}

// GetOrCreate loads the user, creating them with the default credit
// grant and detected language on first contact. The upsert keeps the
// operation idempotent under concurrent first messages.
func (s *Store) GetOrCreate(ctx context.Context, userID, language string) (User, error) {
	ctx, span := tracer.Start(ctx, "account.GetOrCreate",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	var user User
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (id, credits, language, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET updated_at = NOW()
		RETURNING id, credits, language, created_at, updated_at`,
		userID, s.defaultCredits, language,
	).Scan(&user.ID, &user.Credits, &user.Language, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("account: failed to get or create user %s: %w", userID, err)
	}
	return user, nil
}

// Credits returns the user's current balance.
func (s *Store) Credits(ctx context.Context, userID string) (int, error) {
	ctx, span := tracer.Start(ctx, "account.Credits",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	var credits int
	err := s.db.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("account: failed to load credits for %s: %w", userID, err)
	}
	return credits, nil
}

// Decrement reduces the balance by amount, flooring at zero, and
// returns the new balance. A single UPDATE keeps concurrent
// decrements consistent.
func (s *Store) Decrement(ctx context.Context, userID string, amount int) (int, error) {
	ctx, span := tracer.Start(ctx, "account.Decrement",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("credits.amount", amount)))
	defer span.End()

	if amount <= 0 {
		return s.Credits(ctx, userID)
	}

	var remaining int
	err := s.db.QueryRow(ctx, `
		UPDATE users
		SET credits = GREATEST(credits - $2, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING credits`,
		userID, amount,
	).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("account: failed to decrement credits for %s: %w", userID, err)
	}
	return remaining, nil
}

// AddCredits grants purchased credits. paymentID deduplicates
// deliveries of the same payment notification; replays leave the
// balance untouched.
func (s *Store) AddCredits(ctx context.Context, userID string, amount int, paymentID string) (int, error) {
	ctx, span := tracer.Start(ctx, "account.AddCredits",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("payment.id", paymentID),
			attribute.Int("credits.amount", amount)))
	defer span.End()

	if amount <= 0 {
		return 0, fmt.Errorf("account: credit amount must be positive, got %d", amount)
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO credit_payments (payment_id, user_id, credits, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (payment_id) DO NOTHING`,
		paymentID, userID, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("account: failed to record payment %s: %w", paymentID, err)
	}
	if tag.RowsAffected() == 0 {
		// Payment already applied; report the current balance.
		return s.Credits(ctx, userID)
	}

	var balance int
	err = s.db.QueryRow(ctx, `
		UPDATE users
		SET credits = credits + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING credits`,
		userID, amount,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("account: failed to add credits for %s: %w", userID, err)
	}
	return balance, nil
}
