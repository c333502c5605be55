package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Store persists conversation turns to PostgreSQL. Appends are single
// INSERT statements, so per-user append atomicity comes from the
// database; the router layer never takes locks of its own.
type Store struct {
	db *sql.DB
}

// NewStore creates a turn store backed by the provided database.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("history: db cannot be nil")
	}
	return &Store{db: db}
}

// Append inserts one turn for the user. Safe to repeat on redelivery;
// duplicate turns are an accepted consequence of at-least-once intake.
func (s *Store) Append(ctx context.Context, userID string, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}

	var mediaURL, mediaKind sql.NullString
	if turn.Media != nil {
		mediaURL = sql.NullString{String: turn.Media.URL, Valid: true}
		mediaKind = sql.NullString{String: string(turn.Media.Kind), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, user_id, role, content, media_url, media_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		turn.ID, userID, turn.Role, turn.Content, mediaURL, mediaKind, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("history: failed to append turn: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent turns for the user, ordered
// oldest to newest.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 15
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, media_url, media_kind, created_at
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: failed to load turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			turn      Turn
			mediaURL  sql.NullString
			mediaKind sql.NullString
		)
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.Role, &turn.Content, &mediaURL, &mediaKind, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: failed to scan turn: %w", err)
		}
		if mediaURL.Valid {
			turn.Media = &Media{URL: mediaURL.String, Kind: MediaKind(mediaKind.String)}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: failed to iterate turns: %w", err)
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
