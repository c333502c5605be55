package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// Recents is satisfied by both Store and CachedStore.
type Recents interface {
	Append(ctx context.Context, userID string, turn Turn) error
	Recent(ctx context.Context, userID string, limit int) ([]Turn, error)
}

// CachedStore wraps a Store with a Redis read-through cache for the
// recent-window query. Appends invalidate the cached window so the
// next read reflects the new turn.
type CachedStore struct {
	store  *Store
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedStore wraps store with a Redis cache. A zero ttl defaults
// to one hour.
func NewCachedStore(store *Store, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedStore {
	if store == nil {
		panic("history: store cannot be nil")
	}
	if client == nil {
		panic("history: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedStore{store: store, client: client, ttl: ttl, logger: logger}
}

func recentKey(userID string, limit int) string {
	return fmt.Sprintf("history:recent:%s:%d", userID, limit)
}

// Append writes through to Postgres and drops any cached windows for
// the user. Cache errors are logged, never surfaced; the database is
// the source of truth.
func (c *CachedStore) Append(ctx context.Context, userID string, turn Turn) error {
	if err := c.store.Append(ctx, userID, turn); err != nil {
		return err
	}

	iter := c.client.Scan(ctx, 0, fmt.Sprintf("history:recent:%s:*", userID), 50).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("history cache scan failed", "user_id", userID, "error", err)
		return nil
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn("history cache invalidation failed", "user_id", userID, "error", err)
		}
	}
	return nil
}

// Recent serves the window from Redis when present, falling back to
// Postgres and repopulating the cache on miss.
func (c *CachedStore) Recent(ctx context.Context, userID string, limit int) ([]Turn, error) {
	key := recentKey(userID, limit)

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var turns []Turn
		if jsonErr := json.Unmarshal([]byte(raw), &turns); jsonErr == nil {
			return turns, nil
		}
		// Corrupt entry; fall through to the database.
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("history cache read failed", "user_id", userID, "error", err)
	}

	turns, err := c.store.Recent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(turns); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.logger.Warn("history cache write failed", "user_id", userID, "error", setErr)
		}
	}
	return turns, nil
}
