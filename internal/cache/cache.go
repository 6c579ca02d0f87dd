package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransfersKey is the coarse key covering cached transfer listings.
const TransfersKey = "transfers"

// ShopKey returns the cache key scoping stock-level queries to one shop.
func ShopKey(shopID uuid.UUID) string {
	return "shop:" + shopID.String()
}

// Store is a best-effort read-through cache for query results.
// It is never authoritative: callers must treat every error as a miss
// and must not let cache failures affect ledger mutations.
type Store interface {
	// Get unmarshals the cached value for key into dest.
	// The bool reports whether the key was present.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores the JSON-marshalled value under key with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Invalidate removes the given keys.
	Invalidate(ctx context.Context, keys ...string) error
}

type noop struct{}

// NewNoop returns a Store that caches nothing. Used when no Redis is configured.
func NewNoop() Store { return noop{} }

func (noop) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (noop) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (noop) Invalidate(ctx context.Context, keys ...string) error { return nil }
