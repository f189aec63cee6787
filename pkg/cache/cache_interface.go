package cache

import (
	"context"
	"time"
)

// Cache is the contract of the cache layer.
// Implementations: Redis (infrastructure/cache) and a no-op cache used when Redis is disabled.
type Cache interface {
	// Get reads key and unmarshals it into dest.
	// found = false on a cache miss, dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value (JSON encoded) with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob pattern (e.g. "people:list:*").
	DeletePattern(ctx context.Context, pattern string) error

	Ping(ctx context.Context) error
}
