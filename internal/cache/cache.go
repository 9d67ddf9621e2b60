// Package cache memoizes resolved site configs per lookup key, in process
// or in Redis, and provides the per-key locks used by content generation.
package cache

import (
	"context"
	"errors"
	"time"
)

// KeyPrefix is prepended to every lookup key
const KeyPrefix = "site_config_"

var ErrNotFound = errors.New("cache: key not found")

// Cache stores opaque values with a TTL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key returns the cache key of a site lookup key
func Key(lookupKey string) string {
	return KeyPrefix + lookupKey
}
