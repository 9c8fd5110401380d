// Package cache defines the ephemeral cache port used on the read-heavy
// resolve path. The cache is never the system of record: losing all cached
// entries affects latency, never correctness.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or its TTL has elapsed.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a time-boxed key-value store. An entry must be unreadable after
// its TTL elapses, even if it was never explicitly evicted.
type Cache interface {
	// Get returns the value stored under key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for the given TTL. A zero TTL means the
	// entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
