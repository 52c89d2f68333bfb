// Package cache provides the response cache: a key-value Store abstraction
// with Redis and in-memory backends, a read-through Fetch wrapper, and
// deterministic key construction with a shared prefix per key family so
// related entries can be invalidated in bulk.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss indicates the requested key was not found or has expired.
var ErrMiss = errors.New("cache miss")

// opTimeout bounds every round-trip to the cache collaborator. A slow cache
// must never hold up a request longer than this; on timeout the operation
// is treated like any other cache failure.
const opTimeout = 500 * time.Millisecond

// Store is the key-value collaborator interface the cache layer runs on.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given time-to-live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Keys returns every stored key beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
