// Package cache provides a TTL key-value cache for upstream API responses,
// with in-memory and Redis backends behind a common interface.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or its entry has expired.
	ErrNotFound = errors.New("cache entry not found")
	// ErrEmptyKey is returned when the cache key string is empty.
	ErrEmptyKey = errors.New("cache key cannot be empty")
)

// Store defines the TTL cache contract. A Get never returns an expired
// entry; a ttl of zero means the entry is already expired on the next read.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
