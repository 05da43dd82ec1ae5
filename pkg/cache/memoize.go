package cache

import (
	"context"
	"encoding/json"
	"time"

	"portfolio/pkg/core"
)

// Memoize returns the cached JSON-decoded value for key, or runs fetch and
// caches its result with the given TTL. A corrupted cache entry is treated
// as a miss: it is logged, dropped, and re-fetched, never surfaced to the
// caller.
func Memoize[T any](ctx context.Context, store Store, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if data, err := store.Get(ctx, key); err == nil {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		core.LoggerFromCtx(ctx).Warn("Dropping corrupted cache entry", "key", key)
		// Overwrite with an immediately expired entry so the bad value
		// cannot be read again.
		_ = store.Set(ctx, key, nil, 0)
	}

	value, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		// The value is still good; only caching is skipped.
		core.LoggerFromCtx(ctx).Warn("Failed to marshal value for cache", "key", key, "error", err)
		return value, nil
	}
	if err := store.Set(ctx, key, data, ttl); err != nil {
		core.LoggerFromCtx(ctx).Warn("Failed to write cache entry", "key", key, "error", err)
	}
	return value, nil
}
