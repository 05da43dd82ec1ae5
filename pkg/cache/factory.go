package cache

import (
	"fmt"
	"strings"
)

// BackendType represents the type of cache backend.
type BackendType string

const (
	// BackendMemory represents in-memory storage.
	BackendMemory BackendType = "memory"
	// BackendRedis represents Redis storage.
	BackendRedis BackendType = "redis"
)

// Config contains configuration for creating a cache store.
type Config struct {
	// Type specifies the backend type (memory or redis).
	Type BackendType
	// Redis contains Redis-specific configuration.
	Redis RedisOptions
}

// Factory creates cache store instances based on configuration.
type Factory struct {
	config Config
}

// NewFactory creates a new cache factory with the provided configuration.
func NewFactory(config Config) *Factory {
	return &Factory{
		config: config,
	}
}

// Create creates and returns a new store instance based on the factory configuration.
// Returns an error if the backend type is invalid or if store creation fails.
func (f *Factory) Create() (Store, error) {
	switch f.config.Type {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStoreFromOptions(f.config.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", f.config.Type)
	}
}

// NewStore is a convenience function that creates a store directly from configuration.
// It's equivalent to NewFactory(config).Create().
func NewStore(config Config) (Store, error) {
	factory := NewFactory(config)
	return factory.Create()
}

// ParseBackendType parses a string into a BackendType.
// Returns BackendMemory for invalid inputs.
func ParseBackendType(s string) BackendType {
	switch strings.ToLower(s) {
	case "memory":
		return BackendMemory
	case "redis":
		return BackendRedis
	default:
		return BackendMemory
	}
}

// String returns the string representation of a BackendType.
func (t BackendType) String() string {
	return string(t)
}

// IsValid returns true if the BackendType is valid.
func (t BackendType) IsValid() bool {
	switch t {
	case BackendMemory, BackendRedis:
		return true
	default:
		return false
	}
}

// DefaultConfig returns the default cache configuration (memory backend).
func DefaultConfig() Config {
	return Config{
		Type: BackendMemory,
	}
}
