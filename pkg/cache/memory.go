package cache

import (
	"context"
	"sync"
	"time"
)

// entry holds a cached value and its expiry instant.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore implements the Store interface using an in-memory map.
// Expired entries are evicted lazily on read; there is no background sweep
// and no size-based eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the stored value if the entry has not expired. An expired
// entry is removed and reported as ErrNotFound. The entry wins ties: one
// read at exactly its expiry instant is still returned, strictly after it
// is not.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// replaced the entry with a fresh one.
		if cur, ok := m.entries[key]; ok && m.now().After(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Set stores value under key with the given TTL, overwriting any prior
// entry. A zero or negative TTL produces an entry that expires on the next
// read rather than an error.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Len reports the number of entries currently held, including ones that
// have expired but not yet been read.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
