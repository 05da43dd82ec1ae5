package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if store == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if store.entries == nil {
		t.Error("entries map should be initialized")
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte(`{"v":1}`), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"v":1}` {
		t.Errorf("Get() = %s, want the stored value", got)
	}
}

func TestMemoryStore_OverwriteKeepsSecondValue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "key", []byte("first"), time.Minute)
	store.Set(ctx, "key", []byte("second"), time.Minute)

	got, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get() = %s, want second", got)
	}
}

func TestMemoryStore_MissingKey(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_EmptyKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, ""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Get(\"\") error = %v, want ErrEmptyKey", err)
	}
	if err := store.Set(ctx, "", nil, time.Minute); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Set(\"\") error = %v, want ErrEmptyKey", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	store.Set(ctx, "key", []byte("value"), time.Minute)

	// One second later the entry is still fresh.
	current = current.Add(time.Second)
	if _, err := store.Get(ctx, "key"); err != nil {
		t.Errorf("Get() after 1s error = %v, want value", err)
	}

	// Strictly past the expiry instant the entry is gone and removed.
	current = current.Add(time.Minute)
	if _, err := store.Get(ctx, "key"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrNotFound", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, expired entry should be removed on read", store.Len())
	}
}

func TestMemoryStore_ExpiryTieFavorsEntry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	store.Set(ctx, "key", []byte("value"), time.Minute)

	// Expiry uses strictly-after: at exactly expires_at the value survives.
	current = current.Add(time.Minute)
	if _, err := store.Get(ctx, "key"); err != nil {
		t.Errorf("Get() at the expiry instant error = %v, want value", err)
	}
}

func TestMemoryStore_ZeroTTL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	if err := store.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set() with zero TTL error = %v, want no error", err)
	}

	// Any non-zero delay makes the entry expired.
	current = current.Add(time.Nanosecond)
	if _, err := store.Get(ctx, "key"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound for zero TTL", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			store.Set(ctx, "key", []byte("value"), time.Minute)
		}
	}()
	for i := 0; i < 100; i++ {
		store.Get(ctx, "key")
	}
	<-done
}
