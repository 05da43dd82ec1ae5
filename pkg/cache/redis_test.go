package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a disposable Redis container and returns its
// address. Tests are skipped when no container runtime is available.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container, skipping test: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	store, err := NewRedisStoreFromOptions(RedisOptions{
		Addr: setupRedisContainer(t),
	})
	if err != nil {
		t.Fatalf("Failed to create redis store: %v", err)
	}
	t.Cleanup(store.Close)

	return store
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := setupRedisStore(t)
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

func TestRedisStore_MissingKey(t *testing.T) {
	store := setupRedisStore(t)

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_Overwrite(t *testing.T) {
	store := setupRedisStore(t)
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

func TestRedisStore_Expiry(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte("value"), time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := store.Get(ctx, "key"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_EmptyKey(t *testing.T) {
	store := &RedisStore{}

	if _, err := store.Get(context.Background(), ""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Get(\"\") error = %v, want ErrEmptyKey", err)
	}
	if err := store.Set(context.Background(), "", nil, time.Minute); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Set(\"\") error = %v, want ErrEmptyKey", err)
	}
}

func TestFactory_Create_Redis(t *testing.T) {
	addr := setupRedisContainer(t)

	config := Config{
		Type: BackendRedis,
		Redis: RedisOptions{
			Addr: addr,
		},
	}
	store, err := NewFactory(config).Create()
	if err != nil {
		t.Fatalf("Factory.Create() error = %v", err)
	}

	redisStore, ok := store.(*RedisStore)
	if !ok {
		t.Fatalf("Factory.Create() returned %T, want *RedisStore", store)
	}
	redisStore.Close()
}
