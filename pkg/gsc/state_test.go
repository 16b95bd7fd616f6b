package gsc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestRedisStateStore(t *testing.T) {
	store := NewRedisStateStore(setupTestRedis(t))
	ctx := context.Background()

	if err := store.Save(ctx, "state-1", "user-1", time.Minute); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	userID, err := store.Consume(ctx, "state-1")
	if err != nil || userID != "user-1" {
		t.Fatalf("Consume() = %q, %v", userID, err)
	}

	if _, err := store.Consume(ctx, "state-1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Consume() error = %v, want ErrInvalidState", err)
	}
	if _, err := store.Consume(ctx, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Consume(\"\") error = %v, want ErrInvalidState", err)
	}
}

func TestRedisStateStore_Expires(t *testing.T) {
	store := NewRedisStateStore(setupTestRedis(t))
	ctx := context.Background()

	if err := store.Save(ctx, "state-2", "user-1", 50*time.Millisecond); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	if _, err := store.Consume(ctx, "state-2"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Consume() error = %v, want ErrInvalidState", err)
	}
}
