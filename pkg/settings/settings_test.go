package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestValidateOpenAIKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"sk-abc123", false},
		{"sk-proj-abcdef", false},
		{"sk-", true},
		{"pk-abc123", true},
		{"", true},
		{" sk-abc", true},
	}

	for _, tt := range tests {
		err := ValidateOpenAIKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateOpenAIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidAPIKey) {
			t.Errorf("ValidateOpenAIKey(%q) error = %v, want ErrInvalidAPIKey", tt.key, err)
		}
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{
		"sk-abcdefgh1234": "sk-********1234",
		"sk-abc":          "******",
		"":                "",
	}
	for in, want := range tests {
		if got := MaskKey(in); got != want {
			t.Errorf("MaskKey(%q) = %q, want %q", in, got, want)
		}
	}
}

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

func TestStore_OpenAIKey(t *testing.T) {
	store := NewStore(setupTestRedis(t), zerolog.Nop())
	ctx := context.Background()

	has, err := store.HasOpenAIKey(ctx, "user-1")
	if err != nil || has {
		t.Fatalf("HasOpenAIKey() = %v, %v, want false", has, err)
	}

	if err := store.SaveOpenAIKey(ctx, "user-1", "pk-nope"); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("SaveOpenAIKey(invalid) error = %v", err)
	}
	if err := store.SaveOpenAIKey(ctx, "user-1", "  sk-valid-key "); err != nil {
		t.Fatalf("SaveOpenAIKey() error = %v", err)
	}

	key, err := store.OpenAIKey(ctx, "user-1")
	if err != nil || key != "sk-valid-key" {
		t.Errorf("OpenAIKey() = %q, %v", key, err)
	}
	if has, _ := store.HasOpenAIKey(ctx, "user-1"); !has {
		t.Error("HasOpenAIKey() = false after save")
	}

	if err := store.DeleteOpenAIKey(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteOpenAIKey() error = %v", err)
	}
	if _, err := store.OpenAIKey(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("OpenAIKey() after delete error = %v, want ErrNotFound", err)
	}
}

func TestStore_SaveRequiresUser(t *testing.T) {
	store := NewStore(nil, zerolog.Nop())
	if err := store.SaveOpenAIKey(context.Background(), "", "sk-abc"); err == nil {
		t.Error("Expected error for missing user id")
	}
}
