package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Reasons a function response is not stored.
const (
	SkipStatus  = "status"
	SkipInvalid = "invalid_json"
	SkipEmpty   = "empty"
	SkipExpired = "expired"
)

// Manager keeps function responses in Redis.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a new cache manager. It panics on a nil client.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Cacheable reports whether entry is stored, and if not, the skip reason.
// Only unexpired 2xx JSON answers that carry data (not null, [] or {}) are kept.
func Cacheable(entry *Entry) (bool, string) {
	if entry.StatusCode < 200 || entry.StatusCode >= 300 {
		return false, SkipStatus
	}
	if !json.Valid(entry.Data) {
		return false, SkipInvalid
	}
	switch string(bytes.TrimSpace(entry.Data)) {
	case "null", "[]", "{}":
		return false, SkipEmpty
	}
	if entry.TTL() <= 0 {
		return false, SkipExpired
	}
	return true, ""
}

// Get returns the stored response for key, or ErrCacheMiss.
// Entries that no longer decode are removed and reported as ErrInvalidEntry.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key.Function, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || !json.Valid(entry.Data) {
		CacheErrors.WithLabelValues("get").Inc()
		_ = m.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %s", ErrInvalidEntry, key.Function)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set stores entry until it expires. Responses Cacheable rejects are
// skipped without error.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if ok, reason := Cacheable(entry); !ok {
		CacheSkipped.WithLabelValues(reason).Inc()
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, entry.TTL()).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set %s: %w", key.Function, err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Delete removes an entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
