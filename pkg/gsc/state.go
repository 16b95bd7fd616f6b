package gsc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps pending OAuth states until the callback arrives.
type StateStore interface {
	Save(ctx context.Context, state, userID string, ttl time.Duration) error
	// Consume returns the user of state and forgets it. Unknown states yield ErrInvalidState.
	Consume(ctx context.Context, state string) (string, error)
}

const keyStateFmt = "seo:gsc:state:%s"

// RedisStateStore is a StateStore backed by Redis keys with expiry.
type RedisStateStore struct {
	redis *redis.Client
}

// NewRedisStateStore creates a Redis-backed state store.
func NewRedisStateStore(redisClient *redis.Client) *RedisStateStore {
	return &RedisStateStore{redis: redisClient}
}

// Save implements StateStore.
func (s *RedisStateStore) Save(ctx context.Context, state, userID string, ttl time.Duration) error {
	return s.redis.Set(ctx, fmt.Sprintf(keyStateFmt, state), userID, ttl).Err()
}

// Consume implements StateStore. GETDEL makes each state single-use.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrInvalidState
	}
	userID, err := s.redis.GetDel(ctx, fmt.Sprintf(keyStateFmt, state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("redis getdel: %w", err)
	}
	return userID, nil
}
