// Package settings stores per-user preferences the tools depend on, such as
// the OpenAI key used for keyword clustering.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidAPIKey is returned for keys that do not look like OpenAI keys.
	ErrInvalidAPIKey = errors.New(`invalid API key format, it should start with "sk-"`)

	// ErrNotFound is returned when the user has no stored key.
	ErrNotFound = errors.New("setting not found")
)

const keySettingsFmt = "seo:settings:%s"

const fieldOpenAIKey = "openai_api_key"

// ValidateOpenAIKey checks the shape of an OpenAI API key.
func ValidateOpenAIKey(key string) error {
	if !strings.HasPrefix(key, "sk-") || len(strings.TrimSpace(key)) <= len("sk-") {
		return ErrInvalidAPIKey
	}
	return nil
}

// MaskKey hides all but the prefix and last four characters of a key.
func MaskKey(key string) string {
	if len(key) <= 7 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + strings.Repeat("*", len(key)-7) + key[len(key)-4:]
}

// Store keeps user settings in a Redis hash per user.
type Store struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewStore creates a settings store.
func NewStore(redisClient *redis.Client, logger zerolog.Logger) *Store {
	return &Store{redis: redisClient, logger: logger}
}

// SaveOpenAIKey validates and stores the user's OpenAI key.
func (s *Store) SaveOpenAIKey(ctx context.Context, userID, key string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	key = strings.TrimSpace(key)
	if err := ValidateOpenAIKey(key); err != nil {
		return err
	}

	if err := s.redis.HSet(ctx, fmt.Sprintf(keySettingsFmt, userID), fieldOpenAIKey, key).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("key", MaskKey(key)).Msg("OpenAI API key saved")
	return nil
}

// OpenAIKey returns the user's stored key or ErrNotFound.
func (s *Store) OpenAIKey(ctx context.Context, userID string) (string, error) {
	key, err := s.redis.HGet(ctx, fmt.Sprintf(keySettingsFmt, userID), fieldOpenAIKey).Result()
	if errors.Is(err, redis.Nil) || (err == nil && key == "") {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis hget: %w", err)
	}
	return key, nil
}

// HasOpenAIKey reports whether the user stored a key.
func (s *Store) HasOpenAIKey(ctx context.Context, userID string) (bool, error) {
	_, err := s.OpenAIKey(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// DeleteOpenAIKey removes the user's key.
func (s *Store) DeleteOpenAIKey(ctx context.Context, userID string) error {
	if err := s.redis.HDel(ctx, fmt.Sprintf(keySettingsFmt, userID), fieldOpenAIKey).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}
