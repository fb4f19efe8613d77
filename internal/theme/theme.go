// Package theme stores each visitor's light/dark preference.
package theme

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"

	// Default applies to visitors without a stored preference.
	Default = Dark
)

var ErrInvalidTheme = errors.New("theme must be light or dark")

// Parse accepts exactly "light" or "dark".
func Parse(s string) (Theme, error) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == Light {
		return Dark
	}
	return Light
}

type Store interface {
	Get(ctx context.Context, visitorID string) (Theme, error)
	Set(ctx context.Context, visitorID string, t Theme) error
}

// RedisStore keeps preferences under theme:<visitor>, without expiry.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(visitorID string) string {
	return "theme:" + visitorID
}

func (s *RedisStore) Get(ctx context.Context, visitorID string) (Theme, error) {
	val, err := s.rdb.Get(ctx, redisKey(visitorID)).Result()
	if errors.Is(err, redis.Nil) {
		return Default, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read theme: %w", err)
	}
	t, err := Parse(val)
	if err != nil {
		return Default, nil
	}
	return t, nil
}

func (s *RedisStore) Set(ctx context.Context, visitorID string, t Theme) error {
	if err := s.rdb.Set(ctx, redisKey(visitorID), string(t), 0).Err(); err != nil {
		return fmt.Errorf("failed to store theme: %w", err)
	}
	return nil
}

// MemoryStore is used when Redis is not configured.
type MemoryStore struct {
	mu     sync.RWMutex
	themes map[string]Theme
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{themes: make(map[string]Theme)}
}

func (s *MemoryStore) Get(_ context.Context, visitorID string) (Theme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.themes[visitorID]; ok {
		return t, nil
	}
	return Default, nil
}

func (s *MemoryStore) Set(_ context.Context, visitorID string, t Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themes[visitorID] = t
	return nil
}
