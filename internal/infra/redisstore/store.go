// Package redisstore is the Redis backend for the engine's key-value snapshots.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"case_reminder_engine/internal/domain/notification"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "case_reminder:"

type Store struct {
	client *redis.Client
	prefix string
}

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func New(client *redis.Client) *Store {
	return &Store{client: client, prefix: defaultPrefix}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, nil
}

// Set stores the value without expiry; snapshots are overwritten, never aged out.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}
