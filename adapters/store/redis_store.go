package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

// DefaultRedisPrefix namespaces every key written by RedisStore
const DefaultRedisPrefix = "zklogin:"

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis store whose keys are prefixed with prefix
func NewRedisStore(client redis.UniversalClient, prefix string) ports.Store {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// Set stores value in Redis, expiring it after ttl when ttl is positive
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w: %w", key, core.ErrStoreOperationFailed, err)
	}

	return nil
}

// Get reads a value from Redis
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w: %w", key, core.ErrStoreOperationFailed, err)
	}

	return val, nil
}

// Delete removes a key from Redis
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w: %w", key, core.ErrStoreOperationFailed, err)
	}

	return nil
}
