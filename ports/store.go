package ports

import (
	"context"
	"time"
)

// Store is a string key/value slot. Get returns core.ErrNotFound for absent or expired keys.
// A zero ttl means the value does not expire.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
