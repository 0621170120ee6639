package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/elixxir/ekv"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

type kvRecord struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// KVStore implements the Store interface on an ekv key/value store.
// ekv has no expiry of its own, so records carry their deadline.
type KVStore struct {
	kv ekv.KeyValue
	mu sync.Mutex
}

// NewKVStore wraps an existing ekv store, e.g. ekv.MakeMemstore()
func NewKVStore(kv ekv.KeyValue) ports.Store {
	return &KVStore{kv: kv}
}

// NewFileStore opens (or creates) an encrypted ekv file store in dir
func NewFileStore(dir, password string) (ports.Store, error) {
	fs, err := ekv.NewFilestore(dir, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open file store at %s: %w", dir, err)
	}
	return NewKVStore(fs), nil
}

// Set writes value under key
func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	rec := kvRecord{Value: value}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().Add(ttl).UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.SetInterface(key, &rec); err != nil {
		return fmt.Errorf("failed to set %s: %w: %w", key, core.ErrStoreOperationFailed, err)
	}
	return nil
}

// Get reads the value under key
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec kvRecord
	err := s.kv.GetInterface(key, &rec)
	if !ekv.Exists(err) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w: %w", key, core.ErrStoreOperationFailed, err)
	}
	if !rec.ExpiresAt.IsZero() && time.Now().After(rec.ExpiresAt) {
		_ = s.kv.Delete(key)
		return "", core.ErrNotFound
	}
	return rec.Value, nil
}

// Delete removes key
func (s *KVStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.Delete(key)
	if err != nil && ekv.Exists(err) {
		return fmt.Errorf("failed to delete %s: %w: %w", key, core.ErrStoreOperationFailed, err)
	}
	return nil
}
