package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/zkcrypto"
	"github.com/layer-3/zklogin/ports"
)

const (
	KeyEphemeralKeyPair = "zklogin_ephemeral_key_pair"
	KeyRandomness       = "zklogin_randomness"
)

// CredentialStore keeps the ephemeral keypair and randomness in the session slot
type CredentialStore struct {
	store ports.Store
	ttl   time.Duration
}

// NewCredentialStore creates a credential store whose entries expire after ttl (0 = never)
func NewCredentialStore(store ports.Store, ttl time.Duration) *CredentialStore {
	return &CredentialStore{store: store, ttl: ttl}
}

// Generate creates a fresh keypair and randomness, overwriting stored values
func (c *CredentialStore) Generate(ctx context.Context) (*core.EphemeralKeyPair, string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	randomness, err := zkcrypto.GenerateRandomness()
	if err != nil {
		return nil, "", err
	}

	seed := base64.StdEncoding.EncodeToString(priv.Seed())
	if err := c.store.Set(ctx, KeyEphemeralKeyPair, seed, c.ttl); err != nil {
		return nil, "", fmt.Errorf("failed to persist ephemeral key: %w", err)
	}
	if err := c.store.Set(ctx, KeyRandomness, randomness, c.ttl); err != nil {
		return nil, "", fmt.Errorf("failed to persist randomness: %w", err)
	}

	return &core.EphemeralKeyPair{PublicKey: pub, PrivateKey: priv}, randomness, nil
}

// Clear removes the keypair and randomness
func (c *CredentialStore) Clear(ctx context.Context) error {
	return errors.Join(
		c.store.Delete(ctx, KeyEphemeralKeyPair),
		c.store.Delete(ctx, KeyRandomness),
	)
}

// Restore reads back stored credentials. It returns nil when either is absent.
func (c *CredentialStore) Restore(ctx context.Context) (*core.EphemeralKeyPair, string, error) {
	seed, err := c.store.Get(ctx, KeyEphemeralKeyPair)
	if errors.Is(err, core.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read ephemeral key: %w", err)
	}
	randomness, err := c.store.Get(ctx, KeyRandomness)
	if errors.Is(err, core.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read randomness: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(seed)
	if err != nil || len(raw) != ed25519.SeedSize {
		return nil, "", fmt.Errorf("stored ephemeral key is corrupt")
	}
	priv := ed25519.NewKeyFromSeed(raw)
	return &core.EphemeralKeyPair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, randomness, nil
}
