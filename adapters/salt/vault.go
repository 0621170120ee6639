// Package salt persists user salt records under one of two storage policies.
package salt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/saltcrypt"
	"github.com/layer-3/zklogin/ports"
)

const (
	PolicyPlaintext = "plaintext"
	PolicyEncrypted = "encrypted"

	keyPrefix = "zklogin_salt:"
)

// PassphraseFunc supplies the passphrase protecting an encrypted salt
type PassphraseFunc func(ctx context.Context) (string, error)

// StaticPassphrase returns a PassphraseFunc that always yields p
func StaticPassphrase(p string) PassphraseFunc {
	return func(context.Context) (string, error) { return p, nil }
}

// PlaintextVault keeps records in the local durable store as they are
type PlaintextVault struct {
	store ports.Store
}

// NewPlaintextVault stores salt records as JSON in store
func NewPlaintextVault(store ports.Store) *PlaintextVault {
	return &PlaintextVault{store: store}
}

// Policy returns PolicyPlaintext
func (v *PlaintextVault) Policy() string { return PolicyPlaintext }

// Load returns core.ErrNotFound when no record exists
func (v *PlaintextVault) Load(ctx context.Context, userID string) (*core.SaltRecord, error) {
	return loadRecord(ctx, v.store, userID)
}

// Save writes record without expiry
func (v *PlaintextVault) Save(ctx context.Context, userID string, record core.SaltRecord) error {
	return saveRecord(ctx, v.store, userID, record)
}

// Delete removes the record of userID
func (v *PlaintextVault) Delete(ctx context.Context, userID string) error {
	return v.store.Delete(ctx, keyPrefix+userID)
}

// EncryptedVault keeps records in the remote store with the salt sealed by saltcrypt.
// A passphrase is remembered once it has opened or sealed a record and forgotten after a
// failed decryption, so the next call asks again.
type EncryptedVault struct {
	store      ports.Store
	passphrase PassphraseFunc

	mu     sync.Mutex
	cached string
}

// NewEncryptedVault seals records with a key derived from the passphrase returned by passphrase
func NewEncryptedVault(store ports.Store, passphrase PassphraseFunc) *EncryptedVault {
	return &EncryptedVault{store: store, passphrase: passphrase}
}

// Policy returns PolicyEncrypted
func (v *EncryptedVault) Policy() string { return PolicyEncrypted }

// Load decrypts the stored salt. A wrong passphrase yields saltcrypt.ErrDecrypt; callers
// may prompt again.
func (v *EncryptedVault) Load(ctx context.Context, userID string) (*core.SaltRecord, error) {
	rec, err := loadRecord(ctx, v.store, userID)
	if err != nil {
		return nil, err
	}
	pass, err := v.secret(ctx)
	if err != nil {
		return nil, err
	}
	plain, err := saltcrypt.Decrypt(rec.UserSalt, pass)
	if err != nil {
		v.remember("")
		return nil, err
	}
	v.remember(pass)
	rec.UserSalt = plain
	return rec, nil
}

// Save seals record and writes it without expiry
func (v *EncryptedVault) Save(ctx context.Context, userID string, record core.SaltRecord) error {
	pass, err := v.secret(ctx)
	if err != nil {
		return err
	}
	bundle, err := saltcrypt.Encrypt(record.UserSalt, pass)
	if err != nil {
		return fmt.Errorf("failed to encrypt salt: %w", err)
	}
	v.remember(pass)
	record.UserSalt = bundle
	return saveRecord(ctx, v.store, userID, record)
}

func (v *EncryptedVault) secret(ctx context.Context) (string, error) {
	v.mu.Lock()
	cached := v.cached
	v.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	pass, err := v.passphrase(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if pass == "" {
		return "", fmt.Errorf("empty passphrase: %w", saltcrypt.ErrDecrypt)
	}
	return pass, nil
}

func (v *EncryptedVault) remember(pass string) {
	v.mu.Lock()
	v.cached = pass
	v.mu.Unlock()
}

// Delete removes the sealed record of userID
func (v *EncryptedVault) Delete(ctx context.Context, userID string) error {
	return v.store.Delete(ctx, keyPrefix+userID)
}

func loadRecord(ctx context.Context, store ports.Store, userID string) (*core.SaltRecord, error) {
	raw, err := store.Get(ctx, keyPrefix+userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load salt: %w", err)
	}
	var rec core.SaltRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode salt record: %w", err)
	}
	return &rec, nil
}

func saveRecord(ctx context.Context, store ports.Store, userID string, record core.SaltRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode salt record: %w", err)
	}
	if err := store.Set(ctx, keyPrefix+userID, string(data), 0); err != nil {
		return fmt.Errorf("failed to save salt: %w", err)
	}
	return nil
}

var (
	_ ports.SaltVault = (*PlaintextVault)(nil)
	_ ports.SaltVault = (*EncryptedVault)(nil)
)
