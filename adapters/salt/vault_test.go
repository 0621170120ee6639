package salt

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/zklogin/adapters/store"
	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/saltcrypt"
)

func TestPlaintextVault(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	v := NewPlaintextVault(s)
	assert.Equal(t, PolicyPlaintext, v.Policy())

	_, err := v.Load(ctx, "user")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, v.Save(ctx, "user", core.SaltRecord{UserSalt: "42", MaxEpoch: 110}))
	rec, err := v.Load(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, core.SaltRecord{UserSalt: "42", MaxEpoch: 110}, *rec)

	raw, err := s.Get(ctx, keyPrefix+"user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_salt":"42","max_epoch":110}`, raw)

	require.NoError(t, v.Delete(ctx, "user"))
	_, err = v.Load(ctx, "user")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEncryptedVault(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	v := NewEncryptedVault(s, StaticPassphrase("hunter2"))
	assert.Equal(t, PolicyEncrypted, v.Policy())

	require.NoError(t, v.Save(ctx, "user", core.SaltRecord{UserSalt: "42", MaxEpoch: 110}))

	raw, err := s.Get(ctx, keyPrefix+"user")
	require.NoError(t, err)
	var stored core.SaltRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.NotEqual(t, "42", stored.UserSalt)
	assert.Len(t, strings.Split(stored.UserSalt, "."), 4)
	assert.Equal(t, uint64(110), stored.MaxEpoch)

	rec, err := v.Load(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "42", rec.UserSalt)

	wrong := NewEncryptedVault(s, StaticPassphrase("hunter3"))
	_, err = wrong.Load(ctx, "user")
	assert.ErrorIs(t, err, saltcrypt.ErrDecrypt)
}

func TestEncryptedVaultAsksAgainAfterWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, NewEncryptedVault(s, StaticPassphrase("right")).Save(ctx, "user", core.SaltRecord{UserSalt: "42"}))

	answers := []string{"wrong", "right"}
	prompts := 0
	v := NewEncryptedVault(s, func(context.Context) (string, error) {
		p := answers[prompts]
		prompts++
		return p, nil
	})

	_, err := v.Load(ctx, "user")
	assert.ErrorIs(t, err, saltcrypt.ErrDecrypt)

	rec, err := v.Load(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "42", rec.UserSalt)

	require.NoError(t, v.Save(ctx, "user", core.SaltRecord{UserSalt: "42", MaxEpoch: 5}))
	_, err = v.Load(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, 2, prompts)
}
