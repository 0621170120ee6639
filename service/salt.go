package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/zkcrypto"
	"github.com/layer-3/zklogin/ports"
)

// userNamespace scopes user ids derived from identity claims
var userNamespace = uuid.MustParse("6f1c3c0e-5b0a-4d4b-9a59-6b9e1f3c2a10")

// SaltManager owns the long-lived user salt and derives addresses from it
type SaltManager struct {
	vault  ports.SaltVault
	logger zerolog.Logger
}

// NewSaltManager resolves salts through vault
func NewSaltManager(vault ports.SaltVault, logger zerolog.Logger) *SaltManager {
	return &SaltManager{vault: vault, logger: logger}
}

// Policy names the configured storage policy
func (m *SaltManager) Policy() string {
	return m.vault.Policy()
}

// GenerateSalt returns a fresh 128-bit salt as a decimal string
func (m *SaltManager) GenerateSalt() (string, error) {
	return zkcrypto.GenerateRandomness()
}

// UserID is the stable identifier a salt record is stored under
func UserID(claims core.Claims) string {
	return uuid.NewSHA1(userNamespace, []byte(claims.Issuer+"|"+claims.Subject+"|"+claims.Audience)).String()
}

// Resolve loads the salt for the identity, creating and saving one on first login.
// The stored max epoch is refreshed when it changes.
func (m *SaltManager) Resolve(ctx context.Context, claims core.Claims, maxEpoch uint64) (string, error) {
	userID := UserID(claims)
	logger := m.logger.With().Str("user_id", userID).Str("policy", m.vault.Policy()).Logger()

	rec, err := m.vault.Load(ctx, userID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		salt, err := m.GenerateSalt()
		if err != nil {
			return "", err
		}
		if err := m.vault.Save(ctx, userID, core.SaltRecord{UserSalt: salt, MaxEpoch: maxEpoch}); err != nil {
			return "", err
		}
		logger.Info().Msg("created user salt")
		return salt, nil
	case err != nil:
		return "", err
	}

	if rec.MaxEpoch != maxEpoch {
		rec.MaxEpoch = maxEpoch
		if err := m.vault.Save(ctx, userID, *rec); err != nil {
			logger.Warn().Err(err).Msg("failed to refresh salt record")
		}
	}
	return rec.UserSalt, nil
}

// DeriveAddress returns the on-chain address for the claims and salt
func (m *SaltManager) DeriveAddress(claims core.Claims, salt string) (string, error) {
	return zkcrypto.Address(claims.Issuer, claims.Subject, claims.Audience, salt)
}

// DeleteSalt removes the identity's salt record. Addresses derived from it become unreachable.
func (m *SaltManager) DeleteSalt(ctx context.Context, claims core.Claims) error {
	if err := m.vault.Delete(ctx, UserID(claims)); err != nil {
		return fmt.Errorf("failed to delete salt: %w", err)
	}
	m.logger.Warn().Str("user_id", UserID(claims)).Msg("user salt deleted")
	return nil
}
