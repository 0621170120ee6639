package core

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullSession() Session {
	pub, priv, _ := ed25519.GenerateKey(nil)
	window := NewEpochWindow(100)
	return Session{
		ID:         "s1",
		KeyPair:    &EphemeralKeyPair{PublicKey: pub, PrivateKey: priv},
		Randomness: "42",
		Epoch:      &window,
		Nonce:      "nonce",
		Redirected: true,
		Token:      &IdentityToken{Raw: "jwt", Claims: Claims{Subject: "sub"}},
		Salt:       "7",
		Address:    "0xabc",
		Proof:      &ZKProof{HeaderBase64: "hdr"},
		LastResult: &TransactionResult{Digest: "d"},
	}
}

func TestStateFollowsFilledSlots(t *testing.T) {
	s := fullSession()
	steps := []struct {
		clear func(*Session)
		want  State
	}{
		{func(s *Session) {}, StateAuthorized},
		{func(s *Session) { s.LastResult = nil }, StateProofReady},
		{func(s *Session) { s.Proof = nil }, StateAddressDerived},
		{func(s *Session) { s.Address = "" }, StateSaltReady},
		{func(s *Session) { s.Salt = "" }, StateTokenReceived},
		{func(s *Session) { s.Token = nil }, StateAwaitingToken},
		{func(s *Session) { s.Redirected = false }, StateNonceReady},
		{func(s *Session) { s.Nonce = "" }, StateEpochFetched},
		{func(s *Session) { s.Epoch = nil }, StateKeyGenerated},
		{func(s *Session) { s.Randomness = "" }, StateLoggedOut},
	}
	for _, step := range steps {
		step.clear(&s)
		assert.Equal(t, step.want, s.State(), step.want.String())
	}
}

func TestNewEpochWindow(t *testing.T) {
	w := NewEpochWindow(7)
	assert.Equal(t, uint64(7), w.Current)
	assert.Equal(t, uint64(7+EpochWindowSize), w.Max)

	var empty Session
	assert.Zero(t, empty.MaxEpoch())
}

func TestInvalidateClearsDownstream(t *testing.T) {
	tests := []struct {
		slot    Slot
		cleared []Slot
		kept    []Slot
	}{
		{SlotSalt, []Slot{SlotSalt, SlotAddress, SlotProof, SlotResult}, []Slot{SlotToken, SlotNonce, SlotEpoch}},
		{SlotToken, []Slot{SlotToken, SlotSalt, SlotAddress, SlotProof, SlotResult}, []Slot{SlotNonce, SlotKeyPair}},
		{SlotEpoch, []Slot{SlotEpoch, SlotNonce, SlotToken, SlotSalt, SlotProof, SlotResult}, []Slot{SlotKeyPair, SlotRandomness}},
		{SlotProof, []Slot{SlotProof, SlotResult}, []Slot{SlotAddress, SlotSalt}},
		{SlotKeyPair, []Slot{SlotKeyPair, SlotNonce, SlotToken, SlotProof, SlotResult}, []Slot{SlotRandomness, SlotEpoch}},
	}
	for _, tt := range tests {
		s := fullSession()
		s.Invalidate(tt.slot)
		for _, slot := range tt.cleared {
			assert.False(t, s.Has(slot), "slot %d should be cleared after invalidating %d", slot, tt.slot)
		}
		for _, slot := range tt.kept {
			assert.True(t, s.Has(slot), "slot %d should survive invalidating %d", slot, tt.slot)
		}
	}
}

func TestInvalidateNonceClearsRedirect(t *testing.T) {
	s := fullSession()
	s.Invalidate(SlotNonce)
	assert.False(t, s.Redirected)
	assert.Equal(t, StateEpochFetched, s.State())
	assert.Equal(t, PhaseIdle, s.IdentityPhase())
}

func TestIdentityPhase(t *testing.T) {
	s := fullSession()
	assert.Equal(t, PhaseTokenReceived, s.IdentityPhase())
	s.Token = nil
	assert.Equal(t, PhaseRedirected, s.IdentityPhase())
	s.Redirected = false
	assert.Equal(t, PhaseNonceReady, s.IdentityPhase())
}

func TestSubmissionErrorUnwraps(t *testing.T) {
	err := &SubmissionError{Kind: SubmissionInsufficient, Err: ErrInsufficientFunds}
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Contains(t, err.Error(), "insufficient_funds")

	var target *SubmissionError
	assert.True(t, errors.As(error(err), &target))
}

func TestBalanceSUI(t *testing.T) {
	b := Balance{TotalMist: 2_500_000_000}
	assert.Equal(t, "2.5", b.SUI().String())
}
