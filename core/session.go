package core

import (
	"crypto/ed25519"
	"time"
)

// EpochWindowSize is the number of epochs an ephemeral credential stays valid for
const EpochWindowSize = 10

// EphemeralKeyPair is the short-lived signing key of a login session
type EphemeralKeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// EpochWindow holds the epoch observed at credential generation and the last valid epoch
type EpochWindow struct {
	Current uint64 `json:"current"`
	Max     uint64 `json:"max"`
}

// NewEpochWindow returns the validity window starting at current
func NewEpochWindow(current uint64) EpochWindow {
	return EpochWindow{Current: current, Max: current + EpochWindowSize}
}

// Claims are the identity token claims used locally
type Claims struct {
	Issuer    string
	Subject   string
	Audience  string
	Nonce     string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// IdentityToken is the token returned by the OAuth provider
type IdentityToken struct {
	Raw    string
	Claims Claims
}

// ProofPoints are the Groth16 proof points as decimal strings
type ProofPoints struct {
	A []string   `json:"a"`
	B [][]string `json:"b"`
	C []string   `json:"c"`
}

// IssBase64Details locates the issuer claim inside the token payload
type IssBase64Details struct {
	Value     string `json:"value"`
	IndexMod4 uint8  `json:"indexMod4"`
}

// ZKProof is the proving service response, consumed as-is when signing
type ZKProof struct {
	ProofPoints      ProofPoints      `json:"proofPoints"`
	IssBase64Details IssBase64Details `json:"issBase64Details"`
	HeaderBase64     string           `json:"headerBase64"`
}

// TransactionResult is the outcome of one submission
type TransactionResult struct {
	Digest      string
	Intent      IntentKind
	SubmittedAt time.Time
}

// SaltRecord is the long-lived per-identity record
type SaltRecord struct {
	UserSalt string `json:"user_salt"`
	MaxEpoch uint64 `json:"max_epoch"`
}

// Session owns every entity of one login. State is derived from which slots are filled.
type Session struct {
	ID         string
	Generation uint64

	KeyPair    *EphemeralKeyPair
	Randomness string
	Epoch      *EpochWindow
	Nonce      string
	Redirected bool
	Token      *IdentityToken
	Salt       string
	Address    string
	Proof      *ZKProof
	LastResult *TransactionResult

	// Fatal blocks the login until reset
	Fatal error
}

// State reports the lifecycle state implied by the filled slots
func (s *Session) State() State {
	switch {
	case s.KeyPair == nil || s.Randomness == "":
		return StateLoggedOut
	case s.Epoch == nil:
		return StateKeyGenerated
	case s.Nonce == "":
		return StateEpochFetched
	case !s.Redirected:
		return StateNonceReady
	case s.Token == nil:
		return StateAwaitingToken
	case s.Salt == "":
		return StateTokenReceived
	case s.Address == "":
		return StateSaltReady
	case s.Proof == nil:
		return StateAddressDerived
	case s.LastResult == nil:
		return StateProofReady
	default:
		return StateAuthorized
	}
}

// MaxEpoch returns the recorded max epoch or zero
func (s *Session) MaxEpoch() uint64 {
	if s.Epoch == nil {
		return 0
	}
	return s.Epoch.Max
}

// Clone returns a shallow copy safe to read without the owner's lock.
// Slot values are never mutated in place, only replaced.
func (s *Session) Clone() Session {
	return *s
}

// Has reports whether slot is filled
func (s *Session) Has(slot Slot) bool {
	switch slot {
	case SlotKeyPair:
		return s.KeyPair != nil
	case SlotRandomness:
		return s.Randomness != ""
	case SlotEpoch:
		return s.Epoch != nil
	case SlotNonce:
		return s.Nonce != ""
	case SlotToken:
		return s.Token != nil
	case SlotSalt:
		return s.Salt != ""
	case SlotAddress:
		return s.Address != ""
	case SlotProof:
		return s.Proof != nil
	case SlotResult:
		return s.LastResult != nil
	}
	return false
}

// Invalidate clears slot and everything downstream of it
func (s *Session) Invalidate(slot Slot) {
	for _, dep := range slot.downstream() {
		s.clear(dep)
	}
}

func (s *Session) clear(slot Slot) {
	switch slot {
	case SlotKeyPair:
		s.KeyPair = nil
	case SlotRandomness:
		s.Randomness = ""
	case SlotEpoch:
		s.Epoch = nil
	case SlotNonce:
		s.Nonce = ""
		s.Redirected = false
	case SlotToken:
		s.Token = nil
	case SlotSalt:
		s.Salt = ""
	case SlotAddress:
		s.Address = ""
	case SlotProof:
		s.Proof = nil
	case SlotResult:
		s.LastResult = nil
	}
}
