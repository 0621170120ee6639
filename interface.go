package zklogin

import (
	"context"

	"github.com/layer-3/zklogin/core"
)

// Client represents the public interface of a zkLogin wallet
type Client interface {
	// Login starts a new session and sends the user to the identity provider
	Login(ctx context.Context) error

	// FetchEpoch retries the epoch fetch after a failed Login
	FetchEpoch(ctx context.Context) error

	// Resume consumes the redirect fragment carrying the identity token
	Resume(ctx context.Context, fragment string) error

	// Restore rebuilds the session persisted by an earlier process and advances it.
	// Stage failures leave the session stalled and are not returned.
	Restore(ctx context.Context) error

	// Advance retries every automatic step whose inputs are present, such as a failed
	// salt resolution or proof fetch
	Advance(ctx context.Context) error

	// Status reports the session state and derived values
	Status() Status

	// Transfer sends the configured test amount to the configured recipient
	Transfer(ctx context.Context) (*core.TransactionResult, error)

	// Mint mints an NFT with the given metadata
	Mint(ctx context.Context, meta core.NFTMetadata) (*core.TransactionResult, error)

	// Balance returns the SUI balance of the zkLogin address
	Balance(ctx context.Context) (*core.Balance, error)

	// NFTs lists NFTs of the configured type owned by the zkLogin address
	NFTs(ctx context.Context, limit int) ([]core.OwnedObject, error)

	// Reset discards the session. The salt record survives.
	Reset(ctx context.Context) error

	// DeleteSalt removes the persistent salt of the logged in identity
	DeleteSalt(ctx context.Context) error

	// Close releases connections
	Close() error
}

// Status is a read-only view of the session
type Status struct {
	SessionID     string `json:"session_id,omitempty"`
	State         string `json:"state"`
	CurrentEpoch  uint64 `json:"current_epoch,omitempty"`
	MaxEpoch      uint64 `json:"max_epoch,omitempty"`
	Nonce         string `json:"nonce,omitempty"`
	Subject       string `json:"sub,omitempty"`
	Issuer        string `json:"iss,omitempty"`
	Address       string `json:"address,omitempty"`
	Faucet        string `json:"faucet,omitempty"`
	SaltPolicy    string `json:"salt_policy"`
	HasProof      bool   `json:"has_proof"`
	FetchingEpoch bool   `json:"fetching_epoch"`
	FetchingProof bool   `json:"fetching_proof"`
	Submitting    bool   `json:"submitting"`
	LastDigest    string `json:"last_digest,omitempty"`
	LastIntent    string `json:"last_intent,omitempty"`
	Error         string `json:"error,omitempty"`
}
