package ports

import (
	"context"

	"github.com/layer-3/zklogin/core"
)

// TokenDecoder decodes an identity token into claims without verifying its signature
type TokenDecoder interface {
	Decode(raw string) (*core.IdentityToken, error)
}

// Navigator sends the user to the provider's authorization URL
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// ProofRequest carries the five inputs of a proof request
type ProofRequest struct {
	JWT                        string `json:"jwt"`
	ExtendedEphemeralPublicKey string `json:"extendedEphemeralPublicKey"`
	MaxEpoch                   uint64 `json:"maxEpoch"`
	JWTRandomness              string `json:"jwtRandomness"`
	Salt                       string `json:"salt"`
	KeyClaimName               string `json:"keyClaimName"`
}

// Prover obtains a zero-knowledge proof from the proving service
type Prover interface {
	FetchProof(ctx context.Context, req ProofRequest) (*core.ZKProof, error)
}

// SaltVault persists salt records under one storage policy
type SaltVault interface {
	Load(ctx context.Context, userID string) (*core.SaltRecord, error)
	Save(ctx context.Context, userID string, record core.SaltRecord) error
	Delete(ctx context.Context, userID string) error
	Policy() string
}
