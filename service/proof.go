package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/zkcrypto"
	"github.com/layer-3/zklogin/ports"
)

// KeyClaimName is the claim the address is bound to
const KeyClaimName = "sub"

// ProofClient obtains the zkLogin proof for a session
type ProofClient struct {
	prover ports.Prover
	logger zerolog.Logger
}

// NewProofClient wraps prover
func NewProofClient(prover ports.Prover, logger zerolog.Logger) *ProofClient {
	return &ProofClient{prover: prover, logger: logger}
}

// ComputeExtendedPublicKey encodes the ephemeral public key for the prover
func (p *ProofClient) ComputeExtendedPublicKey(kp core.EphemeralKeyPair) string {
	return zkcrypto.ExtendedPublicKey(kp.PublicKey)
}

// ProofRequest builds the request from the session. ok is false while any of the
// five inputs is missing.
func (p *ProofClient) ProofRequest(s *core.Session) (req ports.ProofRequest, ok bool) {
	if s.Token == nil || s.KeyPair == nil || s.Epoch == nil || s.Randomness == "" || s.Salt == "" {
		return ports.ProofRequest{}, false
	}
	return ports.ProofRequest{
		JWT:                        s.Token.Raw,
		ExtendedEphemeralPublicKey: p.ComputeExtendedPublicKey(*s.KeyPair),
		MaxEpoch:                   s.Epoch.Max,
		JWTRandomness:              s.Randomness,
		Salt:                       s.Salt,
		KeyClaimName:               KeyClaimName,
	}, true
}

// FetchProof calls the proving service once. Failures are logged and returned; the
// call is safe to retry with the same inputs.
func (p *ProofClient) FetchProof(ctx context.Context, req ports.ProofRequest) (*core.ZKProof, time.Duration, error) {
	start := time.Now()
	proof, err := p.prover.FetchProof(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		p.logger.Error().Err(err).Dur("elapsed", elapsed).Msg("proof request failed")
		return nil, elapsed, err
	}
	p.logger.Info().Dur("elapsed", elapsed).Uint64("max_epoch", req.MaxEpoch).Msg("proof received")
	return proof, elapsed, nil
}
