package service

import (
	"context"
	"fmt"

	"github.com/layer-3/zklogin/core"
)

const (
	stageEpoch   = "epoch"
	stageNonce   = "nonce"
	stageSalt    = "salt"
	stageAddress = "address"
	stageProof   = "proof"
	stageSubmit  = "submit"
)

// commitFunc applies a stage result to the live session
type commitFunc func(s *core.Session)

// stage is one automatic forward transition. It runs once every slot in needs is filled
// and output is empty. run receives a snapshot and must not touch the live session.
type stage struct {
	name   string
	needs  []core.Slot
	output core.Slot
	run    func(ctx context.Context, snap core.Session) (commitFunc, error)
}

func (st stage) ready(s *core.Session) bool {
	if s.Has(st.output) {
		return false
	}
	for _, slot := range st.needs {
		if !s.Has(slot) {
			return false
		}
	}
	return true
}

// stageTable lists the automatic transitions in dependency order. Key generation, the
// provider redirect, the returned token and submission are driven by explicit calls.
func (c *Controller) stageTable() []stage {
	return []stage{
		{
			name:   stageEpoch,
			needs:  []core.Slot{core.SlotKeyPair, core.SlotRandomness},
			output: core.SlotEpoch,
			run: func(ctx context.Context, _ core.Session) (commitFunc, error) {
				window, err := c.oracle.FetchCurrentEpoch(ctx)
				if err != nil {
					return nil, err
				}
				return func(s *core.Session) { s.Epoch = &window }, nil
			},
		},
		{
			name:   stageNonce,
			needs:  []core.Slot{core.SlotKeyPair, core.SlotRandomness, core.SlotEpoch},
			output: core.SlotNonce,
			run: func(_ context.Context, snap core.Session) (commitFunc, error) {
				nonce, err := c.identity.ComputeNonce(snap.KeyPair.PublicKey, snap.Epoch.Max, snap.Randomness)
				if err != nil {
					return nil, fmt.Errorf("failed to compute nonce: %w", err)
				}
				return func(s *core.Session) { s.Nonce = nonce }, nil
			},
		},
		{
			name:   stageSalt,
			needs:  []core.Slot{core.SlotToken, core.SlotEpoch},
			output: core.SlotSalt,
			run: func(ctx context.Context, snap core.Session) (commitFunc, error) {
				salt, err := c.salts.Resolve(ctx, snap.Token.Claims, snap.Epoch.Max)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve salt: %w", err)
				}
				return func(s *core.Session) { s.Salt = salt }, nil
			},
		},
		{
			name:   stageAddress,
			needs:  []core.Slot{core.SlotToken, core.SlotSalt},
			output: core.SlotAddress,
			run: func(_ context.Context, snap core.Session) (commitFunc, error) {
				addr, err := c.salts.DeriveAddress(snap.Token.Claims, snap.Salt)
				if err != nil {
					return nil, fmt.Errorf("failed to derive address: %w", err)
				}
				return func(s *core.Session) { s.Address = addr }, nil
			},
		},
		{
			name:   stageProof,
			needs:  []core.Slot{core.SlotKeyPair, core.SlotRandomness, core.SlotEpoch, core.SlotToken, core.SlotSalt},
			output: core.SlotProof,
			run: func(ctx context.Context, snap core.Session) (commitFunc, error) {
				req, ok := c.proofs.ProofRequest(&snap)
				if !ok {
					return nil, nil
				}
				proof, elapsed, err := c.proofs.FetchProof(ctx, req)
				c.metrics.ProofFetched(elapsed, err)
				if err != nil {
					return nil, err
				}
				return func(s *core.Session) { s.Proof = proof }, nil
			},
		},
	}
}
