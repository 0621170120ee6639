package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

// KeyCheckpoint holds the part of the session that must survive the provider redirect
const KeyCheckpoint = "zklogin_session"

// Metrics receives controller measurements
type Metrics interface {
	Transition(from, to string)
	ProofFetched(d time.Duration, err error)
	Submission(intent string, err error)
	StaleResult()
}

type nopMetrics struct{}

func (nopMetrics) Transition(string, string)         {}
func (nopMetrics) ProofFetched(time.Duration, error) {}
func (nopMetrics) Submission(string, error)          {}
func (nopMetrics) StaleResult()                      {}

type checkpoint struct {
	SessionID  string            `json:"session_id"`
	Epoch      *core.EpochWindow `json:"epoch,omitempty"`
	Redirected bool              `json:"redirected"`
	IDToken    string            `json:"id_token,omitempty"`
	Fatal      string            `json:"fatal,omitempty"`
}

// Deps are the collaborators of a Controller
type Deps struct {
	Credentials *CredentialStore
	Oracle      *EpochOracle
	Identity    *IdentityAcquirer
	Salts       *SaltManager
	Proofs      *ProofClient
	Tx          *TxEngine

	// Checkpoint is the session-scoped store, CheckpointTTL its expiry
	Checkpoint    ports.Store
	CheckpointTTL time.Duration
	Decoder       ports.TokenDecoder
	Events        ports.EventPublisher
	Metrics       Metrics
	Logger        zerolog.Logger
}

// Controller drives one login session through its lifecycle.
// The session is guarded by mu, which is never held across network calls.
type Controller struct {
	mu      sync.Mutex
	session core.Session
	// pending maps an in-flight stage to the generation that started it
	pending map[string]uint64

	creds    *CredentialStore
	oracle   *EpochOracle
	identity *IdentityAcquirer
	salts    *SaltManager
	proofs   *ProofClient
	tx       *TxEngine

	checkpoint    ports.Store
	checkpointTTL time.Duration
	decoder       ports.TokenDecoder
	events        ports.EventPublisher
	metrics       Metrics
	logger        zerolog.Logger

	stages []stage
}

// NewController creates a controller in the logged out state
func NewController(d Deps) *Controller {
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	c := &Controller{
		pending:       make(map[string]uint64),
		creds:         d.Credentials,
		oracle:        d.Oracle,
		identity:      d.Identity,
		salts:         d.Salts,
		proofs:        d.Proofs,
		tx:            d.Tx,
		checkpoint:    d.Checkpoint,
		checkpointTTL: d.CheckpointTTL,
		decoder:       d.Decoder,
		events:        d.Events,
		metrics:       d.Metrics,
		logger:        d.Logger.With().Str("component", "controller").Logger(),
	}
	c.stages = c.stageTable()
	return c
}

// Snapshot returns a copy of the session
func (c *Controller) Snapshot() core.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// State returns the current lifecycle state
func (c *Controller) State() core.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State()
}

// inFlight reports work started by the current generation only
func (c *Controller) inFlight(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen, ok := c.pending[name]
	return ok && gen == c.session.Generation
}

// FetchingEpoch, FetchingProof and Submitting report in-flight work of the current session
func (c *Controller) FetchingEpoch() bool { return c.inFlight(stageEpoch) }
func (c *Controller) FetchingProof() bool { return c.inFlight(stageProof) }
func (c *Controller) Submitting() bool    { return c.inFlight(stageSubmit) }

// begin marks name in flight for the current generation, taking over a mark left by an
// older generation. Caller holds mu.
func (c *Controller) begin(name string) (uint64, bool) {
	if g, busy := c.pending[name]; busy && g == c.session.Generation {
		return 0, false
	}
	c.pending[name] = c.session.Generation
	return c.session.Generation, true
}

// finish clears the in-flight mark unless a newer generation already reused it. Caller holds mu.
func (c *Controller) finish(name string, gen uint64) {
	if g, ok := c.pending[name]; ok && g == gen {
		delete(c.pending, name)
	}
}

// Login starts a fresh session: new keypair and randomness, epoch window, nonce, then the
// provider redirect. The session is checkpointed before the redirect.
func (c *Controller) Login(ctx context.Context) error {
	c.mu.Lock()
	from := c.session.State()
	gen := c.session.Generation + 1
	c.session = core.Session{ID: uuid.NewString(), Generation: gen}
	c.mu.Unlock()

	// the previous checkpoint must never be paired with the new keypair
	if err := c.checkpoint.Delete(ctx, KeyCheckpoint); err != nil {
		c.logger.Error().Err(err).Msg("failed to drop previous checkpoint")
		return err
	}

	kp, randomness, err := c.creds.Generate(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to generate credentials")
		return err
	}

	c.mu.Lock()
	if c.session.Generation != gen {
		c.mu.Unlock()
		c.metrics.StaleResult()
		return nil
	}
	c.session.KeyPair = kp
	c.session.Randomness = randomness
	snap := c.session.Clone()
	c.mu.Unlock()
	c.transitioned(ctx, from, snap)

	if err := c.Advance(ctx); err != nil {
		return err
	}
	return c.redirect(ctx, gen)
}

func (c *Controller) redirect(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if c.session.Generation != gen || c.session.State() != core.StateNonceReady {
		c.mu.Unlock()
		return nil
	}
	if err := c.identity.Transition(c.session.IdentityPhase(), core.PhaseRedirected); err != nil {
		c.mu.Unlock()
		return err
	}
	from := c.session.State()
	c.session.Redirected = true
	snap := c.session.Clone()
	c.mu.Unlock()

	if err := c.saveCheckpoint(ctx, snap); err != nil {
		return err
	}
	c.transitioned(ctx, from, snap)

	if err := c.identity.RedirectToProvider(ctx, snap.Nonce); err != nil {
		c.logger.Error().Err(err).Msg("failed to redirect to provider")
		return err
	}
	return nil
}

// FetchEpoch retries the epoch fetch after a failed Login and continues to the redirect
func (c *Controller) FetchEpoch(ctx context.Context) error {
	c.mu.Lock()
	gen := c.session.Generation
	c.mu.Unlock()

	if _, err := c.runStage(ctx, c.stages[0]); err != nil {
		return err
	}
	if err := c.Advance(ctx); err != nil {
		return err
	}
	return c.redirect(ctx, gen)
}

// Advance runs every automatic stage whose dependencies are present until none is left.
// It stops at the first failure, leaving the session at its current state.
func (c *Controller) Advance(ctx context.Context) error {
	for {
		progressed := false
		for _, st := range c.stages {
			ran, err := c.runStage(ctx, st)
			if err != nil {
				return err
			}
			progressed = progressed || ran
		}
		if !progressed {
			return nil
		}
	}
}

// runStage runs st if it is ready and not already in flight. It reports whether the
// session changed.
func (c *Controller) runStage(ctx context.Context, st stage) (bool, error) {
	c.mu.Lock()
	if c.session.Fatal != nil {
		c.mu.Unlock()
		return false, core.ErrLoginAborted
	}
	if !st.ready(&c.session) {
		c.mu.Unlock()
		return false, nil
	}
	gen, ok := c.begin(st.name)
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	snap := c.session.Clone()
	c.mu.Unlock()

	logger := c.logger.With().Str("stage", st.name).Str("session_id", snap.ID).Logger()
	commit, err := st.run(ctx, snap)

	c.mu.Lock()
	c.finish(st.name, gen)
	if c.session.Generation != gen {
		c.mu.Unlock()
		c.metrics.StaleResult()
		logger.Debug().Msg("discarding stale stage result")
		return false, nil
	}
	if err != nil {
		c.mu.Unlock()
		logger.Error().Err(err).Msg("stage failed")
		return false, err
	}
	if commit == nil || !st.ready(&c.session) {
		c.mu.Unlock()
		return false, nil
	}
	from := c.session.State()
	commit(&c.session)
	after := c.session.Clone()
	c.mu.Unlock()

	if st.output == core.SlotEpoch {
		if err := c.saveCheckpoint(ctx, after); err != nil {
			logger.Warn().Err(err).Msg("failed to checkpoint session")
		}
	}
	c.transitioned(ctx, from, after)
	return true, nil
}

// Resume consumes the provider redirect fragment. A malformed token, or one echoing a
// different nonce, aborts the login until Reset.
func (c *Controller) Resume(ctx context.Context, fragment string) error {
	c.mu.Lock()
	if c.session.Fatal != nil {
		c.mu.Unlock()
		return core.ErrLoginAborted
	}
	if err := c.identity.Transition(c.session.IdentityPhase(), core.PhaseTokenReceived); err != nil {
		c.mu.Unlock()
		return err
	}
	gen := c.session.Generation
	nonce := c.session.Nonce
	c.mu.Unlock()

	token, err := c.identity.ParseReturnedToken(fragment)
	if err == nil && token.Claims.Nonce != nonce {
		err = fmt.Errorf("%w: %w", core.ErrMalformedToken, core.ErrNonceMismatch)
	}

	c.mu.Lock()
	if c.session.Generation != gen || c.session.IdentityPhase() != core.PhaseRedirected {
		c.mu.Unlock()
		c.metrics.StaleResult()
		return nil
	}
	if err != nil {
		c.session.Fatal = err
		snap := c.session.Clone()
		c.mu.Unlock()
		c.logger.Error().Err(err).Msg("identity token rejected, reset required")
		if cpErr := c.saveCheckpoint(ctx, snap); cpErr != nil {
			c.logger.Warn().Err(cpErr).Msg("failed to checkpoint session")
		}
		return err
	}
	from := c.session.State()
	c.session.Token = token
	snap := c.session.Clone()
	c.mu.Unlock()

	if err := c.saveCheckpoint(ctx, snap); err != nil {
		c.logger.Warn().Err(err).Msg("failed to checkpoint session")
	}
	c.transitioned(ctx, from, snap)

	return c.Advance(ctx)
}

// Submit authorizes and executes intent. It is a no-op (nil, nil) while a submission is
// in flight or while any required entity is missing. Failures are never retried.
func (c *Controller) Submit(ctx context.Context, intent core.Intent) (*core.TransactionResult, error) {
	c.mu.Lock()
	if c.session.Fatal != nil {
		c.mu.Unlock()
		return nil, core.ErrLoginAborted
	}
	s := &c.session
	if !s.Has(core.SlotKeyPair) || !s.Has(core.SlotProof) || !s.Has(core.SlotToken) || !s.Has(core.SlotSalt) || !s.Has(core.SlotAddress) {
		c.mu.Unlock()
		return nil, nil
	}
	gen, ok := c.begin(stageSubmit)
	if !ok {
		c.mu.Unlock()
		c.logger.Debug().Msg("submission already in flight")
		return nil, nil
	}
	snap := c.session.Clone()
	c.mu.Unlock()

	logger := c.logger.With().Str("intent", string(intent.Kind)).Str("address", snap.Address).Logger()
	res, err := c.tx.Authorize(ctx, snap, intent)
	c.metrics.Submission(string(intent.Kind), err)

	c.mu.Lock()
	c.finish(stageSubmit, gen)
	if err != nil {
		c.mu.Unlock()
		logger.Error().Err(err).Msg("transaction failed")
		return nil, err
	}
	if res == nil {
		c.mu.Unlock()
		return nil, nil
	}
	if c.session.Generation != gen {
		c.mu.Unlock()
		c.metrics.StaleResult()
		logger.Warn().Str("digest", res.Digest).Msg("transaction executed after session reset")
		return res, nil
	}
	from := c.session.State()
	c.session.LastResult = res
	after := c.session.Clone()
	c.mu.Unlock()

	logger.Info().Str("digest", res.Digest).Msg("transaction executed")
	c.transitioned(ctx, from, after)
	return res, nil
}

// Reset returns to LoggedOut from any state, clearing every session entity and the
// session store. The persistent salt record is kept; see DeleteSalt.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	from := c.session.State()
	c.session = core.Session{Generation: c.session.Generation + 1}
	snap := c.session.Clone()
	c.mu.Unlock()

	err := errors.Join(
		c.creds.Clear(ctx),
		c.checkpoint.Delete(ctx, KeyCheckpoint),
	)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to clear session store")
	}
	c.transitioned(ctx, from, snap)
	return err
}

// DeleteSalt removes the persistent salt of the logged in identity and invalidates
// everything derived from it. Without a token it does nothing.
func (c *Controller) DeleteSalt(ctx context.Context) error {
	c.mu.Lock()
	if c.session.Token == nil {
		c.mu.Unlock()
		return nil
	}
	claims := c.session.Token.Claims
	c.mu.Unlock()

	if err := c.salts.DeleteSalt(ctx, claims); err != nil {
		return err
	}

	c.mu.Lock()
	from := c.session.State()
	c.session.Invalidate(core.SlotSalt)
	c.session.Generation++
	snap := c.session.Clone()
	c.mu.Unlock()

	c.transitioned(ctx, from, snap)
	return nil
}

// Restore rebuilds the session after a restart and advances it as far as the ledger, the
// salt vault and the prover allow. A stage failure leaves the session stalled where it is;
// only a failure to read the stores is returned. The proof is fetched again.
func (c *Controller) Restore(ctx context.Context) error {
	if err := c.Reload(ctx); err != nil {
		return err
	}
	if err := c.Advance(ctx); err != nil {
		c.logger.Warn().Err(err).Str("state", c.State().String()).Msg("restored session stalled")
	}
	return nil
}

// Reload rebuilds the session from the credential store and the checkpoint without
// running any stage. A checkpointed token that does not echo the nonce of the stored
// credentials belongs to another login, so the whole checkpoint is dropped.
func (c *Controller) Reload(ctx context.Context) error {
	kp, randomness, err := c.creds.Restore(ctx)
	if err != nil {
		return err
	}
	if kp == nil {
		return nil
	}

	restored := core.Session{ID: uuid.NewString(), KeyPair: kp, Randomness: randomness}
	cp, err := c.loadCheckpoint(ctx)
	if err != nil {
		return err
	}
	if cp != nil {
		c.applyCheckpoint(ctx, &restored, cp)
	}

	c.mu.Lock()
	from := c.session.State()
	restored.Generation = c.session.Generation + 1
	c.session = restored
	snap := c.session.Clone()
	c.mu.Unlock()

	c.logger.Info().Str("session_id", snap.ID).Str("state", snap.State().String()).Msg("session restored")
	c.transitioned(ctx, from, snap)
	return nil
}

func (c *Controller) loadCheckpoint(ctx context.Context) (*checkpoint, error) {
	raw, err := c.checkpoint.Get(ctx, KeyCheckpoint)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// applyCheckpoint copies cp into s, which already holds the stored credentials
func (c *Controller) applyCheckpoint(ctx context.Context, s *core.Session, cp *checkpoint) {
	var token *core.IdentityToken
	if cp.IDToken != "" && cp.Redirected && cp.Epoch != nil {
		tok, err := c.decoder.Decode(cp.IDToken)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping unreadable checkpointed token")
		} else {
			nonce, err := c.identity.ComputeNonce(s.KeyPair.PublicKey, cp.Epoch.Max, s.Randomness)
			if err != nil || tok.Claims.Nonce != nonce {
				c.logger.Warn().Str("session_id", cp.SessionID).Msg("checkpoint does not match stored credentials, dropping it")
				if err := c.checkpoint.Delete(ctx, KeyCheckpoint); err != nil {
					c.logger.Warn().Err(err).Msg("failed to drop checkpoint")
				}
				return
			}
			token = tok
		}
	}

	s.ID = cp.SessionID
	s.Epoch = cp.Epoch
	s.Redirected = cp.Redirected && cp.Epoch != nil
	s.Token = token
	if cp.Fatal != "" {
		s.Fatal = fmt.Errorf("%w: %s", core.ErrLoginAborted, cp.Fatal)
	}
}

func (c *Controller) saveCheckpoint(ctx context.Context, s core.Session) error {
	cp := checkpoint{SessionID: s.ID, Epoch: s.Epoch, Redirected: s.Redirected}
	if s.Token != nil {
		cp.IDToken = s.Token.Raw
	}
	if s.Fatal != nil {
		cp.Fatal = s.Fatal.Error()
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := c.checkpoint.Set(ctx, KeyCheckpoint, string(data), c.checkpointTTL); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// transitioned records and publishes a state change. Publishing failures are logged only.
func (c *Controller) transitioned(ctx context.Context, from core.State, after core.Session) {
	to := after.State()
	if from == to {
		return
	}
	c.metrics.Transition(from.String(), to.String())
	c.logger.Info().Str("session_id", after.ID).Str("from", from.String()).Str("to", to.String()).Msg("state transition")

	if c.events == nil {
		return
	}
	if err := c.events.PublishTransition(ctx, ports.NewTransitionEvent(&after, from)); err != nil {
		c.logger.Warn().Err(err).Msg("failed to publish transition")
	}
}
