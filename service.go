// Package zklogin wires the zkLogin controller to its ledger, prover, stores and event
// sink from a config.Config.
package zklogin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/layer-3/zklogin/adapters/events"
	"github.com/layer-3/zklogin/adapters/idtoken"
	"github.com/layer-3/zklogin/adapters/ledger"
	"github.com/layer-3/zklogin/adapters/navigator"
	"github.com/layer-3/zklogin/adapters/prover"
	"github.com/layer-3/zklogin/adapters/salt"
	"github.com/layer-3/zklogin/adapters/store"
	"github.com/layer-3/zklogin/config"
	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/metrics"
	"github.com/layer-3/zklogin/ports"
	"github.com/layer-3/zklogin/service"
)

type options struct {
	ledger       ports.Ledger
	prover       ports.Prover
	navigator    ports.Navigator
	publisher    message.Publisher
	sessionStore ports.Store
	saltStore    ports.Store
	passphrase   salt.PassphraseFunc
	logger       *zerolog.Logger
	metrics      *metrics.Recorder
}

// Option overrides one collaborator built from the config
type Option func(*options)

// WithLedger replaces the Sui RPC client
func WithLedger(l ports.Ledger) Option { return func(o *options) { o.ledger = l } }

// WithProver replaces the proving service client
func WithProver(p ports.Prover) Option { return func(o *options) { o.prover = p } }

// WithNavigator replaces the console navigator
func WithNavigator(n ports.Navigator) Option { return func(o *options) { o.navigator = n } }

// WithPublisher publishes transitions on p instead of the configured backend
func WithPublisher(p message.Publisher) Option { return func(o *options) { o.publisher = p } }

// WithSessionStore replaces the local file store
func WithSessionStore(s ports.Store) Option { return func(o *options) { o.sessionStore = s } }

// WithSaltStore replaces the redis salt store of the encrypted policy
func WithSaltStore(s ports.Store) Option { return func(o *options) { o.saltStore = s } }

// WithPassphrase supplies the salt passphrase when none is configured
func WithPassphrase(f salt.PassphraseFunc) Option { return func(o *options) { o.passphrase = f } }

// WithMetrics shares a recorder between services
func WithMetrics(r *metrics.Recorder) Option { return func(o *options) { o.metrics = r } }

// WithLogger replaces the configured logger
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = &l } }

// Service implements Client
type Service struct {
	ctrl    *service.Controller
	ledger  ports.Ledger
	salts   *service.SaltManager
	tx      service.TxConfig
	faucet  string
	metrics *metrics.Recorder
	logger  zerolog.Logger
	closers []func() error
}

var _ Client = (*Service)(nil)

// New builds a Service. The session starts logged out; call Restore to pick up a
// session persisted by an earlier process.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config: %w", core.ErrMissingConfig)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{}
	if o.logger != nil {
		s.logger = *o.logger
	} else {
		s.logger = cfg.Log.Logger()
	}
	s.metrics = o.metrics
	if s.metrics == nil {
		s.metrics = metrics.NewRecorder()
	}

	if err := s.wire(ctx, cfg, &o); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) wire(ctx context.Context, cfg *config.Config, o *options) error {
	var rdb *redis.Client
	redisClient := func() (*redis.Client, error) {
		if rdb != nil {
			return rdb, nil
		}
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		s.closers = append(s.closers, rdb.Close)
		return rdb, nil
	}

	if o.ledger == nil {
		client, err := ledger.Dial(ctx, ledger.Config{URL: cfg.Sui.RPCURL, RPS: cfg.Sui.RPS, Burst: cfg.Sui.Burst})
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() error { client.Close(); return nil })
		o.ledger = client
	}
	s.ledger = o.ledger

	if o.prover == nil {
		p, err := prover.NewHTTPProver(cfg.Prover.URL, cfg.Prover.Timeout)
		if err != nil {
			return err
		}
		o.prover = p
	}

	if o.navigator == nil {
		o.navigator = navigator.NewConsole(os.Stdout, s.logger)
	}

	if o.sessionStore == nil {
		fs, err := store.NewFileStore(cfg.Store.Dir, cfg.Store.Password)
		if err != nil {
			return err
		}
		o.sessionStore = fs
	}

	var vault ports.SaltVault
	switch cfg.Salt.Policy {
	case salt.PolicyPlaintext:
		if o.saltStore == nil {
			o.saltStore = o.sessionStore
		}
		vault = salt.NewPlaintextVault(o.saltStore)
	case salt.PolicyEncrypted:
		if o.saltStore == nil {
			client, err := redisClient()
			if err != nil {
				return err
			}
			o.saltStore = store.NewRedisStore(client, cfg.Redis.Prefix)
		}
		if o.passphrase == nil {
			if cfg.Salt.Passphrase == "" {
				return fmt.Errorf("salt passphrase: %w", core.ErrMissingConfig)
			}
			o.passphrase = salt.StaticPassphrase(cfg.Salt.Passphrase)
		}
		vault = salt.NewEncryptedVault(o.saltStore, o.passphrase)
	default:
		return fmt.Errorf("salt policy %q: %w", cfg.Salt.Policy, core.ErrMissingConfig)
	}

	if o.publisher == nil {
		wlog := watermill.NewStdLogger(false, false)
		switch cfg.Events.Backend {
		case "gochannel":
			ch := gochannel.NewGoChannel(gochannel.Config{}, wlog)
			s.closers = append(s.closers, ch.Close)
			o.publisher = ch
		case "redis":
			client, err := redisClient()
			if err != nil {
				return err
			}
			pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wlog)
			if err != nil {
				return fmt.Errorf("failed to create redis publisher: %w", err)
			}
			s.closers = append(s.closers, pub.Close)
			o.publisher = pub
		}
	}
	var publisher ports.EventPublisher = events.NopPublisher{}
	if o.publisher != nil {
		publisher = events.NewWatermillPublisher(o.publisher, cfg.Events.Topic)
	}

	decoder := idtoken.NewJWTDecoder()
	identity, err := service.NewIdentityAcquirer(service.ProviderConfig{
		AuthURL:     cfg.Provider.AuthURL,
		ClientID:    cfg.Provider.ClientID,
		RedirectURI: cfg.Provider.RedirectURI,
	}, decoder, o.navigator)
	if err != nil {
		return err
	}

	s.tx = service.TxConfig{
		Recipient:   cfg.Tx.Recipient,
		AmountMist:  cfg.Tx.AmountMist,
		GasBudget:   cfg.Tx.GasBudget,
		NFTPackage:  cfg.Tx.NFTPackage,
		NFTModule:   cfg.Tx.NFTModule,
		NFTFunction: cfg.Tx.NFTFunction,
	}
	s.faucet = cfg.Sui.FaucetURL
	engine, err := service.NewTxEngine(o.ledger, o.ledger, s.tx, s.logger)
	if err != nil {
		return err
	}

	s.salts = service.NewSaltManager(vault, s.logger)
	s.ctrl = service.NewController(service.Deps{
		Credentials:   service.NewCredentialStore(o.sessionStore, cfg.Store.SessionTTL),
		Oracle:        service.NewEpochOracle(o.ledger),
		Identity:      identity,
		Salts:         s.salts,
		Proofs:        service.NewProofClient(o.prover, s.logger),
		Tx:            engine,
		Checkpoint:    o.sessionStore,
		CheckpointTTL: cfg.Store.SessionTTL,
		Decoder:       decoder,
		Events:        publisher,
		Metrics:       s.metrics,
		Logger:        s.logger,
	})
	return nil
}

// Login, FetchEpoch, Restore, Advance, Reset and DeleteSalt delegate to the controller
func (s *Service) Login(ctx context.Context) error      { return s.ctrl.Login(ctx) }
func (s *Service) FetchEpoch(ctx context.Context) error { return s.ctrl.FetchEpoch(ctx) }
func (s *Service) Restore(ctx context.Context) error    { return s.ctrl.Restore(ctx) }
func (s *Service) Advance(ctx context.Context) error    { return s.ctrl.Advance(ctx) }

// Reload picks up a persisted session without running any stage
func (s *Service) Reload(ctx context.Context) error { return s.ctrl.Reload(ctx) }
func (s *Service) Reset(ctx context.Context) error      { return s.ctrl.Reset(ctx) }
func (s *Service) DeleteSalt(ctx context.Context) error { return s.ctrl.DeleteSalt(ctx) }

// Resume consumes the provider redirect fragment
func (s *Service) Resume(ctx context.Context, fragment string) error {
	return s.ctrl.Resume(ctx, fragment)
}

// Transfer sends the configured test amount
func (s *Service) Transfer(ctx context.Context) (*core.TransactionResult, error) {
	return s.ctrl.Submit(ctx, core.TransferIntent())
}

// Mint mints an NFT with meta
func (s *Service) Mint(ctx context.Context, meta core.NFTMetadata) (*core.TransactionResult, error) {
	return s.ctrl.Submit(ctx, core.MintIntent(meta))
}

// Status snapshots the session together with the controller's in-flight flags
func (s *Service) Status() Status {
	snap := s.ctrl.Snapshot()
	st := Status{
		SessionID:     snap.ID,
		State:         snap.State().String(),
		MaxEpoch:      snap.MaxEpoch(),
		Nonce:         snap.Nonce,
		Address:       snap.Address,
		SaltPolicy:    s.salts.Policy(),
		HasProof:      snap.Proof != nil,
		FetchingEpoch: s.ctrl.FetchingEpoch(),
		FetchingProof: s.ctrl.FetchingProof(),
		Submitting:    s.ctrl.Submitting(),
	}
	if snap.Epoch != nil {
		st.CurrentEpoch = snap.Epoch.Current
	}
	if snap.Token != nil {
		st.Subject = snap.Token.Claims.Subject
		st.Issuer = snap.Token.Claims.Issuer
	}
	if snap.LastResult != nil {
		st.LastDigest = snap.LastResult.Digest
		st.LastIntent = string(snap.LastResult.Intent)
	}
	if snap.Fatal != nil {
		st.Error = snap.Fatal.Error()
	}
	if snap.Address != "" {
		st.Faucet = s.faucet
	}
	return st
}

// Balance returns nil, nil before an address is derived
func (s *Service) Balance(ctx context.Context) (*core.Balance, error) {
	addr := s.ctrl.Snapshot().Address
	if addr == "" {
		return nil, nil
	}
	return s.ledger.Balance(ctx, addr)
}

// NFTs returns nil, nil before an address is derived
func (s *Service) NFTs(ctx context.Context, limit int) ([]core.OwnedObject, error) {
	addr := s.ctrl.Snapshot().Address
	if addr == "" {
		return nil, nil
	}
	return s.ledger.OwnedObjects(ctx, addr, s.tx.NFTType(), limit)
}

// MetricsHandler serves the controller metrics
func (s *Service) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

// Close releases every connection opened by New
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
