package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/zklogin/adapters/idtoken"
	"github.com/layer-3/zklogin/adapters/salt"
	"github.com/layer-3/zklogin/adapters/store"
	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

const (
	testIssuer   = "https://accounts.example.com"
	testSubject  = "1234567890"
	testAudience = "client-abc"
	testDigest   = "11111111111111111111111111111111"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) LatestEpoch(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockLedger) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockLedger) GasCoins(ctx context.Context, owner string) ([]core.Coin, error) {
	args := m.Called(ctx, owner)
	coins, _ := args.Get(0).([]core.Coin)
	return coins, args.Error(1)
}

func (m *mockLedger) ExecuteTransaction(ctx context.Context, txBytes []byte, signatures ...string) (*core.ExecutionResult, error) {
	args := m.Called(ctx, txBytes, signatures)
	res, _ := args.Get(0).(*core.ExecutionResult)
	return res, args.Error(1)
}

type mockProver struct {
	mock.Mock
}

func (m *mockProver) FetchProof(ctx context.Context, req ports.ProofRequest) (*core.ZKProof, error) {
	args := m.Called(ctx, req)
	proof, _ := args.Get(0).(*core.ZKProof)
	return proof, args.Error(1)
}

type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *recordingNavigator) Navigate(_ context.Context, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	return nil
}

func (n *recordingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urls) == 0 {
		return ""
	}
	return n.urls[len(n.urls)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.TransitionEvent
}

func (p *recordingPublisher) PublishTransition(_ context.Context, ev ports.TransitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) targets() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.To
	}
	return out
}

func testProof() *core.ZKProof {
	return &core.ZKProof{
		ProofPoints: core.ProofPoints{
			A: []string{"1", "2", "1"},
			B: [][]string{{"3", "4"}, {"5", "6"}, {"1", "0"}},
			C: []string{"7", "8", "1"},
		},
		IssBase64Details: core.IssBase64Details{Value: "iss", IndexMod4: 1},
		HeaderBase64:     "hdr",
	}
}

func signedIDToken(t *testing.T, nonce string) string {
	claims := idtoken.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   testSubject,
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Nonce: nonce,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("provider"))
	require.NoError(t, err)
	return tok
}

type fixture struct {
	ledger    *mockLedger
	prover    *mockProver
	nav       *recordingNavigator
	events    *recordingPublisher
	session   ports.Store
	saltStore ports.Store
	salts     *SaltManager
	ctrl      *Controller
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		ledger:    &mockLedger{},
		prover:    &mockProver{},
		nav:       &recordingNavigator{},
		events:    &recordingPublisher{},
		session:   store.NewMemoryStore(),
		saltStore: store.NewMemoryStore(),
	}
	f.ctrl = f.build(t)
	return f
}

// build wires a controller on the fixture's stores, as a restarted process would
func (f *fixture) build(t *testing.T) *Controller {
	logger := zerolog.Nop()
	decoder := idtoken.NewJWTDecoder()

	identity, err := NewIdentityAcquirer(ProviderConfig{
		AuthURL:     "https://accounts.example.com/o/oauth2/v2/auth",
		ClientID:    testAudience,
		RedirectURI: "http://127.0.0.1:5173/",
	}, decoder, f.nav)
	require.NoError(t, err)

	tx, err := NewTxEngine(f.ledger, f.ledger, DefaultTxConfig(), logger)
	require.NoError(t, err)

	f.salts = NewSaltManager(salt.NewPlaintextVault(f.saltStore), logger)

	return NewController(Deps{
		Credentials: NewCredentialStore(f.session, time.Hour),
		Oracle:      NewEpochOracle(f.ledger),
		Identity:    identity,
		Salts:       f.salts,
		Proofs:      NewProofClient(f.prover, logger),
		Tx:          tx,
		Checkpoint:  f.session,
		Decoder:     decoder,
		Events:      f.events,
		Logger:      logger,
	})
}

// fragment returns a redirect fragment carrying a token for the controller's nonce
func (f *fixture) fragment(t *testing.T) string {
	return "id_token=" + signedIDToken(t, f.ctrl.Snapshot().Nonce) + "&authuser=0"
}

func (f *fixture) expectGas() {
	f.ledger.On("ReferenceGasPrice", mock.Anything).Return(uint64(750), nil)
	f.ledger.On("GasCoins", mock.Anything, mock.Anything).Return([]core.Coin{
		{ObjectID: "0x5", Version: 3, Digest: testDigest, Balance: 5 * core.MistPerSui},
	}, nil)
}
