package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/bcs"
	"github.com/layer-3/zklogin/internal/sui"
	"github.com/layer-3/zklogin/internal/zkcrypto"
	"github.com/layer-3/zklogin/ports"
)

const (
	// DefaultRecipient receives the test transfer
	DefaultRecipient = "0x6c1aa061d0495b71eefd97e7d0a1cef0092f5c64d1b751decdc7b5ad0d039c02"
	// DefaultNFTPackage publishes the nft::mint entry function
	DefaultNFTPackage = "0x3f9cd80debc244723ecb3c9748b52be1251130cdc28de545f701c6177520a8d7"
	DefaultGasBudget  = 10_000_000
)

// TxConfig fixes the shape of the transactions the engine builds
type TxConfig struct {
	Recipient   string
	AmountMist  uint64
	GasBudget   uint64
	NFTPackage  string
	NFTModule   string
	NFTFunction string
}

// DefaultTxConfig transfers 1 SUI to the test recipient and mints with nft::mint
func DefaultTxConfig() TxConfig {
	return TxConfig{
		Recipient:   DefaultRecipient,
		AmountMist:  core.MistPerSui,
		GasBudget:   DefaultGasBudget,
		NFTPackage:  DefaultNFTPackage,
		NFTModule:   "nft",
		NFTFunction: "mint",
	}
}

// NFTType is the struct type minted by the configured package
func (c TxConfig) NFTType() string {
	return c.NFTPackage + "::" + c.NFTModule + "::NFT"
}

// SignedTransaction is BCS transaction data with the ephemeral signature over it
type SignedTransaction struct {
	Bytes     []byte
	Signature string
}

// TxEngine builds, authorizes and submits transactions for a zkLogin address
type TxEngine struct {
	gas       ports.GasSource
	executor  ports.Executor
	cfg       TxConfig
	recipient sui.Address
	nftPkg    sui.Address
	logger    zerolog.Logger
}

// NewTxEngine validates cfg. gas selects coins and executor submits.
func NewTxEngine(gas ports.GasSource, executor ports.Executor, cfg TxConfig, logger zerolog.Logger) (*TxEngine, error) {
	recipient, err := sui.ParseAddress(cfg.Recipient)
	if err != nil {
		return nil, fmt.Errorf("transfer recipient: %w", err)
	}
	pkg, err := sui.ParseAddress(cfg.NFTPackage)
	if err != nil {
		return nil, fmt.Errorf("nft package: %w", err)
	}
	if cfg.GasBudget == 0 {
		cfg.GasBudget = DefaultGasBudget
	}
	return &TxEngine{
		gas:       gas,
		executor:  executor,
		cfg:       cfg,
		recipient: recipient,
		nftPkg:    pkg,
		logger:    logger,
	}, nil
}

// BuildAndSignTransaction builds the intent's transaction with sender as sender and gas
// owner, then signs it with the ephemeral key
func (e *TxEngine) BuildAndSignTransaction(ctx context.Context, sender string, kp core.EphemeralKeyPair, intent core.Intent) (*SignedTransaction, error) {
	senderAddr, err := sui.ParseAddress(sender)
	if err != nil {
		return nil, err
	}

	b := sui.NewBuilder()
	need := e.cfg.GasBudget
	switch intent.Kind {
	case core.IntentTransfer:
		coins := b.SplitCoins(sui.GasCoin(), b.PureU64(e.cfg.AmountMist))
		b.TransferObjects(coins, b.PureAddress(e.recipient))
		need += e.cfg.AmountMist
	case core.IntentMintNFT:
		if intent.NFT == nil || intent.NFT.Name == "" {
			return nil, fmt.Errorf("mint without metadata: %w", core.ErrUnknownIntent)
		}
		b.MoveCall(e.nftPkg, e.cfg.NFTModule, e.cfg.NFTFunction,
			b.PureString(intent.NFT.Name),
			b.PureString(intent.NFT.Description),
			b.PureString(intent.NFT.ImageURL),
		)
	default:
		return nil, fmt.Errorf("%q: %w", intent.Kind, core.ErrUnknownIntent)
	}
	ptb, err := b.Build()
	if err != nil {
		return nil, err
	}

	price, err := e.gas.ReferenceGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	coins, err := e.gas.GasCoins(ctx, senderAddr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas coins: %w", err)
	}
	payment, err := selectGas(coins, need)
	if err != nil {
		return nil, err
	}

	txBytes := bcs.Marshal(sui.TransactionData{
		Sender: senderAddr,
		Kind:   ptb,
		GasData: sui.GasData{
			Payment: payment,
			Owner:   senderAddr,
			Price:   price,
			Budget:  e.cfg.GasBudget,
		},
	})
	sig, err := sui.SignTransaction(kp, txBytes)
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{Bytes: txBytes, Signature: sig}, nil
}

// DeriveAddressSeed is the seed embedded in the authorization. It shares its code path
// with address derivation, so sender and seed always agree.
func (e *TxEngine) DeriveAddressSeed(salt, claimName, claimValue, aud string) (*big.Int, error) {
	return zkcrypto.AddressSeed(salt, claimName, claimValue, aud)
}

// AssembleAuthorization combines the proof and ephemeral signature into a zkLogin signature
func (e *TxEngine) AssembleAuthorization(proof core.ZKProof, seed *big.Int, maxEpoch uint64, ephemeralSignature string) (string, error) {
	sig, err := sui.NewZkLoginSignature(proof, seed, maxEpoch, ephemeralSignature)
	if err != nil {
		return "", err
	}
	return sig.Serialize(), nil
}

// Submit executes the transaction exactly once. It never resubmits.
func (e *TxEngine) Submit(ctx context.Context, txBytes []byte, signature string) (string, error) {
	res, err := e.executor.ExecuteTransaction(ctx, txBytes, signature)
	if err != nil {
		var subErr *core.SubmissionError
		if errors.As(err, &subErr) {
			return "", subErr
		}
		return "", &core.SubmissionError{Kind: core.SubmissionNetwork, Err: err}
	}

	if local := sui.TransactionDigest(txBytes); local != res.Digest {
		e.logger.Warn().Str("local", local).Str("remote", res.Digest).Msg("transaction digest mismatch")
	}
	return res.Digest, nil
}

// Authorize runs the whole pipeline for intent. It returns nil, nil when the session
// lacks any of keypair, proof, token claims, salt or address.
func (e *TxEngine) Authorize(ctx context.Context, s core.Session, intent core.Intent) (*core.TransactionResult, error) {
	if s.KeyPair == nil || s.Proof == nil || s.Token == nil || s.Salt == "" || s.Address == "" || s.Epoch == nil {
		return nil, nil
	}

	signed, err := e.BuildAndSignTransaction(ctx, s.Address, *s.KeyPair, intent)
	if err != nil {
		return nil, buildError(err)
	}
	claims := s.Token.Claims
	seed, err := e.DeriveAddressSeed(s.Salt, KeyClaimName, claims.Subject, claims.Audience)
	if err != nil {
		return nil, buildError(err)
	}
	auth, err := e.AssembleAuthorization(*s.Proof, seed, s.Epoch.Max, signed.Signature)
	if err != nil {
		return nil, buildError(err)
	}

	digest, err := e.Submit(ctx, signed.Bytes, auth)
	if err != nil {
		return nil, err
	}
	return &core.TransactionResult{Digest: digest, Intent: intent.Kind, SubmittedAt: time.Now()}, nil
}

func buildError(err error) error {
	kind := core.SubmissionBuild
	if errors.Is(err, core.ErrInsufficientFunds) {
		kind = core.SubmissionInsufficient
	}
	return &core.SubmissionError{Kind: kind, Err: err}
}

// selectGas picks coins, largest first, until they cover need
func selectGas(coins []core.Coin, need uint64) ([]sui.ObjectRef, error) {
	sorted := slices.Clone(coins)
	slices.SortStableFunc(sorted, func(a, b core.Coin) int {
		return cmp.Compare(b.Balance, a.Balance)
	})

	var (
		refs  []sui.ObjectRef
		total uint64
	)
	for _, co := range sorted {
		if total >= need && len(refs) > 0 {
			break
		}
		id, err := sui.ParseAddress(co.ObjectID)
		if err != nil {
			return nil, err
		}
		digest, err := sui.ParseDigest(co.Digest)
		if err != nil {
			return nil, err
		}
		refs = append(refs, sui.ObjectRef{ObjectID: id, Version: co.Version, Digest: digest})
		total += co.Balance
	}
	if total < need || len(refs) == 0 {
		return nil, fmt.Errorf("have %d mist, need %d: %w", total, need, core.ErrInsufficientFunds)
	}
	return refs, nil
}
