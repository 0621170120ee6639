// Package ledger talks to a Sui full node over JSON-RPC.
package ledger

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

const (
	// SuiCoinType is the native coin
	SuiCoinType = "0x2::sui::SUI"

	executeRequestType = "WaitForLocalExecution"
	coinPageLimit      = 50
	maxCoinPages       = 10
)

// Config tunes the client
type Config struct {
	URL string
	// RPS and Burst throttle outgoing calls; zero RPS disables throttling
	RPS   float64
	Burst int
}

// SuiClient implements ports.Ledger
type SuiClient struct {
	rpc     *rpc.Client
	limiter *rate.Limiter
}

var _ ports.Ledger = (*SuiClient)(nil)

// Dial connects to a Sui full node
func Dial(ctx context.Context, cfg Config) (*SuiClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("sui rpc url: %w", core.ErrMissingConfig)
	}
	client, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial sui rpc: %w", err)
	}
	return NewSuiClient(client, cfg), nil
}

// NewSuiClient wraps an existing rpc client
func NewSuiClient(client *rpc.Client, cfg Config) *SuiClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &SuiClient{rpc: client, limiter: limiter}
}

// Close releases the underlying connection
func (c *SuiClient) Close() {
	c.rpc.Close()
}

func (c *SuiClient) call(ctx context.Context, result any, method string, args ...any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if err := c.rpc.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// LatestEpoch returns the current epoch
func (c *SuiClient) LatestEpoch(ctx context.Context) (uint64, error) {
	var state systemState
	if err := c.call(ctx, &state, "suix_getLatestSuiSystemState"); err != nil {
		return 0, err
	}
	return uint64(state.Epoch), nil
}

// ReferenceGasPrice returns the gas price for the current epoch
func (c *SuiClient) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	var price Uint64
	if err := c.call(ctx, &price, "suix_getReferenceGasPrice"); err != nil {
		return 0, err
	}
	return uint64(price), nil
}

// GasCoins lists the SUI coins owned by owner
func (c *SuiClient) GasCoins(ctx context.Context, owner string) ([]core.Coin, error) {
	var (
		coins  []core.Coin
		cursor *string
	)
	for page := 0; page < maxCoinPages; page++ {
		var resp coinPage
		if err := c.call(ctx, &resp, "suix_getCoins", owner, SuiCoinType, cursor, coinPageLimit); err != nil {
			return nil, err
		}
		for _, co := range resp.Data {
			coins = append(coins, core.Coin{
				ObjectID: co.CoinObjectID,
				Version:  uint64(co.Version),
				Digest:   co.Digest,
				Balance:  uint64(co.Balance),
			})
		}
		if !resp.HasNextPage || resp.NextCursor == nil {
			break
		}
		cursor = resp.NextCursor
	}
	return coins, nil
}

// Balance returns the total SUI balance of owner
func (c *SuiClient) Balance(ctx context.Context, owner string) (*core.Balance, error) {
	var resp balanceResponse
	if err := c.call(ctx, &resp, "suix_getBalance", owner, SuiCoinType); err != nil {
		return nil, err
	}
	return &core.Balance{
		Owner:     owner,
		CoinType:  resp.CoinType,
		Objects:   resp.CoinObjectCount,
		TotalMist: uint64(resp.TotalBalance),
	}, nil
}

// OwnedObjects lists up to limit objects of structType owned by owner with their display metadata
func (c *SuiClient) OwnedObjects(ctx context.Context, owner, structType string, limit int) ([]core.OwnedObject, error) {
	query := objectResponseQuery{Options: objectOptions{ShowType: true, ShowDisplay: true}}
	if structType != "" {
		query.Filter = map[string]string{"StructType": structType}
	}

	var resp objectPage
	if err := c.call(ctx, &resp, "suix_getOwnedObjects", owner, query, nil, limit); err != nil {
		return nil, err
	}
	objects := make([]core.OwnedObject, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.Data == nil {
			continue
		}
		obj := core.OwnedObject{ObjectID: item.Data.ObjectID, Type: item.Data.Type}
		if item.Data.Display != nil {
			obj.Display = item.Data.Display.Data
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// ExecuteTransaction submits signed transaction bytes. Failures are returned as
// *core.SubmissionError.
func (c *SuiClient) ExecuteTransaction(ctx context.Context, txBytes []byte, signatures ...string) (*core.ExecutionResult, error) {
	var resp executeResponse
	err := c.call(ctx, &resp, "sui_executeTransactionBlock",
		base64.StdEncoding.EncodeToString(txBytes),
		signatures,
		executeOptions{ShowEffects: true},
		executeRequestType,
	)
	if err != nil {
		return nil, classify(err)
	}

	result := &core.ExecutionResult{Digest: resp.Digest, Status: "success"}
	if resp.Effects != nil {
		result.Status = resp.Effects.Status.Status
		result.Error = resp.Effects.Status.Error
	}
	if result.Status != "success" {
		kind := core.SubmissionRejected
		if isInsufficient(result.Error) {
			kind = core.SubmissionInsufficient
		}
		return result, &core.SubmissionError{
			Kind: kind,
			Err:  fmt.Errorf("transaction %s failed: %s", result.Digest, result.Error),
		}
	}
	return result, nil
}

// classify maps an rpc failure to a submission kind. Errors carrying a JSON-RPC error
// code came from the node; everything else never reached it.
func classify(err error) error {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return &core.SubmissionError{Kind: core.SubmissionNetwork, Err: err}
	}
	if isInsufficient(rpcErr.Error()) {
		return &core.SubmissionError{Kind: core.SubmissionInsufficient, Err: errors.Join(core.ErrInsufficientFunds, err)}
	}
	return &core.SubmissionError{Kind: core.SubmissionRejected, Err: err}
}

func isInsufficient(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "insufficient") || strings.Contains(msg, "balance of gas object")
}
