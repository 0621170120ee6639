package ports

import (
	"context"

	"github.com/layer-3/zklogin/core"
)

// EpochReader reads the ledger's current epoch
type EpochReader interface {
	LatestEpoch(ctx context.Context) (uint64, error)
}

// GasSource provides what is needed to pay for a transaction
type GasSource interface {
	ReferenceGasPrice(ctx context.Context) (uint64, error)
	GasCoins(ctx context.Context, owner string) ([]core.Coin, error)
}

// Executor submits signed transactions
type Executor interface {
	ExecuteTransaction(ctx context.Context, txBytes []byte, signatures ...string) (*core.ExecutionResult, error)
}

// AccountReader queries account state for display. An empty structType lists every object.
type AccountReader interface {
	Balance(ctx context.Context, owner string) (*core.Balance, error)
	OwnedObjects(ctx context.Context, owner, structType string, limit int) ([]core.OwnedObject, error)
}

// Ledger is the full RPC surface used by the client
type Ledger interface {
	EpochReader
	GasSource
	Executor
	AccountReader
}
