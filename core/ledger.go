package core

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// MistPerSui is the number of MIST in one SUI
const MistPerSui = 1_000_000_000

// Coin is a gas coin object reference with its balance
type Coin struct {
	ObjectID string
	Version  uint64
	Digest   string
	Balance  uint64
}

// Balance is the total SUI balance of an address
type Balance struct {
	Owner     string
	CoinType  string
	Objects   int
	TotalMist uint64
}

// SUI returns the balance expressed in SUI
func (b Balance) SUI() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(b.TotalMist), -9)
}

// OwnedObject is an object owned by an address
type OwnedObject struct {
	ObjectID string
	Type     string
	Display  map[string]string
}

// ExecutionResult is what the ledger reports for a submitted transaction
type ExecutionResult struct {
	Digest string
	Status string
	Error  string
}
