package service

import (
	"context"
	"fmt"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

// EpochOracle turns the ledger's current epoch into a credential validity window
type EpochOracle struct {
	reader ports.EpochReader
}

// NewEpochOracle reads epochs from reader
func NewEpochOracle(reader ports.EpochReader) *EpochOracle {
	return &EpochOracle{reader: reader}
}

// FetchCurrentEpoch returns {current, current+10}. Errors are not retried.
func (o *EpochOracle) FetchCurrentEpoch(ctx context.Context) (core.EpochWindow, error) {
	epoch, err := o.reader.LatestEpoch(ctx)
	if err != nil {
		return core.EpochWindow{}, fmt.Errorf("failed to fetch current epoch: %w", err)
	}
	return core.NewEpochWindow(epoch), nil
}
