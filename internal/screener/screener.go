// Package screener pins the wallet risk-screening contract. The stub
// backend returns a fixed placeholder profile per address; it exists so the
// request/response shape is stable before a real scoring provider lands.
package screener

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dropaudit/internal/extract"
	"github.com/sells-group/dropaudit/internal/model"
)

// Batch size bounds for one screening request.
const (
	MinBatchSize = 1
	MaxBatchSize = 50
)

// DefaultChainID is Ethereum mainnet.
const DefaultChainID = 1

// Screener scores wallet addresses in batches.
type Screener interface {
	ScreenBatch(ctx context.Context, addresses []string, chainID int) ([]model.ScreenResult, error)
	Status() Status
}

// Status describes the active screening backend.
type Status struct {
	Provider    string `json:"provider"`
	Operational bool   `json:"operational"`
	Note        string `json:"note,omitempty"`
}

// Stub is the placeholder backend. Do not mistake it for a risk engine:
// every address comes back unscored-low with zeroed metrics.
type Stub struct{}

// NewStub creates the placeholder screening backend.
func NewStub() *Stub {
	return &Stub{}
}

// ScreenBatch validates the batch bounds and address formats, then returns
// one placeholder result per address.
func (s *Stub) ScreenBatch(ctx context.Context, addresses []string, chainID int) ([]model.ScreenResult, error) {
	if len(addresses) < MinBatchSize || len(addresses) > MaxBatchSize {
		return nil, eris.Errorf("screener: batch size %d outside [%d, %d]", len(addresses), MinBatchSize, MaxBatchSize)
	}
	if chainID == 0 {
		chainID = DefaultChainID
	}

	results := make([]model.ScreenResult, 0, len(addresses))
	for _, addr := range addresses {
		if !extract.IsValidAddress(addr) {
			return nil, eris.Errorf("screener: invalid address %q", addr)
		}
		results = append(results, model.ScreenResult{
			Address: addr,
			ChainID: chainID,
			Risk:    model.RiskLow,
			Labels:  []string{"unscored"},
			Flags:   []string{},
			Metrics: model.ScreenMetrics{Score: 0},
		})
	}
	return results, nil
}

// Status reports the stub backend.
func (s *Stub) Status() Status {
	return Status{
		Provider:    "stub",
		Operational: true,
		Note:        "placeholder risk profiles; scoring backend not wired",
	}
}
