// Package aggregator fans out to price source adapters and computes a
// weighted consensus price with outlier rejection.
package aggregator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/oracle/settlement"
)

// ContributedPrice is one source's contribution to a consensus price.
// Stale marks values served from the cache after a failed live fetch, so
// they never masquerade as fresh in the per-source breakdown.
type ContributedPrice struct {
	Price      decimal.Decimal `json:"price"`
	Confidence float64         `json:"confidence"`
	Stale      bool            `json:"stale,omitempty"`
}

// AggregatedPrice is the engine's output: a consensus price with a
// calibrated confidence score and a settlement recommendation.
type AggregatedPrice struct {
	Pair           string                      `json:"pair"`
	Price          decimal.Decimal             `json:"price"`
	Confidence     float64                     `json:"confidence"`
	Sources        map[string]ContributedPrice `json:"sources"`
	SourceCount    int                         `json:"source_count"`
	OutlierCount   int                         `json:"outlier_count"`
	SettlementPath *settlement.Path            `json:"settlement_path,omitempty"`
	Timestamp      time.Time                   `json:"timestamp"`
	ResponseTimeMs int64                       `json:"response_time_ms"`
}
