package sources

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SourceType represents the kind of price source behind an adapter
type SourceType string

const (
	// SourceTypeDEX is a DEX aggregator backed by real executable liquidity.
	SourceTypeDEX SourceType = "dex"
	// SourceTypeFeed is an on-chain or publisher-signed oracle feed.
	SourceTypeFeed SourceType = "feed"
	// SourceTypeAMM is a raw AMM pool read.
	SourceTypeAMM SourceType = "amm"
	// SourceTypePredictor is a statistical prediction service.
	SourceTypePredictor SourceType = "predictor"
)

// DefaultConfidence returns the static prior confidence for a source type.
// DEX aggregator quotes are backed by real liquidity and score highest, a
// purely statistical predictor scores lowest.
func (t SourceType) DefaultConfidence() float64 {
	switch t {
	case SourceTypeDEX:
		return 0.95
	case SourceTypeFeed:
		return 0.90
	case SourceTypeAMM:
		return 0.85
	case SourceTypePredictor:
		return 0.70
	default:
		return 0.70
	}
}

// Quote is one provider's answer to "what is the price of pair P for
// notional amount A". Immutable once created.
type Quote struct {
	Source     string          `json:"source"`
	Pair       string          `json:"pair"`
	Price      decimal.Decimal `json:"price"`
	Confidence float64         `json:"confidence"`
	Timestamp  time.Time       `json:"timestamp"`
	Stale      bool            `json:"stale,omitempty"`
	Metadata   *QuoteMetadata  `json:"metadata,omitempty"`
}

// QuoteMetadata carries adapter-specific extras. Opaque to the aggregator
// except for the routing fields read by the settlement path selector.
type QuoteMetadata struct {
	Protocols   []string `json:"protocols,omitempty"`    // Hop sequence for routing-capable quotes
	GasEstimate uint64   `json:"gas_estimate,omitempty"` // Estimated gas units for the route
	AgeSeconds  float64  `json:"age_seconds,omitempty"`  // Staleness of on-chain data at fetch time
	Detail      string   `json:"detail,omitempty"`       // Free-form provider detail (model version, pool, feed id)
}

// RoutingCapable reports whether the quote carries real executable route data.
func (q Quote) RoutingCapable() bool {
	return q.Metadata != nil && len(q.Metadata.Protocols) > 0
}

// Adapter is the interface every price source adapter implements.
// Fetch returns a quote for the pair at the given USD notional, or an error
// from the taxonomy in errors.go.
type Adapter interface {
	// Fetch retrieves a fresh quote. The context carries the per-adapter
	// deadline; adapters must respect it and their own rate limit.
	Fetch(ctx context.Context, pair string, notionalUSD decimal.Decimal) (Quote, error)

	// Name returns the unique name of this adapter
	Name() string

	// Type returns the source type of this adapter
	Type() SourceType

	// SupportsPair reports whether the adapter has a provider mapping for the pair
	SupportsPair(pair string) bool

	// Timeout returns the per-call deadline for this adapter
	Timeout() time.Duration
}

// Factory is a function that creates a new Adapter instance
type Factory func(config map[string]interface{}) (Adapter, error)
