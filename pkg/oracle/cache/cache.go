// Package cache provides the short-TTL quote cache that fronts the adapters.
//
// The cache is fail-open: entries past the TTL but inside the retention
// horizon are still returned, tagged stale, so the aggregator can fall back
// to a recent value when a provider call fails outright.
package cache

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Cache is the quote cache contract. Values are opaque serialized bytes so
// the in-process and Redis backends behave identically.
type Cache interface {
	// Get returns the cached bytes for key. found reports whether an entry
	// exists inside the retention horizon; stale reports whether it is past
	// the TTL.
	Get(ctx context.Context, key string) (value []byte, found, stale bool)

	// Put stores value under key, resetting its age.
	Put(ctx context.Context, key string, value []byte)

	// Close releases backend resources.
	Close() error
}

// Amount bucket boundaries in USD. Cache keys quantize the notional to these
// so key cardinality stays bounded by (pair x bucket).
var bucketBounds = []int64{100, 1_000, 10_000, 100_000, 1_000_000}

// AmountBucket quantizes a notional USD amount to a coarse bucket label.
func AmountBucket(notionalUSD decimal.Decimal) string {
	for _, bound := range bucketBounds {
		if notionalUSD.LessThanOrEqual(decimal.NewFromInt(bound)) {
			return fmt.Sprintf("%d", bound)
		}
	}
	return "1000000+"
}

// QuoteKey builds the cache key for one adapter's quote.
func QuoteKey(source, pair string, notionalUSD decimal.Decimal) string {
	return fmt.Sprintf("quote:%s:%s:%s", source, pair, AmountBucket(notionalUSD))
}

// AggregateKey builds the cache key for a whole aggregated price.
func AggregateKey(pair string, notionalUSD decimal.Decimal) string {
	return fmt.Sprintf("agg:%s:%s", pair, AmountBucket(notionalUSD))
}
