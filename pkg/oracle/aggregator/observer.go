package aggregator

import "time"

// Observer receives telemetry from the engine. Implementations must never
// block or fail the aggregation path; the engine calls these inline.
type Observer interface {
	// AdapterCall reports the outcome of one live adapter fetch.
	AdapterCall(source, pair string, success bool, latency time.Duration, errKind string)

	// CacheLookup reports a cache lookup outcome: "hit", "stale_fallback",
	// "miss", "agg_hit" or "agg_miss".
	CacheLookup(result string)

	// Aggregation reports a completed aggregation.
	Aggregation(pair string, sourceCount, outlierCount int, confidence float64, duration time.Duration)

	// AggregationFailed reports a terminal aggregation failure.
	AggregationFailed(pair string, duration time.Duration)
}

// NopObserver is the default Observer; it discards everything, keeping the
// engine testable without a metrics sink.
type NopObserver struct{}

// AdapterCall implements Observer.
func (NopObserver) AdapterCall(string, string, bool, time.Duration, string) {}

// CacheLookup implements Observer.
func (NopObserver) CacheLookup(string) {}

// Aggregation implements Observer.
func (NopObserver) Aggregation(string, int, int, float64, time.Duration) {}

// AggregationFailed implements Observer.
func (NopObserver) AggregationFailed(string, time.Duration) {}
