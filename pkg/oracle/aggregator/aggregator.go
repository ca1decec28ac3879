// Package aggregator fans a price request out to every configured source
// adapter, rejects outliers, and folds the surviving quotes into one
// consensus price with a blended confidence and an attached settlement path.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/logging"
	"github.com/aetherpay/rateoracle/pkg/oracle/cache"
	"github.com/aetherpay/rateoracle/pkg/oracle/settlement"
	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

// Engine aggregates quotes across adapters. It is safe for concurrent use.
type Engine struct {
	adapters          []sources.Adapter
	cache             cache.Cache
	selector          *settlement.Selector
	weights           map[string]float64
	outlierMinSamples int
	overallTimeout    time.Duration
	observer          Observer
	logger            *logging.Logger
}

// Options configures an Engine.
type Options struct {
	Adapters          []sources.Adapter
	Cache             cache.Cache
	Selector          *settlement.Selector
	SourceWeights     map[string]float64
	OutlierMinSamples int
	OverallTimeout    time.Duration
	Observer          Observer
	Logger            *logging.Logger
}

// NewEngine builds an Engine from opts, filling unset fields with safe
// defaults.
func NewEngine(opts Options) *Engine {
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNoopLogger()
	}
	if opts.OutlierMinSamples < 3 {
		opts.OutlierMinSamples = 3
	}
	if opts.OverallTimeout <= 0 {
		opts.OverallTimeout = 5 * time.Second
	}
	if opts.Selector == nil {
		opts.Selector = settlement.NewSelector(30, 2500, opts.Logger)
	}
	if opts.SourceWeights == nil {
		opts.SourceWeights = map[string]float64{}
	}
	return &Engine{
		adapters:          opts.Adapters,
		cache:             opts.Cache,
		selector:          opts.Selector,
		weights:           opts.SourceWeights,
		outlierMinSamples: opts.OutlierMinSamples,
		overallTimeout:    opts.OverallTimeout,
		observer:          opts.Observer,
		logger:            opts.Logger,
	}
}

type fetchResult struct {
	source string
	quote  sources.Quote
	err    error
}

// GetAggregatedPrice returns the consensus price for pair at the given USD
// notional. It serves a fresh cached aggregate when one exists, otherwise it
// queries every adapter supporting the pair concurrently, falls back to
// stale cached quotes for adapters that fail, and errors only when not a
// single source produced a usable quote.
func (e *Engine) GetAggregatedPrice(ctx context.Context, pair string, notionalUSD decimal.Decimal) (*AggregatedPrice, error) {
	start := time.Now()

	if notionalUSD.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNotional, notionalUSD)
	}

	if agg := e.cachedAggregate(ctx, pair, notionalUSD); agg != nil {
		agg.ResponseTimeMs = time.Since(start).Milliseconds()
		return agg, nil
	}

	eligible := e.eligibleAdapters(pair)
	if len(eligible) == 0 {
		err := &AllSourcesFailedError{Pair: pair, Reasons: map[string]string{}}
		e.observer.AggregationFailed(pair, time.Since(start))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.overallTimeout)
	defer cancel()

	results := make(chan fetchResult, len(eligible))
	var wg sync.WaitGroup
	for _, adapter := range eligible {
		wg.Add(1)
		go func(a sources.Adapter) {
			defer wg.Done()
			quote, err := e.fetchOne(ctx, a, pair, notionalUSD)
			results <- fetchResult{source: a.Name(), quote: quote, err: err}
		}(adapter)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	quotes := make([]sources.Quote, 0, len(eligible))
	reasons := make(map[string]string)
	for res := range results {
		if res.err != nil {
			reasons[res.source] = res.err.Error()
			continue
		}
		quotes = append(quotes, res.quote)
	}

	if len(quotes) == 0 {
		e.observer.AggregationFailed(pair, time.Since(start))
		e.logger.Error("all sources failed", "pair", pair, "sources", len(eligible))
		return nil, &AllSourcesFailedError{Pair: pair, Reasons: reasons}
	}

	surviving, outliers := filterOutliers(quotes, e.outlierMinSamples)
	price := consensusPrice(surviving, e.weights)
	confidence := blendConfidence(surviving, len(eligible))

	agg := &AggregatedPrice{
		Pair:         pair,
		Price:        price,
		Confidence:   confidence,
		Sources:      make(map[string]ContributedPrice, len(surviving)),
		SourceCount:  len(surviving),
		OutlierCount: outliers,
		Timestamp:    time.Now().UTC(),
	}
	for _, q := range surviving {
		agg.Sources[q.Source] = ContributedPrice{
			Price:      q.Price,
			Confidence: q.Confidence,
			Stale:      q.Stale,
		}
	}

	agg.SettlementPath = e.selector.Select(pair, notionalUSD, confidence, surviving)

	agg.ResponseTimeMs = time.Since(start).Milliseconds()
	e.storeAggregate(ctx, pair, notionalUSD, agg)
	e.observer.Aggregation(pair, len(surviving), outliers, confidence, time.Since(start))
	e.logger.Debug("aggregated price",
		"pair", pair,
		"price", price.String(),
		"confidence", confidence,
		"sources", len(surviving),
		"outliers", outliers)

	return agg, nil
}

// GetSettlementPath returns the best settlement path for pair without
// requiring a full aggregation. It asks the routing-capable adapters for a
// live route first and degrades to the deterministic catalog fallback, so a
// valid pair always gets a path.
func (e *Engine) GetSettlementPath(ctx context.Context, pair string, notionalUSD decimal.Decimal, confidenceHint float64) (*settlement.Path, error) {
	if notionalUSD.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNotional, notionalUSD)
	}
	if confidenceHint <= 0 || confidenceHint > 1 {
		confidenceHint = 0.9
	}

	for _, adapter := range e.eligibleAdapters(pair) {
		if adapter.Type() != sources.SourceTypeDEX {
			continue
		}
		quote, err := e.fetchOne(ctx, adapter, pair, notionalUSD)
		if err != nil {
			e.logger.Debug("routing source unavailable, using fallback",
				"source", adapter.Name(), "pair", pair, "error", err.Error())
			continue
		}
		if !quote.RoutingCapable() {
			continue
		}
		return e.selector.Select(pair, notionalUSD, confidenceHint, []sources.Quote{quote}), nil
	}

	return e.selector.Fallback(pair, notionalUSD, confidenceHint), nil
}

// ComparePaths scores every catalog path for pair and returns them ranked.
func (e *Engine) ComparePaths(pair string, notionalUSD decimal.Decimal, confidence float64) []settlement.ScoredPath {
	if confidence <= 0 || confidence > 1 {
		confidence = 0.9
	}
	return e.selector.ComparePaths(pair, notionalUSD, confidence)
}

// fetchOne resolves a single adapter's quote: fresh cache hit, then a live
// fetch bounded by the adapter's timeout, then the stale cached quote as a
// last resort.
func (e *Engine) fetchOne(ctx context.Context, adapter sources.Adapter, pair string, notionalUSD decimal.Decimal) (sources.Quote, error) {
	key := cache.QuoteKey(adapter.Name(), pair, notionalUSD)

	cached, haveCached, cachedStale := e.cachedQuote(ctx, key)
	if haveCached && !cachedStale {
		e.observer.CacheLookup("hit")
		return cached, nil
	}

	fetchCtx := ctx
	if t := adapter.Timeout(); t > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	start := time.Now()
	quote, err := adapter.Fetch(fetchCtx, pair, notionalUSD)
	latency := time.Since(start)
	if err != nil {
		e.observer.AdapterCall(adapter.Name(), pair, false, latency, sources.ErrorKind(err))
		if haveCached {
			// Fail open: reuse the stale quote rather than drop the source.
			e.observer.CacheLookup("stale_fallback")
			e.logger.Warn("source failed, serving stale cached quote",
				"source", adapter.Name(), "pair", pair, "error", err.Error())
			cached.Stale = true
			return cached, nil
		}
		e.observer.CacheLookup("miss")
		return sources.Quote{}, err
	}

	e.observer.AdapterCall(adapter.Name(), pair, true, latency, "")
	e.observer.CacheLookup("miss")
	e.storeQuote(ctx, key, quote)
	return quote, nil
}

func (e *Engine) eligibleAdapters(pair string) []sources.Adapter {
	eligible := make([]sources.Adapter, 0, len(e.adapters))
	for _, a := range e.adapters {
		if a.SupportsPair(pair) {
			eligible = append(eligible, a)
		}
	}
	return eligible
}

func (e *Engine) cachedQuote(ctx context.Context, key string) (sources.Quote, bool, bool) {
	if e.cache == nil {
		return sources.Quote{}, false, false
	}
	raw, found, stale := e.cache.Get(ctx, key)
	if !found {
		return sources.Quote{}, false, false
	}
	var quote sources.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		e.logger.Warn("dropping undecodable cached quote", "key", key, "error", err.Error())
		return sources.Quote{}, false, false
	}
	return quote, true, stale
}

func (e *Engine) storeQuote(ctx context.Context, key string, quote sources.Quote) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}
	e.cache.Put(ctx, key, raw)
}

func (e *Engine) cachedAggregate(ctx context.Context, pair string, notionalUSD decimal.Decimal) *AggregatedPrice {
	if e.cache == nil {
		return nil
	}
	raw, found, stale := e.cache.Get(ctx, cache.AggregateKey(pair, notionalUSD))
	if !found || stale {
		e.observer.CacheLookup("agg_miss")
		return nil
	}
	var agg AggregatedPrice
	if err := json.Unmarshal(raw, &agg); err != nil {
		e.observer.CacheLookup("agg_miss")
		return nil
	}
	e.observer.CacheLookup("agg_hit")
	return &agg
}

func (e *Engine) storeAggregate(ctx context.Context, pair string, notionalUSD decimal.Decimal, agg *AggregatedPrice) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(agg)
	if err != nil {
		return
	}
	e.cache.Put(ctx, cache.AggregateKey(pair, notionalUSD), raw)
}
