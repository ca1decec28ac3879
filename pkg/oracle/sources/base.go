package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/aetherpay/rateoracle/pkg/logging"
)

const (
	defaultTimeout     = 3 * time.Second
	defaultMinInterval = 100 * time.Millisecond

	// breakerFailures is the consecutive-failure count that opens the breaker.
	breakerFailures = 5
	// breakerCooldown is how long an open breaker rejects calls before probing.
	breakerCooldown = 30 * time.Second
)

// BaseAdapter provides common functionality for all price source adapters:
// pair mapping, self-throttling, circuit breaking and HTTP plumbing.
type BaseAdapter struct {
	name       string
	sourcetype SourceType
	pairs      map[string]string // unified symbol -> provider-specific identifier
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	client     *http.Client
	logger     *logging.Logger
}

// NewBaseAdapter creates a new base adapter with pair mappings.
// pairs: map of unified symbol (e.g., "ETH/USDT") -> provider-specific
// identifier (token address pair, feed id, pool address).
func NewBaseAdapter(name string, sourcetype SourceType, pairs map[string]string, config map[string]interface{}) *BaseAdapter {
	timeout := GetDurationFromConfig(config, "timeout", defaultTimeout)
	minInterval := GetDurationFromConfig(config, "min_interval", defaultMinInterval)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
	})

	return &BaseAdapter{
		name:       name,
		sourcetype: sourcetype,
		pairs:      pairs,
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		breaker:    breaker,
		client:     &http.Client{Timeout: timeout},
		logger:     GetLoggerFromConfig(config),
	}
}

// Name returns the adapter name
func (b *BaseAdapter) Name() string {
	return b.name
}

// Type returns the source type
func (b *BaseAdapter) Type() SourceType {
	return b.sourcetype
}

// Timeout returns the per-call deadline for this adapter
func (b *BaseAdapter) Timeout() time.Duration {
	return b.timeout
}

// SupportsPair reports whether the adapter has a mapping for the pair
func (b *BaseAdapter) SupportsPair(pair string) bool {
	_, ok := b.pairs[pair]
	return ok
}

// ProviderSymbol converts a unified symbol to the provider-specific identifier.
func (b *BaseAdapter) ProviderSymbol(pair string) (string, error) {
	id, ok := b.pairs[pair]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", ErrUnsupportedPair, pair, b.name)
	}
	return id, nil
}

// Pairs returns the configured unified symbols.
func (b *BaseAdapter) Pairs() []string {
	symbols := make([]string, 0, len(b.pairs))
	for unified := range b.pairs {
		symbols = append(symbols, unified)
	}
	return symbols
}

// Logger returns the logger
func (b *BaseAdapter) Logger() *logging.Logger {
	return b.logger
}

// Throttle blocks until the adapter's rate limit admits one more request.
// Requests queue rather than burst, so third-party limits are respected
// even under fan-out from concurrent aggregations.
func (b *BaseAdapter) Throttle(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s throttle: %v", ErrSourceUnavailable, b.name, err)
	}
	return nil
}

// DoRequest executes an HTTP request through the circuit breaker and
// classifies transport and status failures as ErrSourceUnavailable.
func (b *BaseAdapter) DoRequest(req *http.Request) ([]byte, error) {
	body, err := b.breaker.Execute(func() (interface{}, error) {
		resp, err := b.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, b.name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: %s returned status %d", ErrSourceUnavailable, b.name, resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, b.name, err)
		}
		return data, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// A tripped breaker means the provider has been failing; report
			// it the same way as a direct failure so the aggregator treats
			// the source as down without waiting out the full timeout.
			return nil, fmt.Errorf("%w: %s circuit open", ErrSourceUnavailable, b.name)
		}
		return nil, err
	}
	return body.([]byte), nil
}

// NewQuote assembles a Quote, defaulting confidence from the source type
// when the provider did not report one.
func (b *BaseAdapter) NewQuote(pair string, price decimal.Decimal, confidence float64, meta *QuoteMetadata) Quote {
	if confidence <= 0 {
		confidence = b.sourcetype.DefaultConfidence()
	}
	if confidence > 1 {
		confidence = 1
	}
	return Quote{
		Source:     b.name,
		Pair:       pair,
		Price:      price,
		Confidence: confidence,
		Timestamp:  time.Now(),
		Metadata:   meta,
	}
}
