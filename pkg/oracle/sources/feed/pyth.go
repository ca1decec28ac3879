package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

const (
	pythBaseURL = "https://hermes.pyth.network"
	// pythFreshBound is the publish age beyond which confidence decays.
	// Pyth publishes sub-second, so anything past a minute is suspect.
	pythFreshBound = 1 * time.Minute
	// pythStaleCutoff is the publish age beyond which data is rejected.
	pythStaleCutoff = 10 * time.Minute
)

// PythAdapter fetches publisher-aggregated prices from the Pyth Hermes API.
// The reported confidence interval is folded into the quote confidence: a
// wide interval relative to price lowers it below the source-type default.
type PythAdapter struct {
	*sources.BaseAdapter
	apiURL      string
	freshBound  time.Duration
	staleCutoff time.Duration
}

// NewPythAdapter creates a new Pyth adapter.
// pairs map unified symbols to Pyth price feed ids.
func NewPythAdapter(config map[string]interface{}) (sources.Adapter, error) {
	pairs, err := sources.ParsePairsFromMap(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	return &PythAdapter{
		BaseAdapter: sources.NewBaseAdapter("pyth", sources.SourceTypeFeed, pairs, config),
		apiURL:      sources.GetStringFromConfig(config, "base_url", pythBaseURL),
		freshBound:  sources.GetDurationFromConfig(config, "fresh_bound", pythFreshBound),
		staleCutoff: sources.GetDurationFromConfig(config, "stale_cutoff", pythStaleCutoff),
	}, nil
}

// Fetch retrieves the latest published price for the pair's feed id.
func (a *PythAdapter) Fetch(ctx context.Context, pair string, _ decimal.Decimal) (sources.Quote, error) {
	feedID, err := a.ProviderSymbol(pair)
	if err != nil {
		return sources.Quote{}, err
	}

	if err := a.Throttle(ctx); err != nil {
		return sources.Quote{}, err
	}

	q := url.Values{}
	q.Set("ids[]", feedID)

	endpoint := a.apiURL + "/v2/updates/price/latest?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return sources.Quote{}, fmt.Errorf("%w: pyth: %v", sources.ErrSourceUnavailable, err)
	}

	body, err := a.DoRequest(req)
	if err != nil {
		return sources.Quote{}, err
	}

	return a.parsePrice(pair, feedID, body)
}

// parsePrice extracts the first parsed price from a Hermes response.
func (a *PythAdapter) parsePrice(pair, feedID string, body []byte) (sources.Quote, error) {
	parsed := gjson.GetBytes(body, "parsed.0.price")
	if !parsed.Exists() {
		return sources.Quote{}, fmt.Errorf("%w: pyth response missing parsed price", sources.ErrInvalidResponse)
	}

	raw := parsed.Get("price")
	expo := parsed.Get("expo")
	conf := parsed.Get("conf")
	publishTime := parsed.Get("publish_time")
	if !raw.Exists() || !expo.Exists() {
		return sources.Quote{}, fmt.Errorf("%w: pyth price fields", sources.ErrInvalidResponse)
	}

	mantissa, err := decimal.NewFromString(raw.String())
	if err != nil {
		return sources.Quote{}, fmt.Errorf("%w: pyth price: %v", sources.ErrInvalidResponse, err)
	}
	price := mantissa.Shift(int32(expo.Int()))
	if price.Sign() <= 0 {
		return sources.Quote{}, fmt.Errorf("%w: pyth price for %s", sources.ErrInvalidPrice, pair)
	}

	age := time.Since(time.Unix(publishTime.Int(), 0))
	if age > a.staleCutoff {
		return sources.Quote{}, fmt.Errorf("%w: pyth publish for %s is %s old", sources.ErrStaleData, pair, age.Round(time.Second))
	}

	confidence := decayedConfidence(a.Type().DefaultConfidence(), age, a.freshBound, a.staleCutoff)

	// Fold the published confidence interval in: the wider the interval
	// relative to price, the lower the quote confidence.
	if conf.Exists() {
		if interval, err := decimal.NewFromString(conf.String()); err == nil && interval.Sign() > 0 {
			ratio, _ := interval.Shift(int32(expo.Int())).Div(price).Float64()
			penalty := ratio * 10
			if penalty > 0.3 {
				penalty = 0.3
			}
			confidence *= 1 - penalty
		}
	}

	meta := &sources.QuoteMetadata{
		AgeSeconds: age.Seconds(),
		Detail:     feedID,
	}

	a.Logger().Debug("Pyth quote",
		"pair", pair,
		"price", price.String(),
		"confidence", confidence,
		"age", age.Round(time.Second).String())

	return a.NewQuote(pair, price, confidence, meta), nil
}

// Register the adapter in init
func init() {
	sources.Register("feed.pyth", func(config map[string]interface{}) (sources.Adapter, error) {
		return NewPythAdapter(config)
	})
}
