// Package predictor provides the statistical prediction service adapter.
package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

// PredictorAdapter queries the AetherPay prediction service for a modeled
// price. Predictions are not backed by liquidity, so the source-type default
// confidence is the lowest in the system and the service's own reported
// confidence can only lower it further.
type PredictorAdapter struct {
	*sources.BaseAdapter
	apiURL string
	apiKey string
}

// predictionResponse is the prediction service response shape.
type predictionResponse struct {
	Pair         string  `json:"pair"`
	Price        string  `json:"price"`
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"model_version"`
	StdDev       string  `json:"std_dev"`
}

// NewPredictorAdapter creates a new prediction service adapter.
// pairs map unified symbols to the model identifiers served by the service.
func NewPredictorAdapter(config map[string]interface{}) (sources.Adapter, error) {
	apiURL := sources.GetStringFromConfig(config, "base_url", "")
	if apiURL == "" {
		return nil, fmt.Errorf("%w: base_url", sources.ErrInvalidConfig)
	}

	pairs, err := sources.ParsePairsFromMap(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	return &PredictorAdapter{
		BaseAdapter: sources.NewBaseAdapter("predictor", sources.SourceTypePredictor, pairs, config),
		apiURL:      apiURL,
		apiKey:      sources.GetStringFromConfig(config, "api_key", ""),
	}, nil
}

// Fetch asks the prediction service for a modeled price at the notional.
func (a *PredictorAdapter) Fetch(ctx context.Context, pair string, notionalUSD decimal.Decimal) (sources.Quote, error) {
	modelID, err := a.ProviderSymbol(pair)
	if err != nil {
		return sources.Quote{}, err
	}

	if err := a.Throttle(ctx); err != nil {
		return sources.Quote{}, err
	}

	q := url.Values{}
	q.Set("pair", modelID)
	q.Set("amount", notionalUSD.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL+"/v1/predict?"+q.Encode(), nil)
	if err != nil {
		return sources.Quote{}, fmt.Errorf("%w: predictor: %v", sources.ErrSourceUnavailable, err)
	}
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	body, err := a.DoRequest(req)
	if err != nil {
		return sources.Quote{}, err
	}

	var pred predictionResponse
	if err := json.Unmarshal(body, &pred); err != nil {
		return sources.Quote{}, fmt.Errorf("%w: predictor: %v", sources.ErrInvalidResponse, err)
	}

	price, err := decimal.NewFromString(pred.Price)
	if err != nil {
		return sources.Quote{}, fmt.Errorf("%w: predictor price: %v", sources.ErrInvalidResponse, err)
	}
	if price.Sign() <= 0 {
		return sources.Quote{}, fmt.Errorf("%w: predictor price for %s", sources.ErrInvalidPrice, pair)
	}

	// Reported model confidence caps, never raises, the type default.
	confidence := a.Type().DefaultConfidence()
	if pred.Confidence > 0 && pred.Confidence < confidence {
		confidence = pred.Confidence
	}

	meta := &sources.QuoteMetadata{Detail: pred.ModelVersion}

	a.Logger().Debug("Predictor quote",
		"pair", pair,
		"price", price.String(),
		"confidence", confidence,
		"model", pred.ModelVersion)

	return a.NewQuote(pair, price, confidence, meta), nil
}

// Register the adapter in init
func init() {
	sources.Register("predictor.aether", func(config map[string]interface{}) (sources.Adapter, error) {
		return NewPredictorAdapter(config)
	})
}
