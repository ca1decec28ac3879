// Package dex provides DEX aggregator adapters.
package dex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

const (
	oneInchBaseURL = "https://api.1inch.io"
	oneInchChainID = 1
)

// OneInchAdapter fetches executable swap quotes from the 1inch aggregation
// API. It is the routing-capable source: its quotes carry the hop sequence
// and gas estimate the settlement path selector needs.
type OneInchAdapter struct {
	*sources.BaseAdapter
	apiURL  string
	apiKey  string
	chainID int
	pairs   map[string]TokenPair
}

// TokenPair holds the token-level mapping for one unified symbol.
type TokenPair struct {
	Symbol       string
	FromAddress  string
	ToAddress    string
	FromDecimals int
	ToDecimals   int

	// BaseUSD is the reference USD price of one base token, used to size
	// the swap from the USD notional. Defaults to 1 for USD-pegged bases.
	BaseUSD decimal.Decimal
}

// NewOneInchAdapter creates a new 1inch adapter.
func NewOneInchAdapter(config map[string]interface{}) (sources.Adapter, error) {
	tokenPairs, err := ParseTokenPairs(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	// Base adapter only needs unified-symbol presence for SupportsPair;
	// the token-level mapping stays local.
	pairMap := make(map[string]string, len(tokenPairs))
	byDir := make(map[string]TokenPair, len(tokenPairs))
	for _, tp := range tokenPairs {
		pairMap[tp.Symbol] = tp.FromAddress
		byDir[tp.Symbol] = tp
	}

	chainID := oneInchChainID
	if v, ok := config["chain_id"].(int); ok && v > 0 {
		chainID = v
	}

	return &OneInchAdapter{
		BaseAdapter: sources.NewBaseAdapter("1inch", sources.SourceTypeDEX, pairMap, config),
		apiURL:      sources.GetStringFromConfig(config, "base_url", oneInchBaseURL),
		apiKey:      sources.GetStringFromConfig(config, "api_key", ""),
		chainID:     chainID,
		pairs:       byDir,
	}, nil
}

// Fetch retrieves an executable quote for the pair sized to the notional amount.
func (a *OneInchAdapter) Fetch(ctx context.Context, pair string, notionalUSD decimal.Decimal) (sources.Quote, error) {
	tp, ok := a.pairs[pair]
	if !ok {
		return sources.Quote{}, fmt.Errorf("%w: %s on 1inch", sources.ErrUnsupportedPair, pair)
	}

	if err := a.Throttle(ctx); err != nil {
		return sources.Quote{}, err
	}

	// The swap size is expressed in base token units. The USD notional is
	// converted through the per-pair base reference price first so the
	// route (and therefore the price) is sized to the request, not to the
	// raw notional figure.
	baseTokens := notionalUSD
	if !tp.BaseUSD.IsZero() {
		baseTokens = notionalUSD.Div(tp.BaseUSD)
	}
	amount := baseTokens.Shift(int32(tp.FromDecimals)).Truncate(0)
	if amount.Sign() <= 0 {
		amount = decimal.New(1, int32(tp.FromDecimals))
	}

	q := url.Values{}
	q.Set("fromTokenAddress", tp.FromAddress)
	q.Set("toTokenAddress", tp.ToAddress)
	q.Set("amount", amount.String())

	endpoint := fmt.Sprintf("%s/v5.0/%d/quote?%s", a.apiURL, a.chainID, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return sources.Quote{}, fmt.Errorf("%w: 1inch: %v", sources.ErrSourceUnavailable, err)
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	body, err := a.DoRequest(req)
	if err != nil {
		return sources.Quote{}, err
	}

	return a.parseQuote(pair, tp, body)
}

// parseQuote converts a 1inch quote response into a normalized Quote.
func (a *OneInchAdapter) parseQuote(pair string, tp TokenPair, body []byte) (sources.Quote, error) {
	parsed := gjson.ParseBytes(body)

	toAmountRaw := parsed.Get("toTokenAmount")
	fromAmountRaw := parsed.Get("fromTokenAmount")
	if !toAmountRaw.Exists() || !fromAmountRaw.Exists() {
		return sources.Quote{}, fmt.Errorf("%w: 1inch quote missing amounts", sources.ErrInvalidResponse)
	}

	toAmount, err := decimal.NewFromString(toAmountRaw.String())
	if err != nil {
		return sources.Quote{}, fmt.Errorf("%w: 1inch toTokenAmount: %v", sources.ErrInvalidResponse, err)
	}
	fromAmount, err := decimal.NewFromString(fromAmountRaw.String())
	if err != nil {
		return sources.Quote{}, fmt.Errorf("%w: 1inch fromTokenAmount: %v", sources.ErrInvalidResponse, err)
	}
	if fromAmount.Sign() <= 0 || toAmount.Sign() <= 0 {
		return sources.Quote{}, fmt.Errorf("%w: 1inch amounts for %s", sources.ErrInvalidPrice, pair)
	}

	// Normalize both legs to whole-token units before dividing.
	price := toAmount.Shift(-int32(tp.ToDecimals)).Div(fromAmount.Shift(-int32(tp.FromDecimals)))

	meta := &sources.QuoteMetadata{
		Protocols:   extractProtocols(parsed.Get("protocols")),
		GasEstimate: parsed.Get("estimatedGas").Uint(),
	}

	a.Logger().Debug("1inch quote",
		"pair", pair,
		"price", price.String(),
		"hops", len(meta.Protocols),
		"gas", meta.GasEstimate)

	return a.NewQuote(pair, price, 0, meta), nil
}

// extractProtocols flattens the nested 1inch protocols array
// (routes -> hops -> splits) into an ordered hop sequence.
func extractProtocols(protocols gjson.Result) []string {
	var hops []string
	seen := make(map[string]bool)

	protocols.ForEach(func(_, route gjson.Result) bool {
		route.ForEach(func(_, hop gjson.Result) bool {
			hop.ForEach(func(_, split gjson.Result) bool {
				name := split.Get("name").String()
				if name != "" && !seen[name] {
					seen[name] = true
					hops = append(hops, name)
				}
				return true
			})
			return true
		})
		return true
	})

	return hops
}

// ParseTokenPairs extracts token pair configurations from config
// Expected format:
// pairs:
//   - symbol: "USDC/USDT"
//     from_address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
//     to_address: "0xdac17f958d2ee523a2206206994597c13d831ec7"
//     from_decimals: 6
//     to_decimals: 6
//     base_usd: 1 (optional reference USD price of the base token).
func ParseTokenPairs(config map[string]interface{}) ([]TokenPair, error) {
	pairsRaw, ok := config["pairs"]
	if !ok {
		return nil, fmt.Errorf("%w: pairs configuration not found", sources.ErrInvalidConfig)
	}

	pairsList, ok := pairsRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w", sources.ErrPairsMustBeArray)
	}

	pairs := make([]TokenPair, 0, len(pairsList))
	for i, pairRaw := range pairsList {
		pairMap, ok := pairRaw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: pair at index %d is not an object", sources.ErrInvalidConfig, i)
		}

		baseUSD, err := getDecimal(pairMap, "base_usd", decimal.NewFromInt(1))
		if err != nil {
			return nil, fmt.Errorf("%w: pair[%d] base_usd: %v", sources.ErrInvalidConfig, i, err)
		}
		if baseUSD.Sign() <= 0 {
			return nil, fmt.Errorf("%w: pair[%d] base_usd must be positive", sources.ErrInvalidConfig, i)
		}

		tp := TokenPair{
			Symbol:       getString(pairMap, "symbol"),
			FromAddress:  getString(pairMap, "from_address"),
			ToAddress:    getString(pairMap, "to_address"),
			FromDecimals: getInt(pairMap, "from_decimals", 18),
			ToDecimals:   getInt(pairMap, "to_decimals", 18),
			BaseUSD:      baseUSD,
		}

		if tp.Symbol == "" {
			return nil, fmt.Errorf("%w: pair[%d] missing 'symbol'", sources.ErrInvalidConfig, i)
		}
		if err := sources.ValidateSymbolFormat(tp.Symbol); err != nil {
			return nil, fmt.Errorf("pair[%d] %s: %w", i, tp.Symbol, err)
		}
		if tp.FromAddress == "" || tp.ToAddress == "" {
			return nil, fmt.Errorf("%w: pair[%d] %s missing token addresses", sources.ErrInvalidConfig, i, tp.Symbol)
		}

		pairs = append(pairs, tp)
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: parsed pairs", sources.ErrNoPairsConfigured)
	}

	return pairs, nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getDecimal(m map[string]interface{}, key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	switch v := m[key].(type) {
	case nil:
		return defaultVal, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(v)
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", v)
	}
}

func getInt(m map[string]interface{}, key string, defaultVal int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case int64:
		return int(v)
	default:
		return defaultVal
	}
}

// Register the adapter in init
func init() {
	sources.Register("dex.oneinch", func(config map[string]interface{}) (sources.Adapter, error) {
		return NewOneInchAdapter(config)
	})
}
