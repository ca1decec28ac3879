package dex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

func pairsConfig() []interface{} {
	return []interface{}{
		map[string]interface{}{
			"symbol":        "USDC/USDT",
			"from_address":  "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
			"to_address":    "0xdac17f958d2ee523a2206206994597c13d831ec7",
			"from_decimals": 6,
			"to_decimals":   6,
		},
	}
}

func TestOneInchAdapter_NewAdapter(t *testing.T) {
	adapter, err := NewOneInchAdapter(map[string]interface{}{
		"pairs": pairsConfig(),
	})
	if err != nil {
		t.Fatalf("NewOneInchAdapter failed: %v", err)
	}

	if adapter.Name() != "1inch" {
		t.Errorf("Expected name '1inch', got '%s'", adapter.Name())
	}
	if adapter.Type() != sources.SourceTypeDEX {
		t.Errorf("Expected type SourceTypeDEX, got %v", adapter.Type())
	}
	if !adapter.SupportsPair("USDC/USDT") {
		t.Error("Expected USDC/USDT to be supported")
	}
	if adapter.SupportsPair("ETH/USDC") {
		t.Error("Did not expect ETH/USDC to be supported")
	}
}

func TestOneInchAdapter_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]interface{}
	}{
		{
			name:   "missing pairs",
			config: map[string]interface{}{},
		},
		{
			name: "pairs not a list",
			config: map[string]interface{}{
				"pairs": "invalid",
			},
		},
		{
			name: "empty pairs",
			config: map[string]interface{}{
				"pairs": []interface{}{},
			},
		},
		{
			name: "missing addresses",
			config: map[string]interface{}{
				"pairs": []interface{}{
					map[string]interface{}{"symbol": "USDC/USDT"},
				},
			},
		},
		{
			name: "bad symbol format",
			config: map[string]interface{}{
				"pairs": []interface{}{
					map[string]interface{}{
						"symbol":       "USDCUSDT",
						"from_address": "0xa",
						"to_address":   "0xb",
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOneInchAdapter(tt.config)
			if err == nil {
				t.Error("Expected error for invalid config, got none")
			}
		})
	}
}

func TestOneInchAdapter_Fetch(t *testing.T) {
	var requestedAmount string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedAmount = r.URL.Query().Get("amount")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"toTokenAmount": "1000100000",
			"fromTokenAmount": "1000000000",
			"estimatedGas": 150000,
			"protocols": [[[{"name": "UNISWAP_V3", "part": 100}]]]
		}`))
	}))
	defer server.Close()

	adapter, err := NewOneInchAdapter(map[string]interface{}{
		"pairs":    pairsConfig(),
		"base_url": server.URL,
	})
	if err != nil {
		t.Fatalf("NewOneInchAdapter failed: %v", err)
	}

	quote, err := adapter.Fetch(context.Background(), "USDC/USDT", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// 1000 USDC at 6 decimals.
	if requestedAmount != "1000000000" {
		t.Errorf("Expected amount 1000000000, got %s", requestedAmount)
	}

	expected := decimal.NewFromFloat(1.0001)
	if !quote.Price.Equal(expected) {
		t.Errorf("Expected price 1.0001, got %s", quote.Price.String())
	}
	if quote.Confidence != 0.95 {
		t.Errorf("Expected default DEX confidence 0.95, got %f", quote.Confidence)
	}
	if !quote.RoutingCapable() {
		t.Error("Expected quote to be routing capable")
	}
	if quote.Metadata.GasEstimate != 150000 {
		t.Errorf("Expected gas estimate 150000, got %d", quote.Metadata.GasEstimate)
	}
	if len(quote.Metadata.Protocols) != 1 || quote.Metadata.Protocols[0] != "UNISWAP_V3" {
		t.Errorf("Expected protocols [UNISWAP_V3], got %v", quote.Metadata.Protocols)
	}
}

func TestOneInchAdapter_FetchNonStableBase(t *testing.T) {
	var requestedAmount string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedAmount = r.URL.Query().Get("amount")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"toTokenAmount": "1000000000",
			"fromTokenAmount": "400000000000000000",
			"estimatedGas": 180000,
			"protocols": [[[{"name": "UNISWAP_V3", "part": 100}]]]
		}`))
	}))
	defer server.Close()

	adapter, err := NewOneInchAdapter(map[string]interface{}{
		"pairs": []interface{}{
			map[string]interface{}{
				"symbol":        "ETH/USDT",
				"from_address":  "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
				"to_address":    "0xdac17f958d2ee523a2206206994597c13d831ec7",
				"from_decimals": 18,
				"to_decimals":   6,
				"base_usd":      2500,
			},
		},
		"base_url": server.URL,
	})
	if err != nil {
		t.Fatalf("NewOneInchAdapter failed: %v", err)
	}

	quote, err := adapter.Fetch(context.Background(), "ETH/USDT", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// A $1000 swap at $2500/ETH is 0.4 ETH in wei, not 1000 raw ETH.
	if requestedAmount != "400000000000000000" {
		t.Errorf("Expected amount 400000000000000000, got %s", requestedAmount)
	}

	// 1000 USDT out for 0.4 ETH in.
	expected := decimal.NewFromInt(2500)
	if !quote.Price.Equal(expected) {
		t.Errorf("Expected price 2500, got %s", quote.Price.String())
	}
}

func TestOneInchAdapter_InvalidBaseUSD(t *testing.T) {
	for _, bad := range []interface{}{-1, "not a number", 0} {
		_, err := NewOneInchAdapter(map[string]interface{}{
			"pairs": []interface{}{
				map[string]interface{}{
					"symbol":       "ETH/USDT",
					"from_address": "0xa",
					"to_address":   "0xb",
					"base_usd":     bad,
				},
			},
		})
		if !errors.Is(err, sources.ErrInvalidConfig) {
			t.Errorf("base_usd %v: expected ErrInvalidConfig, got %v", bad, err)
		}
	}
}

func TestOneInchAdapter_FetchMultiHop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"toTokenAmount": "999800000",
			"fromTokenAmount": "1000000000",
			"estimatedGas": 320000,
			"protocols": [[
				[{"name": "UNISWAP_V3", "part": 100}],
				[{"name": "CURVE", "part": 100}]
			]]
		}`))
	}))
	defer server.Close()

	adapter, err := NewOneInchAdapter(map[string]interface{}{
		"pairs":    pairsConfig(),
		"base_url": server.URL,
	})
	if err != nil {
		t.Fatalf("NewOneInchAdapter failed: %v", err)
	}

	quote, err := adapter.Fetch(context.Background(), "USDC/USDT", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(quote.Metadata.Protocols) != 2 {
		t.Fatalf("Expected 2 hops, got %v", quote.Metadata.Protocols)
	}
	if quote.Metadata.Protocols[0] != "UNISWAP_V3" || quote.Metadata.Protocols[1] != "CURVE" {
		t.Errorf("Unexpected hop order: %v", quote.Metadata.Protocols)
	}
}

func TestOneInchAdapter_FetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		httpCode int
		wantErr  error
	}{
		{
			name:     "server error",
			body:     `{"error": "internal"}`,
			httpCode: http.StatusInternalServerError,
			wantErr:  sources.ErrSourceUnavailable,
		},
		{
			name:     "missing amounts",
			body:     `{"protocols": []}`,
			httpCode: http.StatusOK,
			wantErr:  sources.ErrInvalidResponse,
		},
		{
			name:     "zero amounts",
			body:     `{"toTokenAmount": "0", "fromTokenAmount": "1000000000"}`,
			httpCode: http.StatusOK,
			wantErr:  sources.ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.httpCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter, err := NewOneInchAdapter(map[string]interface{}{
				"pairs":    pairsConfig(),
				"base_url": server.URL,
			})
			if err != nil {
				t.Fatalf("NewOneInchAdapter failed: %v", err)
			}

			_, err = adapter.Fetch(context.Background(), "USDC/USDT", decimal.NewFromInt(1000))
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOneInchAdapter_UnsupportedPair(t *testing.T) {
	adapter, err := NewOneInchAdapter(map[string]interface{}{
		"pairs": pairsConfig(),
	})
	if err != nil {
		t.Fatalf("NewOneInchAdapter failed: %v", err)
	}

	_, err = adapter.Fetch(context.Background(), "ETH/USDC", decimal.NewFromInt(1000))
	if !errors.Is(err, sources.ErrUnsupportedPair) {
		t.Errorf("Expected ErrUnsupportedPair, got %v", err)
	}
}
