package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

const testFeedID = "eaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a"

func pythConfig(baseURL string) map[string]interface{} {
	return map[string]interface{}{
		"pairs": map[string]interface{}{
			"ETH/USD": testFeedID,
		},
		"base_url": baseURL,
	}
}

func pythBody(price string, expo int, conf string, publishTime int64) string {
	return fmt.Sprintf(`{
		"parsed": [{
			"id": "%s",
			"price": {
				"price": "%s",
				"conf": "%s",
				"expo": %d,
				"publish_time": %d
			}
		}]
	}`, testFeedID, price, conf, expo, publishTime)
}

func TestPythAdapter_NewAdapter(t *testing.T) {
	adapter, err := NewPythAdapter(pythConfig(""))
	if err != nil {
		t.Fatalf("NewPythAdapter failed: %v", err)
	}

	if adapter.Name() != "pyth" {
		t.Errorf("Expected name 'pyth', got '%s'", adapter.Name())
	}
	if adapter.Type() != sources.SourceTypeFeed {
		t.Errorf("Expected type SourceTypeFeed, got %v", adapter.Type())
	}
	if !adapter.SupportsPair("ETH/USD") {
		t.Error("Expected ETH/USD to be supported")
	}
}

func TestPythAdapter_MissingPairs(t *testing.T) {
	_, err := NewPythAdapter(map[string]interface{}{})
	if err == nil {
		t.Error("Expected error for missing pairs, got none")
	}
}

func TestPythAdapter_Fetch(t *testing.T) {
	now := time.Now().Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids[]"); got != testFeedID {
			t.Errorf("Expected feed id %s, got %s", testFeedID, got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pythBody("250012345678", -8, "0", now)))
	}))
	defer server.Close()

	adapter, err := NewPythAdapter(pythConfig(server.URL))
	if err != nil {
		t.Fatalf("NewPythAdapter failed: %v", err)
	}

	quote, err := adapter.Fetch(context.Background(), "ETH/USD", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// 250012345678 * 10^-8 = 2500.12345678
	expected := decimal.RequireFromString("2500.12345678")
	if !quote.Price.Equal(expected) {
		t.Errorf("Expected price 2500.12345678, got %s", quote.Price.String())
	}
	if quote.Confidence != 0.90 {
		t.Errorf("Expected fresh feed confidence 0.90, got %f", quote.Confidence)
	}
	if quote.RoutingCapable() {
		t.Error("Feed quote must not be routing capable")
	}
}

func TestPythAdapter_WideConfidenceIntervalLowersConfidence(t *testing.T) {
	now := time.Now().Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Interval is 4% of price: the penalty caps at 0.3, so the
		// confidence lands at 0.90 * 0.7.
		_, _ = w.Write([]byte(pythBody("250000000000", -8, "10000000000", now)))
	}))
	defer server.Close()

	adapter, err := NewPythAdapter(pythConfig(server.URL))
	if err != nil {
		t.Fatalf("NewPythAdapter failed: %v", err)
	}

	quote, err := adapter.Fetch(context.Background(), "ETH/USD", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if quote.Confidence >= 0.90 {
		t.Errorf("Expected lowered confidence, got %f", quote.Confidence)
	}
	expected := 0.90 * 0.7
	if diff := quote.Confidence - expected; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected confidence %f, got %f", expected, quote.Confidence)
	}
}

func TestPythAdapter_StalePublishRejected(t *testing.T) {
	old := time.Now().Add(-time.Hour).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(pythBody("250000000000", -8, "0", old)))
	}))
	defer server.Close()

	adapter, err := NewPythAdapter(pythConfig(server.URL))
	if err != nil {
		t.Fatalf("NewPythAdapter failed: %v", err)
	}

	_, err = adapter.Fetch(context.Background(), "ETH/USD", decimal.NewFromInt(1000))
	if !errors.Is(err, sources.ErrStaleData) {
		t.Errorf("Expected ErrStaleData, got %v", err)
	}
}

func TestPythAdapter_InvalidResponses(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "empty parsed",
			body:    `{"parsed": []}`,
			wantErr: sources.ErrInvalidResponse,
		},
		{
			name:    "missing expo",
			body:    fmt.Sprintf(`{"parsed": [{"price": {"price": "100", "publish_time": %d}}]}`, time.Now().Unix()),
			wantErr: sources.ErrInvalidResponse,
		},
		{
			name:    "negative price",
			body:    pythBody("-100", -8, "0", time.Now().Unix()),
			wantErr: sources.ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter, err := NewPythAdapter(pythConfig(server.URL))
			if err != nil {
				t.Fatalf("NewPythAdapter failed: %v", err)
			}

			_, err = adapter.Fetch(context.Background(), "ETH/USD", decimal.NewFromInt(1000))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestChainlinkAdapter_RequiresRPCURL(t *testing.T) {
	_, err := NewChainlinkAdapter(map[string]interface{}{
		"pairs": map[string]interface{}{
			"ETH/USD": "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419",
		},
	})
	if !errors.Is(err, sources.ErrRPCURLRequired) {
		t.Errorf("Expected ErrRPCURLRequired, got %v", err)
	}
}

func TestDecayedConfidence(t *testing.T) {
	fresh := time.Hour
	cutoff := 24 * time.Hour

	tests := []struct {
		name     string
		age      time.Duration
		expected float64
	}{
		{"fresh", 30 * time.Minute, 0.90},
		{"at bound", time.Hour, 0.90},
		{"halfway", fresh + (cutoff-fresh)/2, 0.90 * 0.8},
		{"at cutoff", cutoff, 0.90 * 0.6},
		{"beyond cutoff", 48 * time.Hour, 0.90 * 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decayedConfidence(0.90, tt.age, fresh, cutoff)
			if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}
