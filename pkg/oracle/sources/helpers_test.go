package sources

import (
	"errors"
	"testing"
	"time"
)

func TestValidateSymbolFormat(t *testing.T) {
	valid := []string{"ETH/USDT", "BTC/USDC", "EUR/USD", "USDC/EUR"}
	for _, symbol := range valid {
		if err := ValidateSymbolFormat(symbol); err != nil {
			t.Errorf("Expected %s to be valid, got %v", symbol, err)
		}
	}

	tests := []struct {
		symbol  string
		wantErr error
	}{
		{"", ErrInvalidSymbolFormat},
		{"ETHUSDT", ErrInvalidSymbolFormat},
		{"ETH/USD/T", ErrInvalidSymbolFormat},
		{"/USDT", ErrEmptyBaseCurrency},
		{"ETH/", ErrEmptyQuoteCurrency},
		{" /USDT", ErrEmptyBaseCurrency},
	}

	for _, tt := range tests {
		err := ValidateSymbolFormat(tt.symbol)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Symbol %q: expected %v, got %v", tt.symbol, tt.wantErr, err)
		}
	}
}

func TestSplitPair(t *testing.T) {
	base, quote, err := SplitPair("ETH/USDT")
	if err != nil {
		t.Fatalf("SplitPair failed: %v", err)
	}
	if base != "ETH" || quote != "USDT" {
		t.Errorf("Expected ETH/USDT, got %s/%s", base, quote)
	}

	if _, _, err := SplitPair("invalid"); err == nil {
		t.Error("Expected error for invalid pair")
	}
}

func TestParsePairsFromMap(t *testing.T) {
	pairs, err := ParsePairsFromMap(map[string]interface{}{
		"pairs": map[string]interface{}{
			"ETH/USD": "feed-1",
			"BTC/USD": "feed-2",
		},
	})
	if err != nil {
		t.Fatalf("ParsePairsFromMap failed: %v", err)
	}

	if len(pairs) != 2 {
		t.Errorf("Expected 2 pairs, got %d", len(pairs))
	}
	if pairs["ETH/USD"] != "feed-1" {
		t.Errorf("Expected feed-1, got %s", pairs["ETH/USD"])
	}
}

func TestParsePairsFromMap_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]interface{}
	}{
		{"missing pairs", map[string]interface{}{}},
		{"not a map", map[string]interface{}{"pairs": []string{"ETH/USD"}}},
		{"empty map", map[string]interface{}{"pairs": map[string]interface{}{}}},
		{"non-string value", map[string]interface{}{
			"pairs": map[string]interface{}{"ETH/USD": 42},
		}},
		{"bad symbol", map[string]interface{}{
			"pairs": map[string]interface{}{"ETHUSD": "feed-1"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePairsFromMap(tt.config); err == nil {
				t.Error("Expected error for invalid config, got none")
			}
		})
	}
}

func TestGetDurationFromConfig(t *testing.T) {
	config := map[string]interface{}{
		"as_duration": 2 * time.Second,
		"as_string":   "1500ms",
		"as_int":      250,
		"bad_string":  "not-a-duration",
	}

	if got := GetDurationFromConfig(config, "as_duration", time.Second); got != 2*time.Second {
		t.Errorf("Expected 2s, got %v", got)
	}
	if got := GetDurationFromConfig(config, "as_string", time.Second); got != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s, got %v", got)
	}
	if got := GetDurationFromConfig(config, "as_int", time.Second); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", got)
	}
	if got := GetDurationFromConfig(config, "missing", time.Second); got != time.Second {
		t.Errorf("Expected default 1s, got %v", got)
	}
	if got := GetDurationFromConfig(config, "bad_string", time.Second); got != time.Second {
		t.Errorf("Expected default for bad string, got %v", got)
	}
}

func TestGetStringFromConfig(t *testing.T) {
	config := map[string]interface{}{
		"present": "value",
		"empty":   "",
		"wrong":   42,
	}

	if got := GetStringFromConfig(config, "present", "default"); got != "value" {
		t.Errorf("Expected 'value', got %q", got)
	}
	if got := GetStringFromConfig(config, "empty", "default"); got != "default" {
		t.Errorf("Expected 'default' for empty value, got %q", got)
	}
	if got := GetStringFromConfig(config, "wrong", "default"); got != "default" {
		t.Errorf("Expected 'default' for wrong type, got %q", got)
	}
	if got := GetStringFromConfig(config, "missing", "default"); got != "default" {
		t.Errorf("Expected 'default' for missing key, got %q", got)
	}
}

func TestDefaultConfidence(t *testing.T) {
	tests := []struct {
		sourcetype SourceType
		expected   float64
	}{
		{SourceTypeDEX, 0.95},
		{SourceTypeFeed, 0.90},
		{SourceTypeAMM, 0.85},
		{SourceTypePredictor, 0.70},
		{SourceType("unknown"), 0.70},
	}

	for _, tt := range tests {
		if got := tt.sourcetype.DefaultConfidence(); got != tt.expected {
			t.Errorf("%s: expected %f, got %f", tt.sourcetype, tt.expected, got)
		}
	}
}
