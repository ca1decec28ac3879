package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
server:
  http:
    addr: ":8088"
  websocket:
    enabled: true
    addr: ":8089"

oracle:
  cache_backend: memory
  cache_ttl: 15s
  source_weights:
    oneinch: 1.2
    pyth: 1.0
  outlier_min_sample_size: 4
  overall_timeout: 4s

settlement:
  gas_price_gwei: 25
  native_asset_usd: 3000

adapters:
  - type: dex
    name: oneinch
    enabled: true
    base_url: "https://api.1inch.io"
    api_key: "${ONEINCH_API_KEY}"
    timeout: 2s
    config:
      pairs:
        - symbol: "USDC/USDT"
          from_address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
          to_address: "0xdac17f958d2ee523a2206206994597c13d831ec7"
          from_decimals: 6
          to_decimals: 6
  - type: feed
    name: pyth
    enabled: true
    config:
      pairs:
        ETH/USD: "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace"

metrics:
  enabled: true

logging:
  level: debug
  format: text
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("ONEINCH_API_KEY", "test-key-123")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTP.Addr != ":8088" {
		t.Errorf("Expected addr :8088, got %s", cfg.Server.HTTP.Addr)
	}
	if !cfg.Server.WebSocket.Enabled {
		t.Error("Expected websocket enabled")
	}
	if cfg.Oracle.CacheTTL.ToDuration() != 15*time.Second {
		t.Errorf("Expected cache_ttl 15s, got %v", cfg.Oracle.CacheTTL.ToDuration())
	}
	if cfg.Oracle.SourceWeights["oneinch"] != 1.2 {
		t.Errorf("Expected oneinch weight 1.2, got %f", cfg.Oracle.SourceWeights["oneinch"])
	}
	if cfg.Oracle.OutlierMinSampleSize != 4 {
		t.Errorf("Expected outlier_min_sample_size 4, got %d", cfg.Oracle.OutlierMinSampleSize)
	}
	if cfg.Settlement.GasPriceGwei != 25 {
		t.Errorf("Expected gas_price_gwei 25, got %f", cfg.Settlement.GasPriceGwei)
	}

	if len(cfg.Adapters) != 2 {
		t.Fatalf("Expected 2 adapters, got %d", len(cfg.Adapters))
	}
	// Environment variable expansion.
	if cfg.Adapters[0].APIKey != "test-key-123" {
		t.Errorf("Expected expanded api key, got %q", cfg.Adapters[0].APIKey)
	}
	if cfg.Adapters[0].Timeout.ToDuration() != 2*time.Second {
		t.Errorf("Expected adapter timeout 2s, got %v", cfg.Adapters[0].Timeout.ToDuration())
	}
}

func TestLoad_Defaults(t *testing.T) {
	minimal := `
adapters:
  - type: feed
    name: pyth
    enabled: true
`
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTP.Addr != ":8080" {
		t.Errorf("Expected default addr :8080, got %s", cfg.Server.HTTP.Addr)
	}
	if cfg.Oracle.CacheBackend != "memory" {
		t.Errorf("Expected default cache_backend memory, got %s", cfg.Oracle.CacheBackend)
	}
	if cfg.Oracle.CacheTTL.ToDuration() != 10*time.Second {
		t.Errorf("Expected default cache_ttl 10s, got %v", cfg.Oracle.CacheTTL.ToDuration())
	}
	if cfg.Oracle.StaleRetention.ToDuration() != 100*time.Second {
		t.Errorf("Expected default stale_retention 100s, got %v", cfg.Oracle.StaleRetention.ToDuration())
	}
	if cfg.Oracle.OutlierMinSampleSize != 3 {
		t.Errorf("Expected default outlier_min_sample_size 3, got %d", cfg.Oracle.OutlierMinSampleSize)
	}
	if cfg.Settlement.GasPriceGwei != 30 || cfg.Settlement.NativeAssetUSD != 2500 {
		t.Errorf("Unexpected settlement defaults: %f / %f", cfg.Settlement.GasPriceGwei, cfg.Settlement.NativeAssetUSD)
	}
	if cfg.Adapters[0].Timeout.ToDuration() != 3*time.Second {
		t.Errorf("Expected default adapter timeout 3s, got %v", cfg.Adapters[0].Timeout.ToDuration())
	}
	if cfg.Adapters[0].MinInterval.ToDuration() != 100*time.Millisecond {
		t.Errorf("Expected default min_interval 100ms, got %v", cfg.Adapters[0].MinInterval.ToDuration())
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging defaults: %s / %s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "adapters: [")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func validConfig() *Config {
	cfg := &Config{
		Adapters: []AdapterConfig{
			{Type: "feed", Name: "pyth", Enabled: true},
		},
	}
	applyDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "no adapters",
			mutate:  func(c *Config) { c.Adapters = nil },
			wantErr: ErrNoAdaptersConfigured,
		},
		{
			name:    "none enabled",
			mutate:  func(c *Config) { c.Adapters[0].Enabled = false },
			wantErr: ErrNoAdaptersEnabled,
		},
		{
			name:    "unknown adapter type",
			mutate:  func(c *Config) { c.Adapters[0].Type = "cex" },
			wantErr: ErrUnknownAdapterType,
		},
		{
			name:    "adapter name missing",
			mutate:  func(c *Config) { c.Adapters[0].Name = "" },
			wantErr: ErrAdapterNameRequired,
		},
		{
			name:    "bad cache backend",
			mutate:  func(c *Config) { c.Oracle.CacheBackend = "memcached" },
			wantErr: ErrInvalidCacheBackend,
		},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.Oracle.CacheBackend = "redis" },
			wantErr: ErrRedisAddrRequired,
		},
		{
			name:    "outlier sample size too small",
			mutate:  func(c *Config) { c.Oracle.OutlierMinSampleSize = 2 },
			wantErr: ErrOutlierSampleSizeTooSmall,
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Oracle.SourceWeights = map[string]float64{"pyth": -1} },
			wantErr: ErrSourceWeightMustBeNonNegative,
		},
		{
			name:    "tls without files",
			mutate:  func(c *Config) { c.Server.HTTP.TLS.Enabled = true },
			wantErr: ErrTLSConfigIncomplete,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAdapterConfigGetters(t *testing.T) {
	ac := &AdapterConfig{
		Config: map[string]interface{}{
			"str":   "value",
			"num":   float64(7),
			"flag":  true,
			"slice": []interface{}{"a", "b"},
		},
	}

	if got := ac.GetString("str", "d"); got != "value" {
		t.Errorf("GetString: got %q", got)
	}
	if got := ac.GetString("missing", "d"); got != "d" {
		t.Errorf("GetString default: got %q", got)
	}
	if got := ac.GetInt("num", 0); got != 7 {
		t.Errorf("GetInt: got %d", got)
	}
	if got := ac.GetBool("flag", false); !got {
		t.Error("GetBool: expected true")
	}
	if got := ac.GetStringSlice("slice"); len(got) != 2 || got[0] != "a" {
		t.Errorf("GetStringSlice: got %v", got)
	}
}
