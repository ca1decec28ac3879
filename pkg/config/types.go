package config

import "time"

// Config is the root configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Settlement SettlementConfig `yaml:"settlement"`
	Adapters   []AdapterConfig  `yaml:"adapters"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP/WebSocket boundary
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string    `yaml:"addr"`
	TLS  TLSConfig `yaml:"tls"`
}

// WSConfig configures the WebSocket streaming server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TLSConfig holds TLS certificate configuration
type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

// OracleConfig configures the aggregation engine and quote cache
type OracleConfig struct {
	CacheBackend         string             `yaml:"cache_backend"`  // "memory" or "redis"
	RedisAddr            string             `yaml:"redis_addr"`     // Redis address when cache_backend is "redis"
	RedisPassword        string             `yaml:"redis_password"` // Optional Redis auth
	CacheTTL             Duration           `yaml:"cache_ttl"`
	StaleRetention       Duration           `yaml:"stale_retention"` // How long stale entries stay usable for fail-open
	SourceWeights        map[string]float64 `yaml:"source_weights"`
	OutlierMinSampleSize int                `yaml:"outlier_min_sample_size"`
	OverallTimeout       Duration           `yaml:"overall_timeout"` // Bound on the whole fan-out join
}

// SettlementConfig configures the settlement path selector
type SettlementConfig struct {
	GasPriceGwei   float64 `yaml:"gas_price_gwei"`  // Assumed gas price for live cost estimates
	NativeAssetUSD float64 `yaml:"native_asset_usd"` // Assumed native asset price for gas conversion
}

// AdapterConfig configures a single price source adapter
type AdapterConfig struct {
	Type        string                 `yaml:"type"` // "dex", "feed", "amm", "predictor"
	Name        string                 `yaml:"name"`
	Enabled     bool                   `yaml:"enabled"`
	BaseURL     string                 `yaml:"base_url"`
	APIKey      string                 `yaml:"api_key"`
	Timeout     Duration               `yaml:"timeout"`
	MinInterval Duration               `yaml:"min_interval"` // Self-throttle: minimum spacing between requests
	Config      map[string]interface{} `yaml:"config"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
