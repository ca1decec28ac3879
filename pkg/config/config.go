// Package config provides configuration loading and validation for rateoracle.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}

	// Oracle defaults
	if cfg.Oracle.CacheBackend == "" {
		cfg.Oracle.CacheBackend = "memory"
	}
	if cfg.Oracle.CacheTTL.ToDuration() == 0 {
		cfg.Oracle.CacheTTL = Duration(10 * 1e9) // 10 seconds
	}
	if cfg.Oracle.StaleRetention.ToDuration() == 0 {
		// Stale entries stay usable for fail-open ten times longer than
		// they are considered fresh.
		cfg.Oracle.StaleRetention = cfg.Oracle.CacheTTL * 10
	}
	if cfg.Oracle.OutlierMinSampleSize == 0 {
		cfg.Oracle.OutlierMinSampleSize = 3
	}
	if cfg.Oracle.OverallTimeout.ToDuration() == 0 {
		cfg.Oracle.OverallTimeout = Duration(5 * 1e9) // 5 seconds
	}
	if cfg.Oracle.SourceWeights == nil {
		cfg.Oracle.SourceWeights = make(map[string]float64)
	}

	// Settlement defaults
	if cfg.Settlement.GasPriceGwei == 0 {
		cfg.Settlement.GasPriceGwei = 30
	}
	if cfg.Settlement.NativeAssetUSD == 0 {
		cfg.Settlement.NativeAssetUSD = 2500
	}

	// Adapter defaults
	for i := range cfg.Adapters {
		if cfg.Adapters[i].Timeout.ToDuration() == 0 {
			cfg.Adapters[i].Timeout = Duration(3 * 1e9) // 3 seconds
		}
		if cfg.Adapters[i].MinInterval.ToDuration() == 0 {
			cfg.Adapters[i].MinInterval = Duration(100 * 1e6) // 100 milliseconds
		}
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// GetString retrieves a string value from the adapter configuration.
func (ac *AdapterConfig) GetString(key, defaultValue string) string {
	if val, ok := ac.Config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetStringSlice retrieves a string slice from adapter config.
func (ac *AdapterConfig) GetStringSlice(key string) []string {
	if val, ok := ac.Config[key]; ok {
		if slice, ok := val.([]interface{}); ok {
			result := make([]string, 0, len(slice))
			for _, item := range slice {
				if str, ok := item.(string); ok {
					result = append(result, str)
				}
			}
			return result
		}
	}
	return nil
}

// GetInt retrieves an integer from adapter config.
func (ac *AdapterConfig) GetInt(key string, defaultValue int) int {
	if val, ok := ac.Config[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

// GetBool retrieves a boolean from adapter config.
func (ac *AdapterConfig) GetBool(key string, defaultValue bool) bool {
	if val, ok := ac.Config[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultValue
}
