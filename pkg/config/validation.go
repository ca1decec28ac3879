package config

import (
	"fmt"
	"os"
	"strings"
)

var validAdapterTypes = map[string]bool{
	"dex":       true,
	"feed":      true,
	"amm":       true,
	"predictor": true,
}

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateOracleConfig(&cfg.Oracle); err != nil {
		return fmt.Errorf("oracle config: %w", err)
	}

	if len(cfg.Adapters) == 0 {
		return fmt.Errorf("%w", ErrNoAdaptersConfigured)
	}
	enabled := 0
	for i, adapter := range cfg.Adapters {
		if err := validateAdapterConfig(&adapter); err != nil {
			return fmt.Errorf("adapter %d (%s.%s): %w", i, adapter.Type, adapter.Name, err)
		}
		if adapter.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("%w", ErrNoAdaptersEnabled)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.Cert == "" || cfg.HTTP.TLS.Key == "" {
			return fmt.Errorf("%w", ErrTLSConfigIncomplete)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Cert); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSCertNotFound, cfg.HTTP.TLS.Cert)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Key); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSKeyNotFound, cfg.HTTP.TLS.Key)
		}
	}
	return nil
}

func validateOracleConfig(cfg *OracleConfig) error {
	backend := strings.ToLower(cfg.CacheBackend)
	if backend != "memory" && backend != "redis" {
		return fmt.Errorf("%w: %s (must be 'memory' or 'redis')", ErrInvalidCacheBackend, cfg.CacheBackend)
	}
	if backend == "redis" && cfg.RedisAddr == "" {
		return fmt.Errorf("%w", ErrRedisAddrRequired)
	}
	if cfg.OutlierMinSampleSize < 3 {
		return fmt.Errorf("%w: got %d", ErrOutlierSampleSizeTooSmall, cfg.OutlierMinSampleSize)
	}
	for source, weight := range cfg.SourceWeights {
		if weight < 0 {
			return fmt.Errorf("source %s: %w", source, ErrSourceWeightMustBeNonNegative)
		}
	}
	return nil
}

func validateAdapterConfig(cfg *AdapterConfig) error {
	if cfg.Type == "" {
		return fmt.Errorf("%w", ErrAdapterTypeRequired)
	}
	if cfg.Name == "" {
		return fmt.Errorf("%w", ErrAdapterNameRequired)
	}
	if !validAdapterTypes[strings.ToLower(cfg.Type)] {
		return fmt.Errorf("%w: %s", ErrUnknownAdapterType, cfg.Type)
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogFormat, cfg.Format)
	}
	return nil
}
