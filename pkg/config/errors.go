package config

import "errors"

var (
	// ErrNoAdaptersConfigured indicates that no price adapters are configured.
	ErrNoAdaptersConfigured = errors.New("at least one adapter must be configured")
	// ErrNoAdaptersEnabled indicates that no adapters are enabled.
	ErrNoAdaptersEnabled = errors.New("no adapters enabled")
	// ErrAdapterTypeRequired indicates that adapter type is required.
	ErrAdapterTypeRequired = errors.New("adapter type is required")
	// ErrAdapterNameRequired indicates that adapter name is required.
	ErrAdapterNameRequired = errors.New("adapter name is required")
	// ErrUnknownAdapterType indicates that the adapter type is unknown.
	ErrUnknownAdapterType = errors.New("unknown adapter type")
	// ErrInvalidCacheBackend indicates that the cache backend is invalid.
	ErrInvalidCacheBackend = errors.New("invalid cache_backend")
	// ErrRedisAddrRequired indicates that redis_addr must be set for the redis backend.
	ErrRedisAddrRequired = errors.New("redis_addr must be set when cache_backend is redis")
	// ErrSourceWeightMustBeNonNegative indicates that source weight must be >= 0.
	ErrSourceWeightMustBeNonNegative = errors.New("weight must be >= 0")
	// ErrOutlierSampleSizeTooSmall indicates an outlier_min_sample_size below 3.
	ErrOutlierSampleSizeTooSmall = errors.New("outlier_min_sample_size must be >= 3")
	// ErrTLSConfigIncomplete indicates that TLS config is incomplete.
	ErrTLSConfigIncomplete = errors.New("TLS cert and key must be specified when TLS is enabled")
	// ErrTLSCertNotFound indicates that the TLS cert file was not found.
	ErrTLSCertNotFound = errors.New("TLS cert file not found")
	// ErrTLSKeyNotFound indicates that the TLS key file was not found.
	ErrTLSKeyNotFound = errors.New("TLS key file not found")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
