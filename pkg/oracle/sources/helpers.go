// Package sources provides price source adapter interfaces and implementations.
package sources

import (
	"fmt"
	"strings"
	"time"

	"github.com/aetherpay/rateoracle/pkg/logging"
)

// GetLoggerFromConfig extracts logger from config map or returns a default noop logger.
// Adapters should use this to get the logger passed from main.go.
// If no logger is configured, returns a noop logger to prevent nil pointer dereferences.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := config["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok {
			return logger
		}
	}

	// return default noop logger if logger not found
	return logging.NewNoopLogger()
}

// GetDurationFromConfig extracts a duration from config, accepting either a
// time.Duration (injected by main) or a duration string.
func GetDurationFromConfig(config map[string]interface{}, key string, defaultVal time.Duration) time.Duration {
	val, ok := config[key]
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v) * time.Millisecond
	}
	return defaultVal
}

// GetStringFromConfig extracts a string from config with a default.
func GetStringFromConfig(config map[string]interface{}, key, defaultVal string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return defaultVal
}

// ParsePairsFromMap extracts pair mappings from config where pairs is a map.
// Expected format: pairs: { "ETH/USDT": "0xc02a...:0xdac1...", "BTC/USD": "feed-id" }.
// Adapters use this to map unified symbols to provider-specific identifiers.
func ParsePairsFromMap(config map[string]interface{}) (map[string]string, error) {
	pairsRaw, ok := config["pairs"]
	if !ok {
		return nil, fmt.Errorf("%w: 'pairs' key", ErrInvalidConfig)
	}

	pairsMap, ok := pairsRaw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: pairs must be map[string]string", ErrInvalidConfig)
	}

	pairs := make(map[string]string, len(pairsMap))
	for unified, providerRaw := range pairsMap {
		provider, ok := providerRaw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %T", ErrInvalidConfig, unified, providerRaw)
		}
		// Validate unified symbol format
		if err := ValidateSymbolFormat(unified); err != nil {
			return nil, fmt.Errorf("unified symbol: %w", err)
		}
		pairs[unified] = provider
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w", ErrNoPairsConfigured)
	}

	return pairs, nil
}

// SplitPair splits a unified symbol into base and quote currencies.
func SplitPair(pair string) (base, quote string, err error) {
	if err := ValidateSymbolFormat(pair); err != nil {
		return "", "", err
	}
	parts := strings.Split(pair, "/")
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// ValidateSymbolFormat checks if a symbol is in valid BASE/QUOTE format
// Valid formats:
//   - "ETH/USDT", "BTC/USDC" (crypto pairs)
//   - "EUR/USD", "GBP/USD" (fiat pairs)
//
// Invalid formats:
//   - "ETH" (no quote currency)
//   - "ETHUSDT" (no separator)
//   - "" (empty).
func ValidateSymbolFormat(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w", ErrInvalidSymbolFormat)
	}

	parts := strings.Split(symbol, "/")
	if len(parts) != 2 {
		return fmt.Errorf("%w: %s", ErrInvalidSymbolFormat, symbol)
	}

	base := strings.TrimSpace(parts[0])
	quote := strings.TrimSpace(parts[1])

	if base == "" {
		return fmt.Errorf("%w: %s", ErrEmptyBaseCurrency, symbol)
	}
	if quote == "" {
		return fmt.Errorf("%w: %s", ErrEmptyQuoteCurrency, symbol)
	}

	return nil
}
