// Package sources provides price source adapter interfaces and implementations.
package sources

import "errors"

var (
	// ErrSourceUnavailable indicates a network, timeout or HTTP error.
	// Retryable on the next request, never retried within the same call.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrUnsupportedPair indicates that the provider has no route or feed for the pair.
	ErrUnsupportedPair = errors.New("unsupported pair")
	// ErrStaleData indicates provider data older than its freshness bound.
	ErrStaleData = errors.New("stale data rejected")
	// ErrInvalidResponse indicates an unparseable response from the provider.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrInvalidPrice indicates a zero or negative price in the response.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidConfig indicates that the adapter configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrAPIKeyRequired indicates that an API key is required.
	ErrAPIKeyRequired = errors.New("API key is required")
	// ErrRPCURLRequired indicates that rpc_url is required.
	ErrRPCURLRequired = errors.New("rpc_url is required")
	// ErrNoPairsConfigured indicates that no valid pairs are configured.
	ErrNoPairsConfigured = errors.New("no valid pairs configured")
	// ErrPairsMustBeArray indicates that pairs must be an array.
	ErrPairsMustBeArray = errors.New("pairs must be an array")
	// ErrInvalidSymbolFormat indicates that the symbol format is invalid.
	ErrInvalidSymbolFormat = errors.New("symbol must be in BASE/QUOTE format")
	// ErrEmptyBaseCurrency indicates that the symbol BASE currency cannot be empty.
	ErrEmptyBaseCurrency = errors.New("symbol BASE currency cannot be empty")
	// ErrEmptyQuoteCurrency indicates that the symbol QUOTE currency cannot be empty.
	ErrEmptyQuoteCurrency = errors.New("symbol QUOTE currency cannot be empty")
	// ErrClientNotInitialized indicates that the RPC client is not initialized.
	ErrClientNotInitialized = errors.New("client not initialized")
)

// ErrorKind maps an adapter error onto a stable label for observability.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedPair):
		return "unsupported_pair"
	case errors.Is(err, ErrStaleData):
		return "stale_data"
	case errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrInvalidPrice):
		return "invalid_response"
	case errors.Is(err, ErrSourceUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
