// Package aggregator fans out to price source adapters and computes a
// weighted consensus price with outlier rejection.
package aggregator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrAllSourcesFailed indicates that every adapter and cache lookup
	// failed. Terminal for the request; the only aggregation error that
	// propagates to callers.
	ErrAllSourcesFailed = errors.New("all sources failed")
	// ErrInvalidNotional indicates a zero or negative notional amount.
	ErrInvalidNotional = errors.New("notional amount must be positive")
)

// AllSourcesFailedError carries the per-source failure reasons for diagnosis.
type AllSourcesFailedError struct {
	Pair    string
	Reasons map[string]string
}

// Error implements the error interface.
func (e *AllSourcesFailedError) Error() string {
	names := make([]string, 0, len(e.Reasons))
	for name := range e.Reasons {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Reasons[name]))
	}
	return fmt.Sprintf("all sources failed for %s [%s]", e.Pair, strings.Join(parts, "; "))
}

// Unwrap makes the error match ErrAllSourcesFailed under errors.Is.
func (e *AllSourcesFailedError) Unwrap() error {
	return ErrAllSourcesFailed
}
