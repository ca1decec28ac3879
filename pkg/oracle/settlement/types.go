// Package settlement recommends execution routes for aggregated quotes.
package settlement

import "time"

// RiskLevel grades the execution risk of a settlement path.
type RiskLevel string

const (
	// RiskLow marks routes with simple, well-collateralized execution.
	RiskLow RiskLevel = "low"
	// RiskMedium marks routes with multi-hop or bridged execution.
	RiskMedium RiskLevel = "medium"
	// RiskHigh marks routes that should only be taken deliberately.
	RiskHigh RiskLevel = "high"
)

// Path is a settlement route recommendation.
type Path struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	// EstimatedCostPct is a fraction of notional (0.006 = 0.6%), capped at 0.02.
	EstimatedCostPct      float64   `json:"estimated_cost_pct"`
	SettlementTimeSeconds int       `json:"settlement_time_seconds"`
	Reliability           float64   `json:"reliability"`
	RiskLevel             RiskLevel `json:"risk_level"`
	Reason                string    `json:"reason"`
	AlternativePaths      []string  `json:"alternative_paths"`
	// IsRealtime distinguishes a recommendation built from live route data
	// from a static heuristic fallback.
	IsRealtime bool      `json:"is_realtime"`
	SelectedAt time.Time `json:"selected_at"`
}

// ScoredPath is one catalog path with its suitability score, used when
// presenting the full comparison to a caller.
type ScoredPath struct {
	Name                  string    `json:"name"`
	Protocol              string    `json:"protocol"`
	EstimatedCostPct      float64   `json:"estimated_cost_pct"`
	SettlementTimeSeconds int       `json:"settlement_time_seconds"`
	Reliability           float64   `json:"reliability"`
	RiskLevel             RiskLevel `json:"risk_level"`
	Score                 float64   `json:"score"`
	SuitableFor           string    `json:"suitable_for"`
}
