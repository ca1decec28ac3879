package settlement

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/logging"
	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

const (
	// maxCostPct caps the estimated cost at 2% of notional.
	maxCostPct = 0.02
	// largeOrderUSD marks the notional above which settlement times stretch.
	largeOrderUSD = 50_000
)

// Selector ranks settlement paths for a pair and notional. Selection never
// fails: when no routing-capable quote is available it falls back to the
// static catalog with IsRealtime=false.
type Selector struct {
	gasPriceGwei   float64
	nativeAssetUSD float64
	logger         *logging.Logger
}

// NewSelector creates a settlement path selector. gasPriceGwei and
// nativeAssetUSD are the assumed conversion factors for turning a route's
// gas estimate into a USD cost.
func NewSelector(gasPriceGwei, nativeAssetUSD float64, logger *logging.Logger) *Selector {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Selector{
		gasPriceGwei:   gasPriceGwei,
		nativeAssetUSD: nativeAssetUSD,
		logger:         logger,
	}
}

// Select recommends a path using the first routing-capable quote among the
// surviving quotes, falling back to the static catalog when none is present.
func (s *Selector) Select(pair string, notionalUSD decimal.Decimal, confidence float64, quotes []sources.Quote) *Path {
	for _, q := range quotes {
		if q.RoutingCapable() {
			return s.liveFromQuote(pair, notionalUSD, q)
		}
	}
	return s.Fallback(pair, notionalUSD, confidence)
}

// liveFromQuote builds a realtime recommendation from executable route data.
func (s *Selector) liveFromQuote(pair string, notionalUSD decimal.Decimal, quote sources.Quote) *Path {
	hops := quote.Metadata.Protocols

	costPct := s.gasCostPct(quote.Metadata.GasEstimate, notionalUSD)

	var timeSeconds int
	var risk RiskLevel
	var reliability float64
	switch {
	case len(hops) <= 1:
		timeSeconds, risk, reliability = 12, RiskLow, 0.98
	case len(hops) <= 3:
		timeSeconds, risk, reliability = 30, RiskLow, 0.95
	default:
		timeSeconds, risk, reliability = 60, RiskMedium, 0.90
	}

	var reason string
	if len(hops) <= 1 {
		reason = fmt.Sprintf("Direct swap via %s", strings.Join(hops, ""))
	} else {
		reason = fmt.Sprintf("Route via %s (%d hops)", strings.Join(hops, " -> "), len(hops))
	}

	path := &Path{
		Name:                  quote.Source + " route",
		Protocol:              hops[0],
		EstimatedCostPct:      costPct,
		SettlementTimeSeconds: timeSeconds,
		Reliability:           reliability,
		RiskLevel:             risk,
		Reason:                reason,
		AlternativePaths:      s.alternativeNames(pair, notionalUSD, ""),
		IsRealtime:            true,
		SelectedAt:            time.Now(),
	}

	s.logger.Debug("Selected live settlement path",
		"pair", pair,
		"protocol", path.Protocol,
		"hops", len(hops),
		"cost_pct", costPct)

	return path
}

// gasCostPct converts a gas estimate into a fraction of notional, capped.
func (s *Selector) gasCostPct(gasEstimate uint64, notionalUSD decimal.Decimal) float64 {
	notional, _ := notionalUSD.Float64()
	if gasEstimate == 0 || notional <= 0 {
		// No usable estimate; assume a typical single-pool swap cost.
		return 0.003
	}

	costUSD := float64(gasEstimate) * s.gasPriceGwei * 1e-9 * s.nativeAssetUSD
	pct := costUSD / notional
	if pct > maxCostPct {
		pct = maxCostPct
	}
	return pct
}

// Fallback recommends a path from the static catalog. The choice is
// deterministic per pair kind: stablecoin pairs always settle through
// Curve, everything else through Uniswap V3.
func (s *Selector) Fallback(pair string, notionalUSD decimal.Decimal, confidence float64) *Path {
	kind := classifyPair(pair)

	protocol := "Uniswap V3"
	if kind == kindStablecoin {
		protocol = "Curve"
	}

	var entry catalogEntry
	for _, e := range pathCatalog {
		if e.Protocol == protocol {
			entry = e
			break
		}
	}

	amount, _ := notionalUSD.Float64()

	reason := entry.Reason
	switch {
	case amount > 10_000:
		reason += fmt.Sprintf(" (optimized for $%.0f large transaction)", amount)
	case amount < 1_000:
		reason += fmt.Sprintf(" (fast settlement for $%.2f small amount)", amount)
	default:
		reason += fmt.Sprintf(" (balanced approach for $%.2f)", amount)
	}
	if confidence > 0 && confidence < 0.8 {
		reason += " | low confidence - prioritized security"
	}

	timeSeconds := entry.BaseTimeSeconds
	if amount > largeOrderUSD {
		// Large orders need extra confirmation depth.
		timeSeconds = timeSeconds * 3 / 2
	}

	path := &Path{
		Name:                  entry.Name,
		Protocol:              entry.Protocol,
		EstimatedCostPct:      entry.BaseCostPct,
		SettlementTimeSeconds: timeSeconds,
		Reliability:           entry.Reliability,
		RiskLevel:             entry.RiskLevel,
		Reason:                reason,
		AlternativePaths:      s.alternativeNames(pair, notionalUSD, entry.Name),
		IsRealtime:            false,
		SelectedAt:            time.Now(),
	}

	s.logger.Debug("Selected fallback settlement path",
		"pair", pair,
		"protocol", path.Protocol,
		"kind", string(kind))

	return path
}

// ComparePaths scores every catalog path for the given pair, notional and
// confidence, sorted best-first.
func (s *Selector) ComparePaths(pair string, notionalUSD decimal.Decimal, confidence float64) []ScoredPath {
	kind := classifyPair(pair)
	amount, _ := notionalUSD.Float64()

	scored := make([]ScoredPath, 0, len(pathCatalog))
	for _, entry := range pathCatalog {
		scored = append(scored, ScoredPath{
			Name:                  entry.Name,
			Protocol:              entry.Protocol,
			EstimatedCostPct:      entry.BaseCostPct,
			SettlementTimeSeconds: entry.BaseTimeSeconds,
			Reliability:           entry.Reliability,
			RiskLevel:             entry.RiskLevel,
			Score:                 scorePath(entry, amount, confidence, kind),
			SuitableFor:           entry.BestFor,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// alternativeNames returns the top-ranked catalog names, excluding one.
func (s *Selector) alternativeNames(pair string, notionalUSD decimal.Decimal, exclude string) []string {
	ranked := s.ComparePaths(pair, notionalUSD, 0.9)
	names := make([]string, 0, 3)
	for _, sp := range ranked {
		if sp.Name == exclude {
			continue
		}
		names = append(names, sp.Name)
		if len(names) == 3 {
			break
		}
	}
	return names
}

// scorePath computes the suitability score of one catalog entry.
// Factors: cost, speed, reliability and liquidity fit, with weights shifted
// by order size, and a bonus when the entry targets the pair kind.
func scorePath(entry catalogEntry, amount, confidence float64, kind pairKind) float64 {
	costScore := 1.0 - minF(entry.BaseCostPct/0.01, 1.0)
	speedScore := 1.0 - minF(float64(entry.BaseTimeSeconds)/60.0, 1.0)
	reliabilityScore := entry.Reliability

	liquidityScore := 1.0
	switch {
	case amount < entry.MinLiquidity:
		liquidityScore = 0.5
	case entry.MaxLiquidity > 0 && amount > entry.MaxLiquidity:
		liquidityScore = 0.3
	}

	typeMatch := 1.0
	if (kind == kindStablecoin && entry.BestFor == "stablecoin") ||
		(kind == kindCrypto && entry.BestFor == "crypto") {
		typeMatch = 1.2
	}

	var wCost, wSpeed, wReliability, wLiquidity float64
	switch {
	case amount > 10_000:
		// Large orders: reliability dominates.
		wCost, wSpeed, wReliability, wLiquidity = 0.2, 0.1, 0.5, 0.2
	case amount < 1_000:
		// Small orders: speed dominates.
		wCost, wSpeed, wReliability, wLiquidity = 0.3, 0.5, 0.1, 0.1
	default:
		wCost, wSpeed, wReliability, wLiquidity = 0.4, 0.3, 0.2, 0.1
	}

	if confidence > 0 && confidence < 0.8 {
		wReliability += 0.2
		wCost -= 0.1
		wSpeed -= 0.1
	}

	return (wCost*costScore + wSpeed*speedScore + wReliability*reliabilityScore + wLiquidity*liquidityScore) * typeMatch
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
