package aggregator

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

const (
	// iqrMultiplier is the Tukey fence multiplier for outlier rejection.
	iqrMultiplier = 1.5

	// Confidence blend coefficients: source survival ratio, price
	// dispersion, mean per-source confidence.
	ratioWeight      = 0.3
	dispersionWeight = 0.3
	confidenceWeight = 0.4

	// Blended confidence is clamped to this range.
	confidenceFloor = 0.5
	confidenceCeil  = 0.99

	// dispersionFloor bounds how far price disagreement alone can push
	// the dispersion term down.
	dispersionFloor = 0.5
)

// filterOutliers drops quotes whose price falls outside the Tukey fences
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Filtering only engages with at least
// minSamples quotes; below that every quote is kept and price disagreement
// is left to the confidence blend. The input order is irrelevant.
func filterOutliers(quotes []sources.Quote, minSamples int) (kept []sources.Quote, outliers int) {
	if len(quotes) < minSamples {
		return quotes, 0
	}

	prices := make([]float64, len(quotes))
	for i, q := range quotes {
		prices[i], _ = q.Price.Float64()
	}
	sort.Float64s(prices)

	q1 := quantile(prices, 0.25)
	q3 := quantile(prices, 0.75)
	iqr := q3 - q1
	low := q1 - iqrMultiplier*iqr
	high := q3 + iqrMultiplier*iqr

	kept = make([]sources.Quote, 0, len(quotes))
	for _, q := range quotes {
		p, _ := q.Price.Float64()
		if p < low || p > high {
			outliers++
			continue
		}
		kept = append(kept, q)
	}

	return kept, outliers
}

// quantile computes the q-quantile of sorted values with linear interpolation.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// consensusPrice computes the weighted average of the surviving quotes.
// Effective weight = static source weight x per-quote confidence; with a
// degenerate zero total weight it falls back to the arithmetic mean.
// Commutative over the quote set.
func consensusPrice(quotes []sources.Quote, weights map[string]float64) decimal.Decimal {
	if len(quotes) == 0 {
		return decimal.Zero
	}

	weightedSum := decimal.Zero
	totalWeight := decimal.Zero
	for _, q := range quotes {
		static := 1.0
		if w, ok := weights[q.Source]; ok {
			static = w
		}
		weight := decimal.NewFromFloat(static * q.Confidence)
		weightedSum = weightedSum.Add(q.Price.Mul(weight))
		totalWeight = totalWeight.Add(weight)
	}

	if totalWeight.Sign() > 0 {
		return weightedSum.Div(totalWeight)
	}

	// Degenerate weights: fall back to the arithmetic mean.
	sum := decimal.Zero
	for _, q := range quotes {
		sum = sum.Add(q.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(len(quotes))))
}

// blendConfidence combines three signals into the consensus confidence:
// the ratio of surviving to configured sources, an inverse function of the
// coefficient of variation of surviving prices, and the mean per-source
// confidence. The blend is clamped to [0.5, 0.99].
func blendConfidence(surviving []sources.Quote, configured int) float64 {
	if len(surviving) == 0 || configured == 0 {
		return confidenceFloor
	}

	ratio := float64(len(surviving)) / float64(configured)
	if ratio > 1 {
		ratio = 1
	}

	dispersion := dispersionTerm(surviving)

	confSum := 0.0
	for _, q := range surviving {
		confSum += q.Confidence
	}
	meanConf := confSum / float64(len(surviving))

	blended := ratioWeight*ratio + dispersionWeight*dispersion + confidenceWeight*meanConf

	if blended < confidenceFloor {
		return confidenceFloor
	}
	if blended > confidenceCeil {
		return confidenceCeil
	}
	return blended
}

// dispersionTerm maps the coefficient of variation of the surviving prices
// onto [dispersionFloor, 1]: tight agreement scores 1, wide disagreement
// bottoms out at the floor.
func dispersionTerm(quotes []sources.Quote) float64 {
	if len(quotes) < 2 {
		return 1
	}

	prices := make([]float64, len(quotes))
	sum := 0.0
	for i, q := range quotes {
		prices[i], _ = q.Price.Float64()
		sum += prices[i]
	}
	mean := sum / float64(len(prices))
	if mean == 0 {
		return dispersionFloor
	}

	variance := 0.0
	for _, p := range prices {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(prices))
	cv := math.Sqrt(variance) / math.Abs(mean)

	term := 1 - cv*10
	if term < dispersionFloor {
		return dispersionFloor
	}
	return term
}
