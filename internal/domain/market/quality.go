package market

import (
	"math"
	"time"
)

// Data quality scoring weights. Sample count, freshness, and price stability
// each contribute; the cap below 1.0 keeps even a perfect ledger from
// claiming certainty.
const (
	qualityDataWeight      = 0.4
	qualityRecencyWeight   = 0.4
	qualityStabilityWeight = 0.2
	qualityCap             = 0.99

	// dataSaturationCount is the sample count at which the data component
	// of the quality score saturates.
	dataSaturationCount = 50

	// recencyHorizonDays is the staleness horizon: data older than this
	// contributes zero recency.
	recencyHorizonDays = 30
)

// QualityScore rates a (port, commodity) ledger in [0,1] from its sample
// count, the age of the freshest observation, and price volatility
// (coefficient of variation, in percent). More and fresher observations with
// steadier prices score higher. Downstream consumers use this to gate
// prediction confidence.
func QualityScore(sampleCount int, lastObservedAt time.Time, volatilityPct float64, now time.Time) float64 {
	if sampleCount <= 0 {
		return 0
	}

	dataScore := math.Min(float64(sampleCount)/dataSaturationCount, 1.0)

	ageDays := now.Sub(lastObservedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	recencyScore := math.Max(0, 1.0-ageDays/recencyHorizonDays)

	stabilityScore := math.Max(0, 1.0-volatilityPct/100)

	score := qualityDataWeight*dataScore +
		qualityRecencyWeight*recencyScore +
		qualityStabilityWeight*stabilityScore
	return math.Min(score, qualityCap)
}

// Volatility computes the coefficient of variation of the observations' mid
// prices, in percent. Zero observations or a zero mean yield zero.
func Volatility(observations []*PriceObservation) float64 {
	if len(observations) < 2 {
		return 0
	}

	var sum float64
	for _, obs := range observations {
		sum += obs.MidPrice()
	}
	mean := sum / float64(len(observations))
	if mean == 0 {
		return 0
	}

	var sqDiff float64
	for _, obs := range observations {
		d := obs.MidPrice() - mean
		sqDiff += d * d
	}
	stdDev := math.Sqrt(sqDiff / float64(len(observations)))

	return stdDev / mean * 100
}
