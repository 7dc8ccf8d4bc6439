package intel

import (
	"math"
	"time"

	"github.com/sectorwars/aria-core/internal/domain/market"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

const (
	// MinObservations is the hard floor on ledger size before any pattern
	// is emitted; configured minimums may be higher but never lower. Below
	// this the recognizer reports insufficient data instead of guessing.
	MinObservations = 3

	// ConfidenceThreshold separates high-confidence predictions from
	// low-confidence ones in recommendations and route defaults.
	ConfidenceThreshold = 0.6

	// predictionSaturationCount is the sample count at which prediction
	// confidence saturates, just below certainty.
	predictionSaturationCount = 20
	predictionConfidenceCap   = 0.95
)

// Recognizer extracts repeating structure from a price ledger and produces a
// bounded next-value estimate.
//
// This is a domain service with no infrastructure dependencies (no database,
// no transport). All methods are stateless and deterministic.
type Recognizer struct {
	minObservations int
	shortWindow     int     // points in the short moving average and slope fit
	longWindow      int     // points in the long moving average
	trendThreshold  float64 // slope (credits/step) beyond which a trend is called
	highVolatility  float64 // CV ratio above which prices count as volatile
}

// NewRecognizer creates a recognizer. A non-positive minObservations selects
// the default minimum.
func NewRecognizer(minObservations int) *Recognizer {
	if minObservations <= 0 {
		minObservations = MinObservations
	}
	return &Recognizer{
		minObservations: minObservations,
		shortWindow:     5,
		longWindow:      20,
		trendThreshold:  0.5,
		highVolatility:  0.2,
	}
}

// MinSampleSize returns the minimum ledger size this recognizer requires
func (r *Recognizer) MinSampleSize() int {
	return r.minObservations
}

// Analyze computes the current pattern for one (player, port, commodity)
// ledger. Observations must be in chronological order, most recent last.
// Returns ErrInsufficientData when the ledger is smaller than the minimum
// sample size.
func (r *Recognizer) Analyze(
	playerID shared.PlayerID,
	portID string,
	commodityID string,
	observations []*market.PriceObservation,
	now time.Time,
) (*PricePattern, error) {
	if len(observations) < r.minObservations {
		return nil, ErrInsufficientData
	}

	window := observations
	if len(window) > r.longWindow {
		window = window[len(window)-r.longWindow:]
	}

	buyPrices := make([]float64, len(window))
	for i, obs := range window {
		buyPrices[i] = float64(obs.BuyPrice())
	}

	slope := slopeOf(tail(buyPrices, r.shortWindow))
	volatilityPct := market.Volatility(window)
	volRatio := volatilityPct / 100

	kind := r.classify(slope, volRatio, buyPrices)

	// Next value: extrapolate the recent slope from the last price, dampened
	// by volatility so jittery ledgers predict conservatively.
	last := buyPrices[len(buyPrices)-1]
	dampening := 1 / (1 + volRatio)
	predicted := int(math.Round(last + slope*dampening))
	if predicted < 0 {
		predicted = 0
	}

	lastObservedAt := window[len(window)-1].ObservedAt()
	quality := market.QualityScore(len(observations), lastObservedAt, volatilityPct, now)

	// Pattern confidence rises with ledger quality and falls with
	// volatility. Quality already penalizes volatility; the explicit term
	// keeps the ordering strict when quality saturates.
	confidence := clamp01(quality * (1 - 0.5*math.Min(volRatio, 1)))

	predictionConfidence := math.Min(float64(len(observations))/predictionSaturationCount, predictionConfidenceCap)
	predictionConfidence = clamp01(predictionConfidence * (1 - 0.3*math.Min(volRatio, 1)))

	return NewPricePattern(
		playerID,
		portID,
		commodityID,
		kind,
		confidence,
		len(window),
		volatilityPct,
		predicted,
		predictionConfidence,
		now,
	)
}

// classify maps slope and volatility onto a pattern kind. Trends win over
// volatility; a flat ledger is volatile-flat or cyclical depending on how
// jittery it is.
func (r *Recognizer) classify(slope, volRatio float64, prices []float64) PatternKind {
	switch {
	case slope > r.trendThreshold:
		return PatternTrendingUp
	case slope < -r.trendThreshold:
		return PatternTrendingDown
	case volRatio > r.highVolatility:
		return PatternVolatileFlat
	default:
		if directionChanges(prices) >= len(prices)/2 {
			return PatternCyclical
		}
		return PatternVolatileFlat
	}
}

// slopeOf fits a least-squares line through y values at x = 0..n-1 and
// returns its slope in credits per step.
func slopeOf(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// directionChanges counts how often consecutive price deltas flip sign
func directionChanges(prices []float64) int {
	changes := 0
	prevSign := 0
	for i := 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		sign := 0
		if d > 0 {
			sign = 1
		} else if d < 0 {
			sign = -1
		}
		if sign != 0 && prevSign != 0 && sign != prevSign {
			changes++
		}
		if sign != 0 {
			prevSign = sign
		}
	}
	return changes
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
