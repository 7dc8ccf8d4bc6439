package intel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/market"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

var analyzeStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// ledgerOf builds a chronological ledger with buy=sell so the mid price
// tracks the buy price exactly
func ledgerOf(t *testing.T, prices ...int) []*market.PriceObservation {
	t.Helper()
	playerID := shared.MustNewPlayerID("player-1")
	observations := make([]*market.PriceObservation, len(prices))
	for i, price := range prices {
		obs, err := market.NewPriceObservation(
			playerID, "port-7", "ore", price, price, analyzeStart.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		observations[i] = obs
	}
	return observations
}

func analyze(t *testing.T, prices ...int) *intel.PricePattern {
	t.Helper()
	recognizer := intel.NewRecognizer(0)
	pattern, err := recognizer.Analyze(
		shared.MustNewPlayerID("player-1"), "port-7", "ore",
		ledgerOf(t, prices...),
		analyzeStart.Add(time.Duration(len(prices))*time.Hour),
	)
	require.NoError(t, err)
	return pattern
}

func TestRecognizer_InsufficientData(t *testing.T) {
	recognizer := intel.NewRecognizer(0)

	_, err := recognizer.Analyze(
		shared.MustNewPlayerID("player-1"), "port-7", "ore",
		ledgerOf(t, 10, 11),
		analyzeStart,
	)

	assert.ErrorIs(t, err, intel.ErrInsufficientData)
}

func TestRecognizer_CustomMinimumSampleSize(t *testing.T) {
	recognizer := intel.NewRecognizer(5)
	assert.Equal(t, 5, recognizer.MinSampleSize())

	_, err := recognizer.Analyze(
		shared.MustNewPlayerID("player-1"), "port-7", "ore",
		ledgerOf(t, 10, 11, 12, 13),
		analyzeStart,
	)
	assert.ErrorIs(t, err, intel.ErrInsufficientData)

	// Non-positive falls back to the default
	assert.Equal(t, intel.MinObservations, intel.NewRecognizer(-1).MinSampleSize())
}

func TestRecognizer_RisingLedgerTrendsUp(t *testing.T) {
	pattern := analyze(t, 10, 11, 12)

	assert.Equal(t, intel.PatternTrendingUp, pattern.Kind())

	// Slope 1/step from the last price 12, lightly dampened by the mild
	// volatility, rounds to 13
	assert.Equal(t, 13, pattern.PredictedValue())
	assert.Greater(t, pattern.PredictionConfidence(), 0.0)
}

func TestRecognizer_FallingLedgerTrendsDown(t *testing.T) {
	pattern := analyze(t, 20, 19, 18)

	assert.Equal(t, intel.PatternTrendingDown, pattern.Kind())
	assert.Less(t, pattern.PredictedValue(), 18)
}

func TestRecognizer_AlternatingLedgerIsCyclical(t *testing.T) {
	pattern := analyze(t, 10, 12, 10, 12, 10, 12)

	assert.Equal(t, intel.PatternCyclical, pattern.Kind())
}

func TestRecognizer_JitteryFlatLedgerIsVolatileFlat(t *testing.T) {
	// Near-zero slope over the short window but a wide swing band
	pattern := analyze(t, 110, 150, 70, 110, 70, 150)

	assert.Equal(t, intel.PatternVolatileFlat, pattern.Kind())
}

func TestRecognizer_PredictionNeverNegative(t *testing.T) {
	// A collapsing price cannot extrapolate below zero
	pattern := analyze(t, 9, 5, 1)

	assert.GreaterOrEqual(t, pattern.PredictedValue(), 0)
}

func TestRecognizer_ConfidenceGrowsWithEvidence(t *testing.T) {
	thin := analyze(t, 10, 11, 12)
	thick := analyze(t, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)

	assert.Greater(t, thick.PredictionConfidence(), thin.PredictionConfidence())
}

func TestRecognizer_ConfidenceCapped(t *testing.T) {
	// A long, perfectly clean trend saturates prediction confidence below
	// certainty
	prices := make([]int, 40)
	for i := range prices {
		prices[i] = 100 + i
	}
	pattern := analyze(t, prices...)

	assert.LessOrEqual(t, pattern.PredictionConfidence(), 0.95)
	assert.Less(t, pattern.Confidence(), 1.0)
}

func TestRecognizer_Deterministic(t *testing.T) {
	first := analyze(t, 10, 14, 11, 15, 12, 16)
	second := analyze(t, 10, 14, 11, 15, 12, 16)

	assert.Equal(t, first.Kind(), second.Kind())
	assert.Equal(t, first.PredictedValue(), second.PredictedValue())
	assert.Equal(t, first.PredictionConfidence(), second.PredictionConfidence())
}

func TestNewPricePattern_Validation(t *testing.T) {
	playerID := shared.MustNewPlayerID("player-1")
	now := analyzeStart

	tests := []struct {
		name  string
		build func() (*intel.PricePattern, error)
		field string
	}{
		{"zero player", func() (*intel.PricePattern, error) {
			return intel.NewPricePattern(shared.PlayerID{}, "port-7", "ore", intel.PatternCyclical, 0.5, 5, 10, 42, 0.5, now)
		}, "player_id"},
		{"empty port", func() (*intel.PricePattern, error) {
			return intel.NewPricePattern(playerID, "", "ore", intel.PatternCyclical, 0.5, 5, 10, 42, 0.5, now)
		}, "port_id"},
		{"unknown kind", func() (*intel.PricePattern, error) {
			return intel.NewPricePattern(playerID, "port-7", "ore", intel.PatternKind("sideways"), 0.5, 5, 10, 42, 0.5, now)
		}, "kind"},
		{"confidence above one", func() (*intel.PricePattern, error) {
			return intel.NewPricePattern(playerID, "port-7", "ore", intel.PatternCyclical, 1.5, 5, 10, 42, 0.5, now)
		}, "confidence"},
		{"window too small", func() (*intel.PricePattern, error) {
			return intel.NewPricePattern(playerID, "port-7", "ore", intel.PatternCyclical, 0.5, 2, 10, 42, 0.5, now)
		}, "window_size"},
		{"negative prediction", func() (*intel.PricePattern, error) {
			return intel.NewPricePattern(playerID, "port-7", "ore", intel.PatternCyclical, 0.5, 5, 10, -1, 0.5, now)
		}, "predicted_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)

			var invalid *intel.ErrInvalidPattern
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestPricePattern_Prediction(t *testing.T) {
	pattern, err := intel.NewPricePattern(
		shared.MustNewPlayerID("player-1"), "port-7", "ore",
		intel.PatternTrendingUp, 0.8, 5, 7.5, 42, 0.6, analyzeStart)
	require.NoError(t, err)

	prediction := pattern.Prediction()
	assert.Equal(t, 42, prediction.Value)
	assert.Equal(t, 0.6, prediction.Confidence)
	assert.Equal(t, intel.PatternTrendingUp, prediction.Kind)
	assert.Equal(t, analyzeStart, prediction.ComputedAt)
}
