package intel

import (
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// PatternKind classifies the repeating structure found in a price ledger
type PatternKind string

const (
	PatternCyclical     PatternKind = "cyclical"
	PatternTrendingUp   PatternKind = "trending-up"
	PatternTrendingDown PatternKind = "trending-down"
	PatternVolatileFlat PatternKind = "volatile-flat"
)

// IsValid checks whether the kind is one of the known values
func (k PatternKind) IsValid() bool {
	switch k {
	case PatternCyclical, PatternTrendingUp, PatternTrendingDown, PatternVolatileFlat:
		return true
	}
	return false
}

// Prediction is a point estimate for the next buy price together with its
// confidence. The estimate is never surfaced without the confidence.
type Prediction struct {
	Value      int
	Confidence float64
	Kind       PatternKind
	ComputedAt time.Time
}

// PricePattern is the latest extracted structure for one (player, port,
// commodity) ledger. Each recomputation fully replaces the prior pattern;
// patterns do not accumulate.
// This is an immutable entity - all fields are private with getters only.
type PricePattern struct {
	playerID             shared.PlayerID
	portID               string
	commodityID          string
	kind                 PatternKind
	confidence           float64
	windowSize           int
	volatility           float64
	predictedValue       int
	predictionConfidence float64
	computedAt           time.Time
}

// NewPricePattern creates a pattern with validation
func NewPricePattern(
	playerID shared.PlayerID,
	portID string,
	commodityID string,
	kind PatternKind,
	confidence float64,
	windowSize int,
	volatility float64,
	predictedValue int,
	predictionConfidence float64,
	computedAt time.Time,
) (*PricePattern, error) {
	if playerID.IsZero() {
		return nil, &ErrInvalidPattern{Field: "player_id", Reason: "player_id cannot be zero"}
	}
	if portID == "" {
		return nil, &ErrInvalidPattern{Field: "port_id", Reason: "port_id cannot be empty"}
	}
	if commodityID == "" {
		return nil, &ErrInvalidPattern{Field: "commodity_id", Reason: "commodity_id cannot be empty"}
	}
	if !kind.IsValid() {
		return nil, &ErrInvalidPattern{Field: "kind", Reason: "unknown pattern kind: " + string(kind)}
	}
	if confidence < 0 || confidence > 1 {
		return nil, &ErrInvalidPattern{Field: "confidence", Reason: "confidence must be in [0,1]"}
	}
	if windowSize < MinObservations {
		return nil, &ErrInvalidPattern{Field: "window_size", Reason: "window smaller than minimum sample size"}
	}
	if predictedValue < 0 {
		return nil, &ErrInvalidPattern{Field: "predicted_value", Reason: "prediction cannot be negative"}
	}
	if predictionConfidence < 0 || predictionConfidence > 1 {
		return nil, &ErrInvalidPattern{Field: "prediction_confidence", Reason: "confidence must be in [0,1]"}
	}

	return &PricePattern{
		playerID:             playerID,
		portID:               portID,
		commodityID:          commodityID,
		kind:                 kind,
		confidence:           confidence,
		windowSize:           windowSize,
		volatility:           volatility,
		predictedValue:       predictedValue,
		predictionConfidence: predictionConfidence,
		computedAt:           computedAt,
	}, nil
}

// Getters (immutable entity - no setters)

func (p *PricePattern) PlayerID() shared.PlayerID {
	return p.playerID
}

func (p *PricePattern) PortID() string {
	return p.portID
}

func (p *PricePattern) CommodityID() string {
	return p.commodityID
}

func (p *PricePattern) Kind() PatternKind {
	return p.kind
}

func (p *PricePattern) Confidence() float64 {
	return p.confidence
}

func (p *PricePattern) WindowSize() int {
	return p.windowSize
}

func (p *PricePattern) Volatility() float64 {
	return p.volatility
}

func (p *PricePattern) PredictedValue() int {
	return p.predictedValue
}

func (p *PricePattern) PredictionConfidence() float64 {
	return p.predictionConfidence
}

func (p *PricePattern) ComputedAt() time.Time {
	return p.computedAt
}

// Prediction extracts the pattern's next-value estimate with its confidence
func (p *PricePattern) Prediction() *Prediction {
	return &Prediction{
		Value:      p.predictedValue,
		Confidence: p.predictionConfidence,
		Kind:       p.kind,
		ComputedAt: p.computedAt,
	}
}
