package queries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sectorwars/aria-core/internal/application/intelligence/ports"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

const defaultPredictionTTL = 15 * time.Minute

// GetPredictionQuery asks for the expected next price of a commodity at a
// port, based solely on the player's own observations
type GetPredictionQuery struct {
	PlayerID    shared.PlayerID
	PortID      string
	CommodityID string
}

// GetPredictionResponse is the prediction outcome. Available=false with a
// reason is a normal outcome for thin ledgers, not an error; no value or
// confidence is fabricated in that case.
type GetPredictionResponse struct {
	Available      bool      `json:"available"`
	Reason         string    `json:"reason,omitempty"`
	PredictedValue int       `json:"predicted_value"`
	Confidence     float64   `json:"confidence"`
	PatternKind    string    `json:"pattern_kind"`
	ComputedAt     time.Time `json:"computed_at"`
	FromCache      bool      `json:"-"`
}

// GetPredictionHandler handles the GetPrediction query
type GetPredictionHandler struct {
	patternRepo intel.PatternRepository
	cache       ports.ResultCache
	cacheTTL    time.Duration
}

// NewGetPredictionHandler creates a new GetPredictionHandler
func NewGetPredictionHandler(
	patternRepo intel.PatternRepository,
	cache ports.ResultCache,
	cacheTTL time.Duration,
) *GetPredictionHandler {
	if cacheTTL <= 0 {
		cacheTTL = defaultPredictionTTL
	}

	return &GetPredictionHandler{
		patternRepo: patternRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

// Handle executes the GetPrediction query
func (h *GetPredictionHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetPredictionQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetPredictionQuery")
	}

	if h.cache == nil {
		return h.compute(ctx, query)
	}

	key := ports.PredictionKeyPrefix + query.PortID + ":" + query.CommodityID

	cached, err := h.cache.GetOrCompute(ctx, query.PlayerID, key, h.cacheTTL, func(ctx context.Context) ([]byte, error) {
		response, err := h.compute(ctx, query)
		if err != nil {
			return nil, err
		}
		// Insufficient-data outcomes are never cached: the ledger may cross
		// the minimum sample size at any moment and the stale answer would
		// hide it.
		if !response.Available {
			return nil, intel.ErrInsufficientData
		}
		return json.Marshal(response)
	})
	if err != nil {
		if errors.Is(err, intel.ErrInsufficientData) {
			return insufficientData(), nil
		}
		return nil, err
	}

	var response GetPredictionResponse
	if err := json.Unmarshal(cached.Payload, &response); err != nil {
		return nil, fmt.Errorf("failed to decode cached prediction: %w", err)
	}
	response.FromCache = cached.Hit

	return &response, nil
}

// compute answers the prediction from the stored pattern
func (h *GetPredictionHandler) compute(ctx context.Context, query *GetPredictionQuery) (*GetPredictionResponse, error) {
	pattern, err := h.patternRepo.Find(ctx, query.PlayerID, query.PortID, query.CommodityID)
	if err != nil {
		if errors.Is(err, intel.ErrInsufficientData) {
			return insufficientData(), nil
		}
		return nil, fmt.Errorf("failed to load pattern: %w", err)
	}

	prediction := pattern.Prediction()

	return &GetPredictionResponse{
		Available:      true,
		PredictedValue: prediction.Value,
		Confidence:     prediction.Confidence,
		PatternKind:    string(prediction.Kind),
		ComputedAt:     prediction.ComputedAt,
	}, nil
}

func insufficientData() *GetPredictionResponse {
	return &GetPredictionResponse{
		Available: false,
		Reason:    "insufficient data",
	}
}
