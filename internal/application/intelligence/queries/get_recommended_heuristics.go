package queries

import (
	"context"
	"fmt"

	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GetRecommendedHeuristicsQuery asks for the player's best trading
// heuristics, ranked by fitness
type GetRecommendedHeuristicsQuery struct {
	PlayerID shared.PlayerID
	Limit    int // Non-positive returns the whole population
}

// HeuristicDTO is one ranked heuristic with its genes and evidence
type HeuristicDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Generation   int             `json:"generation"`
	ParentID     *string         `json:"parent_id,omitempty"`
	Genes        evolution.Genes `json:"genes"`
	Fitness      float64         `json:"fitness"`
	SuccessRate  float64         `json:"success_rate"`
	AvgProfit    float64         `json:"avg_profit"`
	OutcomeCount int             `json:"outcome_count"`
}

// GetRecommendedHeuristicsResponse carries the ranked heuristics. An empty
// list means the player has no population yet.
type GetRecommendedHeuristicsResponse struct {
	Heuristics []HeuristicDTO `json:"heuristics"`
	Generation int            `json:"generation"`
}

// GetRecommendedHeuristicsHandler handles the GetRecommendedHeuristics query
type GetRecommendedHeuristicsHandler struct {
	heuristicRepo evolution.Repository
}

// NewGetRecommendedHeuristicsHandler creates a new GetRecommendedHeuristicsHandler
func NewGetRecommendedHeuristicsHandler(heuristicRepo evolution.Repository) *GetRecommendedHeuristicsHandler {
	return &GetRecommendedHeuristicsHandler{
		heuristicRepo: heuristicRepo,
	}
}

// Handle executes the GetRecommendedHeuristics query
func (h *GetRecommendedHeuristicsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetRecommendedHeuristicsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetRecommendedHeuristicsQuery")
	}

	population, err := h.heuristicRepo.FindByPlayer(ctx, query.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load population: %w", err)
	}

	generation := 0
	for _, heuristic := range population {
		if heuristic.Generation() > generation {
			generation = heuristic.Generation()
		}
	}

	ranked := evolution.Rank(population)
	if query.Limit > 0 && len(ranked) > query.Limit {
		ranked = ranked[:query.Limit]
	}

	dtos := make([]HeuristicDTO, 0, len(ranked))
	for _, heuristic := range ranked {
		dtos = append(dtos, HeuristicDTO{
			ID:           heuristic.ID(),
			Name:         heuristic.Name(),
			Generation:   heuristic.Generation(),
			ParentID:     heuristic.ParentID(),
			Genes:        heuristic.Genes(),
			Fitness:      heuristic.Fitness(),
			SuccessRate:  heuristic.SuccessRate(),
			AvgProfit:    heuristic.AvgProfit(),
			OutcomeCount: heuristic.OutcomeCount(),
		})
	}

	return &GetRecommendedHeuristicsResponse{
		Heuristics: dtos,
		Generation: generation,
	}, nil
}
