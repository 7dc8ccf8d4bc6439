package queries_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

func TestGetRecommendedHeuristicsHandler_RanksByFitness(t *testing.T) {
	// Arrange
	env := newQueryEnv(t)
	handler := queries.NewGetRecommendedHeuristicsHandler(env.heuristicRepo)
	playerID := shared.MustNewPlayerID("player-1")

	proven := env.seedPopulation(t, playerID)[0]
	proven.RecordOutcome(true, 900)
	require.NoError(t, env.heuristicRepo.Save(context.Background(), proven))

	// Act
	result, err := handler.Handle(context.Background(), &queries.GetRecommendedHeuristicsQuery{PlayerID: playerID})

	// Assert
	require.NoError(t, err)
	response := result.(*queries.GetRecommendedHeuristicsResponse)
	assert.Equal(t, 1, response.Generation)
	require.Len(t, response.Heuristics, 8)

	best := response.Heuristics[0]
	assert.Equal(t, proven.ID(), best.ID)
	assert.Equal(t, proven.Name(), best.Name)
	assert.InDelta(t, 0.95, best.Fitness, 0.0001)
	assert.InDelta(t, 1.0, best.SuccessRate, 0.0001)
	assert.InDelta(t, 900.0, best.AvgProfit, 0.0001)
	assert.Equal(t, 1, best.OutcomeCount)
	assert.Nil(t, best.ParentID)
	assert.Equal(t, proven.Genes(), best.Genes)
}

func TestGetRecommendedHeuristicsHandler_LimitsResults(t *testing.T) {
	// Arrange
	env := newQueryEnv(t)
	handler := queries.NewGetRecommendedHeuristicsHandler(env.heuristicRepo)
	playerID := shared.MustNewPlayerID("player-1")
	env.seedPopulation(t, playerID)

	// Act
	result, err := handler.Handle(context.Background(), &queries.GetRecommendedHeuristicsQuery{PlayerID: playerID, Limit: 3})

	// Assert
	require.NoError(t, err)
	response := result.(*queries.GetRecommendedHeuristicsResponse)
	assert.Len(t, response.Heuristics, 3)
}

func TestGetRecommendedHeuristicsHandler_NoPopulationYet(t *testing.T) {
	// Arrange
	env := newQueryEnv(t)
	handler := queries.NewGetRecommendedHeuristicsHandler(env.heuristicRepo)
	playerID := shared.MustNewPlayerID("player-1")

	// Act
	result, err := handler.Handle(context.Background(), &queries.GetRecommendedHeuristicsQuery{PlayerID: playerID})

	// Assert
	require.NoError(t, err)
	response := result.(*queries.GetRecommendedHeuristicsResponse)
	assert.Empty(t, response.Heuristics)
	assert.Zero(t, response.Generation)
}
