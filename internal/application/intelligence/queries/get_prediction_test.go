package queries_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

func newPredictionHandler(env *queryEnv) *queries.GetPredictionHandler {
	return queries.NewGetPredictionHandler(env.patternRepo, env.cache, 15*time.Minute)
}

func TestGetPredictionHandler_AnswersFromStoredPattern(t *testing.T) {
	// Arrange
	env := newQueryEnv(t)
	handler := newPredictionHandler(env)
	playerID := shared.MustNewPlayerID("player-1")
	env.seedPattern(t, playerID, "sol-a3", "ore", 13, 0.82)

	// Act
	result, err := handler.Handle(context.Background(), &queries.GetPredictionQuery{
		PlayerID:    playerID,
		PortID:      "sol-a3",
		CommodityID: "ore",
	})

	// Assert
	require.NoError(t, err)
	response := result.(*queries.GetPredictionResponse)
	assert.True(t, response.Available)
	assert.Empty(t, response.Reason)
	assert.Equal(t, 13, response.PredictedValue)
	assert.InDelta(t, 0.82, response.Confidence, 0.0001)
	assert.Equal(t, "trending-up", response.PatternKind)
	assert.True(t, response.ComputedAt.Equal(env.clock.Now()))
	assert.False(t, response.FromCache)
}

func TestGetPredictionHandler_SecondCallServedFromCache(t *testing.T) {
	// Arrange
	env := newQueryEnv(t)
	handler := newPredictionHandler(env)
	playerID := shared.MustNewPlayerID("player-1")
	env.seedPattern(t, playerID, "sol-a3", "ore", 13, 0.82)
	query := &queries.GetPredictionQuery{PlayerID: playerID, PortID: "sol-a3", CommodityID: "ore"}

	first, err := handler.Handle(context.Background(), query)
	require.NoError(t, err)
	require.False(t, first.(*queries.GetPredictionResponse).FromCache)

	// The pattern changes, but the cached answer is still live
	env.seedPattern(t, playerID, "sol-a3", "ore", 99, 0.5)

	// Act
	second, err := handler.Handle(context.Background(), query)

	// Assert
	require.NoError(t, err)
	response := second.(*queries.GetPredictionResponse)
	assert.True(t, response.FromCache)
	assert.Equal(t, 13, response.PredictedValue)
}

func TestGetPredictionHandler_InsufficientDataIsNotAnError(t *testing.T) {
	// Arrange
	env := newQueryEnv(t)
	handler := newPredictionHandler(env)
	playerID := shared.MustNewPlayerID("player-1")

	// Act
	result, err := handler.Handle(context.Background(), &queries.GetPredictionQuery{
		PlayerID:    playerID,
		PortID:      "sol-a3",
		CommodityID: "ore",
	})

	// Assert
	require.NoError(t, err)
	response := result.(*queries.GetPredictionResponse)
	assert.False(t, response.Available)
	assert.Equal(t, "insufficient data", response.Reason)
	assert.Zero(t, response.PredictedValue)
	assert.Zero(t, response.Confidence)
}

func TestGetPredictionHandler_InsufficientDataIsNeverCached(t *testing.T) {
	// Arrange
	env := newQueryEnv(t)
	handler := newPredictionHandler(env)
	playerID := shared.MustNewPlayerID("player-1")
	query := &queries.GetPredictionQuery{PlayerID: playerID, PortID: "sol-a3", CommodityID: "ore"}

	first, err := handler.Handle(context.Background(), query)
	require.NoError(t, err)
	require.False(t, first.(*queries.GetPredictionResponse).Available)

	// The ledger crosses the minimum sample size between the two calls
	env.seedPattern(t, playerID, "sol-a3", "ore", 13, 0.82)

	// Act
	second, err := handler.Handle(context.Background(), query)

	// Assert
	require.NoError(t, err)
	response := second.(*queries.GetPredictionResponse)
	assert.True(t, response.Available)
	assert.Equal(t, 13, response.PredictedValue)
	assert.False(t, response.FromCache)
}

func TestGetPredictionHandler_WorksWithoutCache(t *testing.T) {
	// Arrange
	env := newQueryEnv(t)
	handler := queries.NewGetPredictionHandler(env.patternRepo, nil, 0)
	playerID := shared.MustNewPlayerID("player-1")
	env.seedPattern(t, playerID, "sol-a3", "ore", 13, 0.82)

	// Act
	result, err := handler.Handle(context.Background(), &queries.GetPredictionQuery{
		PlayerID:    playerID,
		PortID:      "sol-a3",
		CommodityID: "ore",
	})

	// Assert
	require.NoError(t, err)
	response := result.(*queries.GetPredictionResponse)
	assert.True(t, response.Available)
	assert.Equal(t, 13, response.PredictedValue)
	assert.False(t, response.FromCache)
}

func TestGetPredictionHandler_PlayersDoNotShareCache(t *testing.T) {
	// Arrange
	env := newQueryEnv(t)
	handler := newPredictionHandler(env)
	alice := shared.MustNewPlayerID("player-1")
	bob := shared.MustNewPlayerID("player-2")
	env.seedPattern(t, alice, "sol-a3", "ore", 13, 0.82)

	first, err := handler.Handle(context.Background(), &queries.GetPredictionQuery{PlayerID: alice, PortID: "sol-a3", CommodityID: "ore"})
	require.NoError(t, err)
	require.True(t, first.(*queries.GetPredictionResponse).Available)

	// Act: same port and commodity, different player
	result, err := handler.Handle(context.Background(), &queries.GetPredictionQuery{PlayerID: bob, PortID: "sol-a3", CommodityID: "ore"})

	// Assert
	require.NoError(t, err)
	response := result.(*queries.GetPredictionResponse)
	assert.False(t, response.Available)
	assert.Equal(t, "insufficient data", response.Reason)
}
