package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

func TestEvolvePatternsHandler_BreedsNextGeneration(t *testing.T) {
	// Arrange: a seeded population with one proven member
	env := newCommandEnv(t)
	playerID := shared.MustNewPlayerID("player-1")
	proven := seedTestPopulation(t, env, playerID)[0]
	proven.RecordOutcome(true, 900)
	require.NoError(t, env.heuristicRepo.Save(context.Background(), proven))

	handler := commands.NewEvolvePatternsHandler(env.heuristicRepo, evolution.NewEvolver(8), env.audit, env.locks, env.clock)
	seed := int64(7)

	// Act
	result, err := handler.Handle(context.Background(), &commands.EvolvePatternsCommand{PlayerID: playerID, Seed: &seed})

	// Assert
	require.NoError(t, err)
	response := result.(*commands.EvolvePatternsResponse)
	assert.True(t, response.Evolved)
	assert.Equal(t, 2, response.Generation)
	assert.Equal(t, 8, response.PopulationSize)
	assert.Equal(t, 4, response.Survivors)
	assert.Equal(t, proven.Name(), response.BestName)
	assert.InDelta(t, 0.95, response.BestFitness, 1e-9)

	next, err := env.heuristicRepo.FindByPlayer(context.Background(), playerID)
	require.NoError(t, err)
	require.Len(t, next, 8)

	firstGen := 0
	secondGen := 0
	for _, h := range next {
		switch h.Generation() {
		case 1:
			firstGen++
		case 2:
			secondGen++
			require.NotNil(t, h.ParentID())
		}
	}
	assert.Equal(t, 4, firstGen, "survivors carry over unchanged")
	assert.Equal(t, 4, secondGen, "children fill the remaining slots")

	require.NotNil(t, env.findAuditEntry(t, playerID, "population_evolve"))
}

func TestEvolvePatternsHandler_EmptyPopulationIsNoOp(t *testing.T) {
	// Arrange
	env := newCommandEnv(t)
	handler := commands.NewEvolvePatternsHandler(env.heuristicRepo, evolution.NewEvolver(8), env.audit, env.locks, env.clock)
	playerID := shared.MustNewPlayerID("player-1")

	// Act
	result, err := handler.Handle(context.Background(), &commands.EvolvePatternsCommand{PlayerID: playerID})

	// Assert
	require.NoError(t, err)
	response := result.(*commands.EvolvePatternsResponse)
	assert.False(t, response.Evolved)
	assert.Zero(t, response.Generation)
	assert.Zero(t, response.PopulationSize)

	assert.Nil(t, env.findAuditEntry(t, playerID, "population_evolve"), "a no-op evolution is not audited")
}
