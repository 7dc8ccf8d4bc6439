package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/ports"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

func newPurgeHandler(env *commandEnv) *commands.PurgePlayerDataHandler {
	return commands.NewPurgePlayerDataHandler(
		env.memoryRepo,
		env.observationRepo,
		env.patternRepo,
		env.heuristicRepo,
		env.visitRepo,
		env.linkRepo,
		env.cache,
		env.audit,
		env.locks,
	)
}

// fillAllStores populates every player-scoped store so a purge has real work
// to do: two visits with a travel link, three observations producing a
// pattern, a seeded population, and one cached result.
func fillAllStores(t *testing.T, env *commandEnv, playerID shared.PlayerID) {
	t.Helper()
	ctx := context.Background()

	visits := newVisitHandler(env)
	_, err := visits.Handle(ctx, &commands.RecordVisitCommand{PlayerID: playerID, SectorID: "sol", PortID: "sol-a3", PortClass: "hub"})
	require.NoError(t, err)
	_, err = visits.Handle(ctx, &commands.RecordVisitCommand{PlayerID: playerID, SectorID: "vega", PortID: "vega-b1", PortClass: "outpost", FromPortID: "sol-a3"})
	require.NoError(t, err)

	observations := newObservationHandler(env)
	recordPrice(t, env, observations, playerID, 10, 8)
	env.clock.Advance(time.Hour)
	recordPrice(t, env, observations, playerID, 11, 9)
	env.clock.Advance(time.Hour)
	recordPrice(t, env, observations, playerID, 12, 10)

	seedTestPopulation(t, env, playerID)

	cached, err := env.cache.GetOrCompute(ctx, playerID, ports.PredictionKeyPrefix+"sol-a3:ore", time.Hour, func(context.Context) ([]byte, error) {
		return []byte(`{"predicted":13}`), nil
	})
	require.NoError(t, err)
	require.False(t, cached.Hit)
}

func TestPurgePlayerDataHandler_ErasesEverything(t *testing.T) {
	// Arrange
	env := newCommandEnv(t)
	handler := newPurgeHandler(env)
	playerID := shared.MustNewPlayerID("player-1")
	fillAllStores(t, env, playerID)

	// Act
	result, err := handler.Handle(context.Background(), &commands.PurgePlayerDataCommand{PlayerID: playerID})

	// Assert
	require.NoError(t, err)
	response := result.(*commands.PurgePlayerDataResponse)
	assert.True(t, response.Purged)
	assert.Equal(t, []string{"memories", "observations", "patterns", "heuristics", "visits", "links", "cache"}, response.Stores)

	ctx := context.Background()

	memoryCount, err := env.memoryRepo.CountByPlayer(ctx, playerID)
	require.NoError(t, err)
	assert.Zero(t, memoryCount)

	history, err := env.observationRepo.History(ctx, playerID, "sol-a3", "ore", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = env.patternRepo.Find(ctx, playerID, "sol-a3", "ore")
	assert.ErrorIs(t, err, intel.ErrInsufficientData)

	population, err := env.heuristicRepo.FindByPlayer(ctx, playerID)
	require.NoError(t, err)
	assert.Empty(t, population)

	visitCount, err := env.visitRepo.CountByPlayer(ctx, playerID)
	require.NoError(t, err)
	assert.Zero(t, visitCount)

	links, err := env.linkRepo.ListByPlayer(ctx, playerID)
	require.NoError(t, err)
	assert.Empty(t, links)

	recomputed, err := env.cache.GetOrCompute(ctx, playerID, ports.PredictionKeyPrefix+"sol-a3:ore", time.Hour, func(context.Context) ([]byte, error) {
		return []byte(`{"fresh":true}`), nil
	})
	require.NoError(t, err)
	assert.False(t, recomputed.Hit)
	assert.Equal(t, []byte(`{"fresh":true}`), recomputed.Payload)
}

func TestPurgePlayerDataHandler_AuditLogSurvives(t *testing.T) {
	// Arrange
	env := newCommandEnv(t)
	handler := newPurgeHandler(env)
	playerID := shared.MustNewPlayerID("player-1")
	fillAllStores(t, env, playerID)

	// Act
	_, err := handler.Handle(context.Background(), &commands.PurgePlayerDataCommand{PlayerID: playerID})

	// Assert
	require.NoError(t, err)
	entry := env.findAuditEntry(t, playerID, "player_purge")
	require.NotNil(t, entry)
	assert.Equal(t, "all", entry.Resource())
	assert.Equal(t, security.OutcomeOK, entry.Outcome())
	assert.Equal(t, "requested", entry.Detail())
	assert.InDelta(t, security.AnomalyPurge, entry.AnomalyScore(), 0.0001)

	// Entries written before the purge are still there
	assert.NotNil(t, env.findAuditEntry(t, playerID, "population_seed"))
}

func TestPurgePlayerDataHandler_RejectsZeroPlayer(t *testing.T) {
	// Arrange
	env := newCommandEnv(t)
	handler := newPurgeHandler(env)

	// Act
	_, err := handler.Handle(context.Background(), &commands.PurgePlayerDataCommand{PlayerID: shared.PlayerID{}})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "player_id cannot be zero")
}

func TestPurgePlayerDataHandler_OtherPlayersUntouched(t *testing.T) {
	// Arrange
	env := newCommandEnv(t)
	handler := newPurgeHandler(env)
	doomed := shared.MustNewPlayerID("player-1")
	bystander := shared.MustNewPlayerID("player-2")

	visits := newVisitHandler(env)
	_, err := visits.Handle(context.Background(), &commands.RecordVisitCommand{PlayerID: doomed, SectorID: "sol", PortID: "sol-a3", PortClass: "hub"})
	require.NoError(t, err)
	_, err = visits.Handle(context.Background(), &commands.RecordVisitCommand{PlayerID: bystander, SectorID: "sol", PortID: "sol-a3", PortClass: "hub"})
	require.NoError(t, err)

	// Act
	_, err = handler.Handle(context.Background(), &commands.PurgePlayerDataCommand{PlayerID: doomed})

	// Assert
	require.NoError(t, err)

	gone, err := env.visitRepo.FindByPort(context.Background(), doomed, "sol-a3")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := env.visitRepo.FindByPort(context.Background(), bystander, "sol-a3")
	require.NoError(t, err)
	require.NotNil(t, kept)

	bystanderMemories, err := env.memoryRepo.CountByPlayer(context.Background(), bystander)
	require.NoError(t, err)
	assert.EqualValues(t, 1, bystanderMemories)
}
