package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

func newTestPattern(t *testing.T, playerID shared.PlayerID, portID, commodityID string, kind intel.PatternKind, predicted int) *intel.PricePattern {
	t.Helper()
	pattern, err := intel.NewPricePattern(
		playerID, portID, commodityID,
		kind, 0.7, 10, 2.5, predicted, 0.5,
		time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return pattern
}

func TestPatternRepository_UpsertAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPatternRepository(db)
	playerID := shared.MustNewPlayerID("player-1")
	pattern := newTestPattern(t, playerID, "port-7", "ore", intel.PatternTrendingUp, 13)

	// Act
	require.NoError(t, repo.Upsert(context.Background(), pattern))
	found, err := repo.Find(context.Background(), playerID, "port-7", "ore")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, intel.PatternTrendingUp, found.Kind())
	assert.Equal(t, 13, found.PredictedValue())
	assert.InDelta(t, 0.7, found.Confidence(), 1e-9)
}

func TestPatternRepository_UpsertReplacesPriorPattern(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPatternRepository(db)
	playerID := shared.MustNewPlayerID("player-1")

	require.NoError(t, repo.Upsert(context.Background(), newTestPattern(t, playerID, "port-7", "ore", intel.PatternTrendingUp, 13)))

	// Act - recompute flips the ledger to trending down
	require.NoError(t, repo.Upsert(context.Background(), newTestPattern(t, playerID, "port-7", "ore", intel.PatternTrendingDown, 9)))

	found, err := repo.Find(context.Background(), playerID, "port-7", "ore")
	require.NoError(t, err)
	patterns, err := repo.ListByPlayer(context.Background(), playerID)
	require.NoError(t, err)

	// Assert - one row, latest values
	assert.Equal(t, intel.PatternTrendingDown, found.Kind())
	assert.Equal(t, 9, found.PredictedValue())
	assert.Len(t, patterns, 1)
}

func TestPatternRepository_FindMissingReportsInsufficientData(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPatternRepository(db)

	_, err := repo.Find(context.Background(), shared.MustNewPlayerID("player-1"), "port-7", "ore")

	assert.ErrorIs(t, err, intel.ErrInsufficientData)
}

func TestPatternRepository_ListByPlayer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPatternRepository(db)
	alice := shared.MustNewPlayerID("alice")
	bob := shared.MustNewPlayerID("bob")

	require.NoError(t, repo.Upsert(context.Background(), newTestPattern(t, alice, "port-7", "ore", intel.PatternCyclical, 10)))
	require.NoError(t, repo.Upsert(context.Background(), newTestPattern(t, alice, "port-9", "fuel", intel.PatternVolatileFlat, 5)))
	require.NoError(t, repo.Upsert(context.Background(), newTestPattern(t, bob, "port-7", "ore", intel.PatternTrendingUp, 12)))

	// Act
	patterns, err := repo.ListByPlayer(context.Background(), alice)

	// Assert
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	for _, p := range patterns {
		assert.True(t, p.PlayerID().Equals(alice))
	}
}

func TestPatternRepository_DeleteByPlayer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPatternRepository(db)
	playerID := shared.MustNewPlayerID("player-1")
	require.NoError(t, repo.Upsert(context.Background(), newTestPattern(t, playerID, "port-7", "ore", intel.PatternCyclical, 10)))

	// Act
	require.NoError(t, repo.DeleteByPlayer(context.Background(), playerID))

	// Assert
	_, err := repo.Find(context.Background(), playerID, "port-7", "ore")
	assert.ErrorIs(t, err, intel.ErrInsufficientData)
}
