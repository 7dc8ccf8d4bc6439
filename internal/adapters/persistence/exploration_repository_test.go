package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

func TestVisitRepository_SaveAndFindByPort(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormVisitRepository(db)
	playerID := shared.MustNewPlayerID("player-1")
	visitedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	visit, err := exploration.NewVisitRecord(playerID, "sector-3", "port-7", "industrial", visitedAt)
	require.NoError(t, err)

	// Act
	require.NoError(t, repo.Save(context.Background(), visit))
	found, err := repo.FindByPort(context.Background(), playerID, "port-7")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "sector-3", found.SectorID())
	assert.Equal(t, "industrial", found.PortClass())
	assert.Equal(t, 1, found.VisitCount())
}

func TestVisitRepository_FindByPort_NeverVisitedReturnsNil(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormVisitRepository(db)

	found, err := repo.FindByPort(context.Background(), shared.MustNewPlayerID("player-1"), "port-99")

	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestVisitRepository_RevisitUpdatesCounters(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormVisitRepository(db)
	playerID := shared.MustNewPlayerID("player-1")
	firstAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	visit, err := exploration.NewVisitRecord(playerID, "sector-3", "port-7", "industrial", firstAt)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), visit))

	// Act - reload, revisit, save again
	found, err := repo.FindByPort(context.Background(), playerID, "port-7")
	require.NoError(t, err)
	found.RecordRevisit(firstAt.Add(48 * time.Hour))
	require.NoError(t, repo.Save(context.Background(), found))

	reloaded, err := repo.FindByPort(context.Background(), playerID, "port-7")

	// Assert - first visit stays, counters move
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.VisitCount())
	assert.WithinDuration(t, firstAt, reloaded.FirstVisitedAt(), time.Second)
	assert.WithinDuration(t, firstAt.Add(48*time.Hour), reloaded.LastVisitedAt(), time.Second)
}

func TestVisitRepository_CountAndDeleteByPlayer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormVisitRepository(db)
	alice := shared.MustNewPlayerID("alice")
	bob := shared.MustNewPlayerID("bob")
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, portID := range []string{"port-1", "port-2", "port-3"} {
		visit, err := exploration.NewVisitRecord(alice, "sector-1", portID, "hub", at)
		require.NoError(t, err)
		require.NoError(t, repo.Save(context.Background(), visit))
	}
	bobVisit, err := exploration.NewVisitRecord(bob, "sector-1", "port-1", "hub", at)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), bobVisit))

	// Act
	count, err := repo.CountByPlayer(context.Background(), alice)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteByPlayer(context.Background(), alice))
	after, err := repo.CountByPlayer(context.Background(), alice)
	require.NoError(t, err)
	bobCount, err := repo.CountByPlayer(context.Background(), bob)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, int64(3), count)
	assert.Equal(t, int64(0), after)
	assert.Equal(t, int64(1), bobCount)
}

func TestLinkRepository_SaveAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormLinkRepository(db)
	playerID := shared.MustNewPlayerID("player-1")
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	link, err := exploration.NewTravelLink(playerID, "port-1", "port-2", at)
	require.NoError(t, err)

	// Act
	require.NoError(t, repo.Save(context.Background(), link))
	found, err := repo.Find(context.Background(), playerID, "port-1", "port-2")
	reverse, errReverse := repo.Find(context.Background(), playerID, "port-2", "port-1")

	// Assert - links are directed
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, found.TravelCount())
	require.NoError(t, errReverse)
	assert.Nil(t, reverse)
}

func TestLinkRepository_RepeatTraversalBumpsCount(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormLinkRepository(db)
	playerID := shared.MustNewPlayerID("player-1")
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	link, err := exploration.NewTravelLink(playerID, "port-1", "port-2", at)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), link))

	// Act
	found, err := repo.Find(context.Background(), playerID, "port-1", "port-2")
	require.NoError(t, err)
	found.RecordTraversal()
	require.NoError(t, repo.Save(context.Background(), found))

	reloaded, err := repo.Find(context.Background(), playerID, "port-1", "port-2")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.TravelCount())
}

func TestLinkRepository_ListAndDeleteByPlayer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormLinkRepository(db)
	alice := shared.MustNewPlayerID("alice")
	bob := shared.MustNewPlayerID("bob")
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	pairs := [][2]string{{"port-1", "port-2"}, {"port-2", "port-3"}}
	for _, pair := range pairs {
		link, err := exploration.NewTravelLink(alice, pair[0], pair[1], at)
		require.NoError(t, err)
		require.NoError(t, repo.Save(context.Background(), link))
	}
	bobLink, err := exploration.NewTravelLink(bob, "port-1", "port-2", at)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), bobLink))

	// Act
	links, err := repo.ListByPlayer(context.Background(), alice)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteByPlayer(context.Background(), alice))
	after, err := repo.ListByPlayer(context.Background(), alice)
	require.NoError(t, err)
	bobLinks, err := repo.ListByPlayer(context.Background(), bob)
	require.NoError(t, err)

	// Assert
	assert.Len(t, links, 2)
	assert.Empty(t, after)
	assert.Len(t, bobLinks, 1)
}
