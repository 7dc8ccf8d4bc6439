package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

func newAuditRepo(t *testing.T) *persistence.GormAuditRepository {
	t.Helper()
	db := helpers.NewTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return persistence.NewGormAuditRepository(db, node)
}

func appendAuditEntry(t *testing.T, repo *persistence.GormAuditRepository, playerID shared.PlayerID, action string, at time.Time) *security.AuditEntry {
	t.Helper()
	entry, err := security.NewAuditEntry(playerID, action, "memory", security.OutcomeOK, "", security.AnomalyNone, at)
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), entry))
	return entry
}

func TestAuditRepository_AppendAssignsOrderedIDs(t *testing.T) {
	// Arrange
	repo := newAuditRepo(t)
	playerID := shared.MustNewPlayerID("player-1")
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Act
	first := appendAuditEntry(t, repo, playerID, "memory_record", at)
	second := appendAuditEntry(t, repo, playerID, "memory_record", at)

	// Assert - ids are assigned and strictly increasing
	assert.NotZero(t, first.ID())
	assert.NotZero(t, second.ID())
	assert.Greater(t, second.ID(), first.ID())
}

func TestAuditRepository_ListByPlayer_MostRecentFirst(t *testing.T) {
	// Arrange
	repo := newAuditRepo(t)
	playerID := shared.MustNewPlayerID("player-1")
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	appendAuditEntry(t, repo, playerID, "memory_record", at)
	appendAuditEntry(t, repo, playerID, "memory_query", at.Add(time.Minute))
	appendAuditEntry(t, repo, playerID, "memory_forget", at.Add(2*time.Minute))

	// Act
	entries, err := repo.ListByPlayer(context.Background(), playerID, 2)

	// Assert
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "memory_forget", entries[0].Action())
	assert.Equal(t, "memory_query", entries[1].Action())
}

func TestAuditRepository_ListByPlayer_ScopedToPlayer(t *testing.T) {
	// Arrange
	repo := newAuditRepo(t)
	alice := shared.MustNewPlayerID("alice")
	bob := shared.MustNewPlayerID("bob")
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	appendAuditEntry(t, repo, alice, "memory_record", at)
	appendAuditEntry(t, repo, bob, "memory_record", at)

	// Act
	entries, err := repo.ListByPlayer(context.Background(), alice, 0)

	// Assert
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].PlayerID().Equals(alice))
}

func TestAuditRepository_CountSince(t *testing.T) {
	// Arrange
	repo := newAuditRepo(t)
	playerID := shared.MustNewPlayerID("player-1")
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	appendAuditEntry(t, repo, playerID, "memory_query", at)
	appendAuditEntry(t, repo, playerID, "memory_query", at.Add(10*time.Minute))
	appendAuditEntry(t, repo, playerID, "memory_query", at.Add(20*time.Minute))
	appendAuditEntry(t, repo, playerID, "memory_record", at.Add(20*time.Minute))

	// Act
	count, err := repo.CountSince(context.Background(), playerID, "memory_query", at.Add(5*time.Minute))

	// Assert - two queries in the window, the record action excluded
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAuditRepository_RoundTripPreservesFields(t *testing.T) {
	// Arrange
	repo := newAuditRepo(t)
	playerID := shared.MustNewPlayerID("player-1")
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	entry, err := security.NewAuditEntry(
		playerID, "cross_player_access", "memory:abc", security.OutcomeDenied,
		"requested player-2", security.AnomalyDenied, at,
	)
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), entry))

	// Act
	entries, err := repo.ListByPlayer(context.Background(), playerID, 1)

	// Assert
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, entry.ID(), got.ID())
	assert.Equal(t, security.OutcomeDenied, got.Outcome())
	assert.Equal(t, "memory:abc", got.Resource())
	assert.Equal(t, "requested player-2", got.Detail())
	assert.InDelta(t, security.AnomalyDenied, got.AnomalyScore(), 1e-9)
}
