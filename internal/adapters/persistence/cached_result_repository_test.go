package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/intelligence/ports"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

func TestResultCache_MissComputesAndStores(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	cache := persistence.NewGormResultCache(db, clock)
	playerID := shared.MustNewPlayerID("player-1")

	computed := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computed++
		return []byte(`{"value":13}`), nil
	}

	// Act
	first, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, compute)
	require.NoError(t, err)
	second, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, compute)
	require.NoError(t, err)

	// Assert - one compute, second call served from store
	assert.Equal(t, 1, computed)
	assert.False(t, first.Hit)
	assert.True(t, second.Hit)
	assert.Equal(t, first.Payload, second.Payload)
	assert.WithinDuration(t, clock.Now(), second.ComputedAt, time.Second)
}

func TestResultCache_ExpiredEntryIsRecomputed(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	cache := persistence.NewGormResultCache(db, clock)
	playerID := shared.MustNewPlayerID("player-1")

	computed := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computed++
		return []byte(`{"value":13}`), nil
	}

	_, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, compute)
	require.NoError(t, err)

	// Act - step past the TTL
	clock.Advance(16 * time.Minute)
	result, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, compute)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, computed)
	assert.False(t, result.Hit)
}

func TestResultCache_HitDoesNotExtendTTL(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	cache := persistence.NewGormResultCache(db, clock)
	playerID := shared.MustNewPlayerID("player-1")

	computed := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computed++
		return []byte(`{"value":13}`), nil
	}

	_, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, compute)
	require.NoError(t, err)

	// Act - hits at +10m keep the entry warm but must not push expiry out
	clock.Advance(10 * time.Minute)
	mid, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, compute)
	require.NoError(t, err)
	clock.Advance(6 * time.Minute)
	late, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, compute)
	require.NoError(t, err)

	// Assert - entry expired 16m after compute despite the hit at +10m
	assert.True(t, mid.Hit)
	assert.False(t, late.Hit)
	assert.Equal(t, 2, computed)
}

func TestResultCache_ComputeErrorIsNotStored(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	cache := persistence.NewGormResultCache(db, clock)
	playerID := shared.MustNewPlayerID("player-1")

	sentinel := errors.New("not enough observations")
	calls := 0

	// Act - failing compute twice
	for i := 0; i < 2; i++ {
		_, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, func(ctx context.Context) ([]byte, error) {
			calls++
			return nil, sentinel
		})
		require.ErrorIs(t, err, sentinel)
	}

	// Assert - no entry was cached, both calls recomputed
	assert.Equal(t, 2, calls)
}

func TestResultCache_InvalidateForPrefix(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	cache := persistence.NewGormResultCache(db, clock)
	alice := shared.MustNewPlayerID("alice")
	bob := shared.MustNewPlayerID("bob")

	store := func(playerID shared.PlayerID, key string) {
		_, err := cache.GetOrCompute(context.Background(), playerID, key, 15*time.Minute, func(ctx context.Context) ([]byte, error) {
			return []byte(`{}`), nil
		})
		require.NoError(t, err)
	}
	store(alice, ports.PredictionKeyPrefix+"port-7:ore")
	store(alice, ports.PredictionKeyPrefix+"port-9:fuel")
	store(alice, ports.RouteKeyPrefix+"port-7:4:0.30")
	store(bob, ports.PredictionKeyPrefix+"port-7:ore")

	// Act
	dropped, err := cache.InvalidateFor(context.Background(), alice, ports.PredictionKeyPrefix)

	// Assert - Alice's predictions gone, her route and Bob's entries stay
	require.NoError(t, err)
	assert.Equal(t, int64(2), dropped)

	routeResult, err := cache.GetOrCompute(context.Background(), alice, ports.RouteKeyPrefix+"port-7:4:0.30", 15*time.Minute, func(ctx context.Context) ([]byte, error) {
		t.Fatal("route entry should still be cached")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, routeResult.Hit)

	bobResult, err := cache.GetOrCompute(context.Background(), bob, ports.PredictionKeyPrefix+"port-7:ore", 15*time.Minute, func(ctx context.Context) ([]byte, error) {
		t.Fatal("bob's entry should still be cached")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, bobResult.Hit)
}

func TestResultCache_DeleteByPlayer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	cache := persistence.NewGormResultCache(db, clock)
	playerID := shared.MustNewPlayerID("player-1")

	_, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, func(ctx context.Context) ([]byte, error) {
		return []byte(`{}`), nil
	})
	require.NoError(t, err)

	// Act
	require.NoError(t, cache.DeleteByPlayer(context.Background(), playerID))

	computed := 0
	result, err := cache.GetOrCompute(context.Background(), playerID, "prediction:port-7:ore", 15*time.Minute, func(ctx context.Context) ([]byte, error) {
		computed++
		return []byte(`{}`), nil
	})

	// Assert - entry is gone, compute runs again
	require.NoError(t, err)
	assert.False(t, result.Hit)
	assert.Equal(t, 1, computed)
}
