package common_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

func TestQueryRateLimiter_AllowsUpToBudget(t *testing.T) {
	// Arrange
	limiter := common.NewQueryRateLimiter(5)
	playerID := shared.MustNewPlayerID("player-1")

	// Act / Assert
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(playerID), "query %d should pass", i+1)
	}
	assert.False(t, limiter.Allow(playerID), "query over budget should be denied")
}

func TestQueryRateLimiter_PlayersHaveIndependentBudgets(t *testing.T) {
	// Arrange
	limiter := common.NewQueryRateLimiter(1)
	require.True(t, limiter.Allow(shared.MustNewPlayerID("player-a")))
	require.False(t, limiter.Allow(shared.MustNewPlayerID("player-a")))

	// Act / Assert: player-a's exhausted budget does not touch player-b
	assert.True(t, limiter.Allow(shared.MustNewPlayerID("player-b")))
}

func TestQueryRateLimiter_MinimumBudgetIsOne(t *testing.T) {
	// Arrange
	limiter := common.NewQueryRateLimiter(0)
	playerID := shared.MustNewPlayerID("player-1")

	// Act / Assert
	assert.True(t, limiter.Allow(playerID))
	assert.False(t, limiter.Allow(playerID))
}

func TestErrRateLimited_NamesThePlayer(t *testing.T) {
	err := &common.ErrRateLimited{PlayerID: shared.MustNewPlayerID("player-7")}

	assert.Contains(t, err.Error(), "player-7")
}
