package common_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

func TestPlayerLocks_SerializesSamePlayer(t *testing.T) {
	// Arrange
	locks := common.NewPlayerLocks()
	playerID := shared.MustNewPlayerID("player-1")
	release := locks.Lock(playerID)

	acquired := make(chan struct{})
	go func() {
		unlock := locks.Lock(playerID)
		close(acquired)
		unlock()
	}()

	// Assert: the second caller stays blocked while the lock is held
	select {
	case <-acquired:
		t.Fatal("second caller acquired the lock while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	// Act
	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second caller never acquired the lock after release")
	}
}

func TestPlayerLocks_DistinctPlayersRunInParallel(t *testing.T) {
	// Arrange
	locks := common.NewPlayerLocks()
	releaseA := locks.Lock(shared.MustNewPlayerID("player-a"))
	defer releaseA()

	// Act
	acquired := make(chan struct{})
	go func() {
		unlock := locks.Lock(shared.MustNewPlayerID("player-b"))
		close(acquired)
		unlock()
	}()

	// Assert
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("player-b blocked behind player-a's lock")
	}
}

func TestPlayerLocks_GuardsSharedState(t *testing.T) {
	// Arrange
	locks := common.NewPlayerLocks()
	playerID := shared.MustNewPlayerID("player-1")

	// Act: 50 writers bump an unguarded counter under the player lock
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Lock(playerID)
			defer release()
			counter++
		}()
	}
	wg.Wait()

	// Assert
	assert.Equal(t, 50, counter)
}

func TestPlayerLocks_ReleaseAllowsReacquire(t *testing.T) {
	locks := common.NewPlayerLocks()
	playerID := shared.MustNewPlayerID("player-1")

	for i := 0; i < 3; i++ {
		release := locks.Lock(playerID)
		release()
	}
}
