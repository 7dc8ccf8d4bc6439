package common

import (
	"sync"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// PlayerLocks serializes state-mutating intelligence operations per player.
// Operations for different players proceed in parallel; two writes for the
// same player never interleave.
type PlayerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPlayerLocks creates an empty lock registry
func NewPlayerLocks() *PlayerLocks {
	return &PlayerLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the player's mutex and returns the release function.
// Callers typically defer the returned function immediately.
func (p *PlayerLocks) Lock(playerID shared.PlayerID) func() {
	p.mu.Lock()
	lock, ok := p.locks[playerID.Value()]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[playerID.Value()] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
