package evolution

import (
	"context"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// Repository defines persistence operations for heuristic populations. The
// store holds the current population per player; generational history
// survives only through parent ids.
type Repository interface {
	// FindByPlayer retrieves the player's current population
	FindByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*Heuristic, error)

	// FindByID retrieves one heuristic, scoped to the player
	FindByID(ctx context.Context, playerID shared.PlayerID, heuristicID string) (*Heuristic, error)

	// Save persists updated performance evidence for one heuristic
	Save(ctx context.Context, heuristic *Heuristic) error

	// ReplacePopulation atomically swaps the player's population for the
	// next generation
	ReplacePopulation(ctx context.Context, playerID shared.PlayerID, population []*Heuristic) error

	// DeleteByPlayer removes the player's entire population (right to
	// erasure)
	DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error
}
