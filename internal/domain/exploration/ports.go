package exploration

import (
	"context"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// VisitRepository defines persistence operations for the player's personal
// exploration map.
type VisitRepository interface {
	// FindByPort retrieves the visit record for a port, or nil when the
	// player has never been there
	FindByPort(ctx context.Context, playerID shared.PlayerID, portID string) (*VisitRecord, error)

	// Save persists a new or updated visit record
	Save(ctx context.Context, visit *VisitRecord) error

	// ListByPlayer retrieves every port the player has visited
	ListByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*VisitRecord, error)

	// CountByPlayer returns how many distinct ports the player has visited
	CountByPlayer(ctx context.Context, playerID shared.PlayerID) (int64, error)

	// DeleteByPlayer removes the player's exploration map (right to erasure)
	DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error
}

// LinkRepository defines persistence operations for the player's known
// travel connections.
type LinkRepository interface {
	// Find retrieves the directed link between two ports, or nil when the
	// player has never traveled it
	Find(ctx context.Context, playerID shared.PlayerID, fromPortID, toPortID string) (*TravelLink, error)

	// Save persists a new or updated link
	Save(ctx context.Context, link *TravelLink) error

	// ListByPlayer retrieves every known link for a player
	ListByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*TravelLink, error)

	// DeleteByPlayer removes the player's links (right to erasure)
	DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error
}
