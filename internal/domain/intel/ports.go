package intel

import (
	"context"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// PatternRepository defines persistence operations for price patterns. The
// store holds at most one pattern per (player, port, commodity); each upsert
// fully replaces the prior pattern.
type PatternRepository interface {
	// Upsert stores the pattern, replacing any existing one for the same
	// (player, port, commodity)
	Upsert(ctx context.Context, pattern *PricePattern) error

	// Find retrieves the latest pattern for the triple, or
	// ErrInsufficientData when none has been computed
	Find(ctx context.Context, playerID shared.PlayerID, portID, commodityID string) (*PricePattern, error)

	// ListByPlayer retrieves all current patterns for a player
	ListByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*PricePattern, error)

	// DeleteByPlayer removes every pattern for a player (right to erasure)
	DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error
}
