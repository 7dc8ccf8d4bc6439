package market

import (
	"context"
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// ObservationRepository defines persistence operations for the price ledger.
// The ledger is append-only per (player, port, commodity); implementations
// must never rewrite or reorder stored rows.
type ObservationRepository interface {
	// Append persists one observation at the end of its ledger
	Append(ctx context.Context, obs *PriceObservation) error

	// History returns observations for a (player, port, commodity) ledger in
	// chronological order, most recent last. A non-positive limit returns
	// the full ledger; otherwise the most recent limit entries.
	History(ctx context.Context, playerID shared.PlayerID, portID, commodityID string, limit int) ([]*PriceObservation, error)

	// LatestObservedAt returns the timestamp of the newest observation for
	// the pair, or the zero time when the ledger is empty.
	LatestObservedAt(ctx context.Context, playerID shared.PlayerID, portID, commodityID string) (time.Time, error)

	// CountSince returns how many observations landed on one ledger since
	// the given time. Drives cache invalidation.
	CountSince(ctx context.Context, playerID shared.PlayerID, portID, commodityID string, since time.Time) (int64, error)

	// CommoditiesAt lists the distinct commodities the player has observed
	// at a port.
	CommoditiesAt(ctx context.Context, playerID shared.PlayerID, portID string) ([]string, error)

	// DeleteByPlayer removes every observation for a player (right to
	// erasure)
	DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error
}
