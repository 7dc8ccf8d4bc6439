package memory

import (
	"context"
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// Repository defines persistence operations for memory records. All queries
// are scoped by player id; there is no cross-player read path.
type Repository interface {
	// Save persists a new memory record
	Save(ctx context.Context, record *Record) error

	// FindByHash retrieves the record with the given content hash for a
	// player, or nil if none exists
	FindByHash(ctx context.Context, playerID shared.PlayerID, contentHash string) (*Record, error)

	// FindByID retrieves a record by id, scoped to the player
	FindByID(ctx context.Context, playerID shared.PlayerID, recordID string) (*Record, error)

	// FindByPlayer retrieves all records for a player, optionally filtered
	// by kind. Ordering is left to the caller, which ranks by effective
	// strength computed at read time.
	FindByPlayer(ctx context.Context, playerID shared.PlayerID, kind *Kind) ([]*Record, error)

	// TouchAccess bumps the access count and last-accessed timestamp for the
	// given records. Access metadata never feeds back into importance.
	TouchAccess(ctx context.Context, recordIDs []string, at time.Time) error

	// Delete removes a single record. Deleting a missing record is not an
	// error.
	Delete(ctx context.Context, playerID shared.PlayerID, recordID string) error

	// DeleteByPlayer removes every record for a player (right to erasure)
	DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error

	// CountByPlayer returns the number of stored records for a player
	CountByPlayer(ctx context.Context, playerID shared.PlayerID) (int64, error)
}
