package security

import (
	"context"
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// AuditRepository persists the append-only security log. Entries are never
// deleted, not even when a player's intelligence data is purged: the log is
// the record that the purge happened.
type AuditRepository interface {
	// Append stores a new entry and assigns its sequence id
	Append(ctx context.Context, entry *AuditEntry) error

	// ListByPlayer returns a player's entries, most recent first
	ListByPlayer(ctx context.Context, playerID shared.PlayerID, limit int) ([]*AuditEntry, error)

	// CountSince counts a player's entries for one action since a point in
	// time. Used for anomaly checks on noisy actions.
	CountSince(ctx context.Context, playerID shared.PlayerID, action string, since time.Time) (int64, error)
}
