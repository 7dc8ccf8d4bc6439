package ports

import (
	"context"
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// Cache key prefixes. Invalidation works by prefix, so related results can
// be dropped together.
const (
	PredictionKeyPrefix = "prediction:"
	RouteKeyPrefix      = "route:"
)

// CachedResult carries a cached payload together with where it came from
type CachedResult struct {
	Payload    []byte
	Hit        bool
	ComputedAt time.Time
}

// ComputeFunc produces the payload to cache when no live entry exists
type ComputeFunc func(ctx context.Context) ([]byte, error)

// ResultCache stores expensive query results per player with a TTL. Entries
// count their hits; a hit does not extend the TTL.
type ResultCache interface {
	// GetOrCompute returns the live cached payload for the key, or runs
	// compute, stores the result, and returns it
	GetOrCompute(ctx context.Context, playerID shared.PlayerID, key string, ttl time.Duration, compute ComputeFunc) (*CachedResult, error)

	// InvalidateFor deletes the player's entries whose key starts with the
	// given prefix, returning how many were dropped
	InvalidateFor(ctx context.Context, playerID shared.PlayerID, keyPrefix string) (int64, error)

	// DeleteByPlayer removes every cached result for a player (right to
	// erasure)
	DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error
}
