package common

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// ErrRateLimited is returned when a player exceeds their query budget
type ErrRateLimited struct {
	PlayerID shared.PlayerID
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("query rate limit exceeded for player %s", e.PlayerID.String())
}

// QueryRateLimiter enforces a per-player query budget using token buckets.
// Each player gets their own limiter; the burst equals a full minute's
// budget so an idle player can catch up in one burst.
type QueryRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perSecond rate.Limit
	burst     int
}

// NewQueryRateLimiter creates a limiter registry allowing perMinute queries
// per player per minute
func NewQueryRateLimiter(perMinute int) *QueryRateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &QueryRateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		perSecond: rate.Limit(float64(perMinute) / 60.0),
		burst:     perMinute,
	}
}

// Allow reports whether the player may run one more query right now
func (q *QueryRateLimiter) Allow(playerID shared.PlayerID) bool {
	return q.limiterFor(playerID).Allow()
}

func (q *QueryRateLimiter) limiterFor(playerID shared.PlayerID) *rate.Limiter {
	q.mu.Lock()
	defer q.mu.Unlock()

	limiter, ok := q.limiters[playerID.Value()]
	if !ok {
		limiter = rate.NewLimiter(q.perSecond, q.burst)
		q.limiters[playerID.Value()] = limiter
	}
	return limiter
}
