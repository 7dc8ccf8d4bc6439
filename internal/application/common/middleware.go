package common

import (
	"context"
	"reflect"
	"strings"

	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// RateLimitMiddleware creates middleware that applies the per-player query
// budget. Only queries are limited; commands record events the player
// already performed and must not be dropped. A denied query is written to
// the security audit log with a raised anomaly score.
func RateLimitMiddleware(limiter *QueryRateLimiter, auditRepo security.AuditRepository, clock shared.Clock) mediator.Middleware {
	return func(ctx context.Context, request mediator.Request, next mediator.HandlerFunc) (mediator.Response, error) {
		if limiter == nil || !isQuery(request) {
			return next(ctx, request)
		}

		playerID := requestPlayerID(request)
		if playerID.IsZero() {
			return next(ctx, request)
		}

		if limiter.Allow(playerID) {
			return next(ctx, request)
		}

		recordRateLimited(ctx, auditRepo, clock, playerID, request)
		return nil, &ErrRateLimited{PlayerID: playerID}
	}
}

// recordRateLimited appends an audit entry for the denied query, best effort
func recordRateLimited(
	ctx context.Context,
	auditRepo security.AuditRepository,
	clock shared.Clock,
	playerID shared.PlayerID,
	request mediator.Request,
) {
	if auditRepo == nil {
		return
	}

	entry, err := security.NewAuditEntry(
		playerID,
		"query_rate_limited",
		bareTypeName(request),
		security.OutcomeDenied,
		"per-player query budget exhausted",
		security.AnomalyRateLimited,
		clock.Now(),
	)
	if err != nil {
		return
	}

	if err := auditRepo.Append(ctx, entry); err != nil {
		logging.LoggerFromContext(ctx).Log("error", "failed to audit rate limited query", map[string]interface{}{
			"player_id": playerID.String(),
			"error":     err.Error(),
		})
	}
}

// isQuery reports whether the request is a read-side query, by the
// *queries.GetSomethingQuery naming convention
func isQuery(request mediator.Request) bool {
	return strings.HasSuffix(bareTypeName(request), "Query")
}

// bareTypeName returns the request's type name without package or pointer
// prefix
func bareTypeName(request mediator.Request) string {
	if request == nil {
		return ""
	}
	t := reflect.TypeOf(request)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// requestPlayerID reads the PlayerID field from a request via reflection
func requestPlayerID(request mediator.Request) shared.PlayerID {
	v := reflect.ValueOf(request)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return shared.PlayerID{}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return shared.PlayerID{}
	}

	field := v.FieldByName("PlayerID")
	if !field.IsValid() || field.Type() != reflect.TypeOf(shared.PlayerID{}) {
		return shared.PlayerID{}
	}
	return field.Interface().(shared.PlayerID)
}
