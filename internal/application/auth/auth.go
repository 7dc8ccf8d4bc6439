package auth

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// Context keys for passing ownership data through context
type authContextKey int

const (
	playerScopeKey authContextKey = iota + 1000 // Offset from logger keys
)

// ErrScopeViolation is returned when a request names a player other than the
// one the caller is scoped to
type ErrScopeViolation struct {
	Scope     shared.PlayerID
	Requested shared.PlayerID
}

func (e *ErrScopeViolation) Error() string {
	return fmt.Sprintf("player scope violation: caller %s requested data of %s",
		e.Scope.String(), e.Requested.String())
}

// WithPlayerScope injects the authenticated player into the context.
// Transport adapters set this before dispatching into the mediator.
func WithPlayerScope(ctx context.Context, playerID shared.PlayerID) context.Context {
	return context.WithValue(ctx, playerScopeKey, playerID)
}

// PlayerScopeFromContext extracts the authenticated player from context.
// Returns an error if no scope has been set.
func PlayerScopeFromContext(ctx context.Context) (shared.PlayerID, error) {
	playerID, ok := ctx.Value(playerScopeKey).(shared.PlayerID)
	if !ok || playerID.IsZero() {
		return shared.PlayerID{}, fmt.Errorf("player scope not found in context")
	}
	return playerID, nil
}

// PlayerScopeMiddleware creates middleware that enforces per-player data
// isolation. It extracts the PlayerID from the request via reflection and
// compares it against the scope in the context. A mismatch is denied and
// recorded in the security audit log; a missing scope adopts the request's
// player (trusted in-process caller).
func PlayerScopeMiddleware(auditRepo security.AuditRepository, clock shared.Clock) mediator.Middleware {
	return func(ctx context.Context, request mediator.Request, next mediator.HandlerFunc) (mediator.Response, error) {
		requested := extractPlayerID(request)
		if requested.IsZero() {
			// Request carries no player. Nothing to scope.
			return next(ctx, request)
		}

		scope, err := PlayerScopeFromContext(ctx)
		if err != nil {
			ctx = WithPlayerScope(ctx, requested)
			return next(ctx, request)
		}

		if !scope.Equals(requested) {
			recordScopeViolation(ctx, auditRepo, clock, scope, requested, request)
			return nil, &ErrScopeViolation{Scope: scope, Requested: requested}
		}

		return next(ctx, request)
	}
}

// recordScopeViolation appends a high-anomaly audit entry for the denied
// call. The denial stands even if the audit write fails; the failure is
// logged instead.
func recordScopeViolation(
	ctx context.Context,
	auditRepo security.AuditRepository,
	clock shared.Clock,
	scope shared.PlayerID,
	requested shared.PlayerID,
	request mediator.Request,
) {
	if auditRepo == nil {
		return
	}

	entry, err := security.NewAuditEntry(
		scope,
		"cross_player_access",
		requestName(request),
		security.OutcomeDenied,
		fmt.Sprintf("requested player %s", requested.String()),
		security.AnomalyDenied,
		clock.Now(),
	)
	if err != nil {
		return
	}

	if err := auditRepo.Append(ctx, entry); err != nil {
		logging.LoggerFromContext(ctx).Log("error", "failed to audit scope violation", map[string]interface{}{
			"player_id": scope.String(),
			"error":     err.Error(),
		})
	}
}

// requestName returns the bare type name of the request for audit entries
func requestName(request mediator.Request) string {
	if request == nil {
		return "unknown"
	}
	t := reflect.TypeOf(request)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// extractPlayerID uses reflection to read the PlayerID field from a request.
// Commands and queries all carry one; requests without it are passed through
// unscoped.
func extractPlayerID(request mediator.Request) shared.PlayerID {
	requestValue := reflect.ValueOf(request)
	if requestValue.Kind() == reflect.Ptr {
		if requestValue.IsNil() {
			return shared.PlayerID{}
		}
		requestValue = requestValue.Elem()
	}

	if requestValue.Kind() != reflect.Struct {
		return shared.PlayerID{}
	}

	requestType := requestValue.Type()

	field, found := requestType.FieldByName("PlayerID")
	if !found {
		return shared.PlayerID{}
	}

	fieldValue := requestValue.FieldByName("PlayerID")

	if field.Type == reflect.TypeOf(shared.PlayerID{}) {
		return fieldValue.Interface().(shared.PlayerID)
	}

	// Fallback for requests that carry the raw string id
	if field.Type.Kind() == reflect.String {
		if s := fieldValue.String(); s != "" {
			if playerID, err := shared.NewPlayerID(s); err == nil {
				return playerID
			}
		}
	}

	return shared.PlayerID{}
}
