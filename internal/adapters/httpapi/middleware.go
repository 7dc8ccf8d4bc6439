package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sectorwars/aria-core/internal/application/auth"
	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// PlayerScopeHeader carries the caller's identity. Every request dispatched
// with it is pinned to that player; requests naming another player are
// denied downstream.
const PlayerScopeHeader = "X-Player-ID"

// RequestID adds a unique request ID to each response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs method, path, status, and duration through the
// application logger, and makes the logger available to handlers downstream.
func RequestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			ctx := logging.WithLogger(r.Context(), logger)
			next.ServeHTTP(sw, r.WithContext(ctx))

			logger.Log("info", "http request", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

// Recovery catches panics and returns a 500.
func Recovery(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Log("error", "panic recovered", map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					})
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// PlayerScope reads the X-Player-ID header into the request context. A
// malformed header is rejected; a missing one passes through, leaving the
// dispatched request to establish its own scope.
func PlayerScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(PlayerScopeHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		playerID, err := shared.NewPlayerID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+PlayerScopeHeader+" header: "+err.Error())
			return
		}

		ctx := auth.WithPlayerScope(r.Context(), playerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
