package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sectorwars/aria-core/internal/application/auth"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/market"
	"github.com/sectorwars/aria-core/internal/domain/memory"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeDomainError maps dispatch errors onto HTTP statuses. Insufficient
// data and unviable routes never reach here; the query handlers fold them
// into 200 responses with an outcome field.
func writeDomainError(w http.ResponseWriter, err error) {
	var scopeErr *auth.ErrScopeViolation
	if errors.As(err, &scopeErr) {
		writeError(w, http.StatusForbidden, scopeErr.Error())
		return
	}

	var rateErr *common.ErrRateLimited
	if errors.As(err, &rateErr) {
		writeError(w, http.StatusTooManyRequests, rateErr.Error())
		return
	}

	var recordNotFound *memory.ErrRecordNotFound
	if errors.As(err, &recordNotFound) {
		writeError(w, http.StatusNotFound, recordNotFound.Error())
		return
	}

	var heuristicNotFound *evolution.ErrHeuristicNotFound
	if errors.As(err, &heuristicNotFound) {
		writeError(w, http.StatusNotFound, heuristicNotFound.Error())
		return
	}

	var hashCollision *memory.ErrHashCollision
	if errors.As(err, &hashCollision) {
		writeError(w, http.StatusConflict, hashCollision.Error())
		return
	}

	var outOfOrder *market.ErrOutOfOrderObservation
	if errors.As(err, &outOfOrder) {
		writeError(w, http.StatusConflict, outOfOrder.Error())
		return
	}

	var invalidRecord *memory.ErrInvalidRecord
	if errors.As(err, &invalidRecord) {
		writeError(w, http.StatusBadRequest, invalidRecord.Error())
		return
	}

	var invalidHeuristic *evolution.ErrInvalidHeuristic
	if errors.As(err, &invalidHeuristic) {
		writeError(w, http.StatusBadRequest, invalidHeuristic.Error())
		return
	}

	switch {
	case errors.Is(err, market.ErrInvalidPlayerID),
		errors.Is(err, market.ErrInvalidPortID),
		errors.Is(err, market.ErrInvalidCommodityID),
		errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrInvalidTimestamp):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
