package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// IntelHandler serves the read side: predictions, rankings, route plans,
// memories, and ledger history. All responses are per-player views.
type IntelHandler struct {
	m mediator.Mediator
}

func NewIntelHandler(m mediator.Mediator) *IntelHandler {
	return &IntelHandler{m: m}
}

func playerFromPath(r *http.Request) (shared.PlayerID, bool) {
	playerID, err := shared.NewPlayerID(chi.URLParam(r, "id"))
	return playerID, err == nil
}

// GetPrediction handles GET /v1/players/{id}/prediction
func (h *IntelHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	portID := r.URL.Query().Get("port")
	commodityID := r.URL.Query().Get("commodity")
	if portID == "" || commodityID == "" {
		writeError(w, http.StatusBadRequest, "port and commodity query parameters are required")
		return
	}

	resp, err := h.m.Send(r.Context(), &queries.GetPredictionQuery{
		PlayerID:    playerID,
		PortID:      portID,
		CommodityID: commodityID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp.(*queries.GetPredictionResponse))
}

// GetHeuristics handles GET /v1/players/{id}/heuristics
func (h *IntelHandler) GetHeuristics(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.m.Send(r.Context(), &queries.GetRecommendedHeuristicsQuery{
		PlayerID: playerID,
		Limit:    limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp.(*queries.GetRecommendedHeuristicsResponse))
}

// GetRoutePlan handles GET /v1/players/{id}/route-plan
func (h *IntelHandler) GetRoutePlan(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	startPortID := r.URL.Query().Get("start")
	if startPortID == "" {
		writeError(w, http.StatusBadRequest, "start query parameter is required")
		return
	}

	maxHops, _ := strconv.Atoi(r.URL.Query().Get("max_hops"))
	minConfidence, _ := strconv.ParseFloat(r.URL.Query().Get("min_confidence"), 64)

	resp, err := h.m.Send(r.Context(), &queries.GetRoutePlanQuery{
		PlayerID:      playerID,
		StartPortID:   startPortID,
		MaxHops:       maxHops,
		MinConfidence: minConfidence,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp.(*queries.GetRoutePlanResponse))
}

// GetMemories handles GET /v1/players/{id}/memories
func (h *IntelHandler) GetMemories(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	query := &queries.GetMemoriesQuery{PlayerID: playerID}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		query.Kind = &kind
	}
	if raw := r.URL.Query().Get("min_strength"); raw != "" {
		minStrength, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_strength must be a number")
			return
		}
		query.MinStrength = &minStrength
	}
	query.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.m.Send(r.Context(), query)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp.(*queries.GetMemoriesResponse))
}

// GetExploration handles GET /v1/players/{id}/exploration
func (h *IntelHandler) GetExploration(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	resp, err := h.m.Send(r.Context(), &queries.GetExplorationSummaryQuery{
		PlayerID: playerID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp.(*queries.GetExplorationSummaryResponse))
}

// GetMarketHistory handles GET /v1/players/{id}/market-history
func (h *IntelHandler) GetMarketHistory(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	portID := r.URL.Query().Get("port")
	commodityID := r.URL.Query().Get("commodity")
	if portID == "" || commodityID == "" {
		writeError(w, http.StatusBadRequest, "port and commodity query parameters are required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.m.Send(r.Context(), &queries.GetMarketHistoryQuery{
		PlayerID:    playerID,
		PortID:      portID,
		CommodityID: commodityID,
		Limit:       limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp.(*queries.GetMarketHistoryResponse))
}
