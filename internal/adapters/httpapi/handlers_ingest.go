package httpapi

import (
	"net/http"
	"time"

	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// IngestHandler accepts the inbound game events: dockings, price sightings,
// and executed trades.
type IngestHandler struct {
	m mediator.Mediator
}

func NewIngestHandler(m mediator.Mediator) *IngestHandler {
	return &IngestHandler{m: m}
}

type recordVisitRequest struct {
	PlayerID   string     `json:"player_id"`
	SectorID   string     `json:"sector_id"`
	PortID     string     `json:"port_id"`
	PortClass  string     `json:"port_class"`
	FromPortID string     `json:"from_port_id,omitempty"`
	VisitedAt  *time.Time `json:"visited_at,omitempty"`
}

type recordVisitResponse struct {
	FirstVisit     bool `json:"first_visit"`
	VisitCount     int  `json:"visit_count"`
	LinkRecorded   bool `json:"link_recorded"`
	MemoryRecorded bool `json:"memory_recorded"`
}

// RecordVisit handles POST /v1/visits
func (h *IngestHandler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	var req recordVisitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	playerID, err := shared.NewPlayerID(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	if req.PortID == "" {
		writeError(w, http.StatusBadRequest, "port_id is required")
		return
	}
	if req.SectorID == "" {
		writeError(w, http.StatusBadRequest, "sector_id is required")
		return
	}

	resp, err := h.m.Send(r.Context(), &commands.RecordVisitCommand{
		PlayerID:   playerID,
		SectorID:   req.SectorID,
		PortID:     req.PortID,
		PortClass:  req.PortClass,
		FromPortID: req.FromPortID,
		VisitedAt:  req.VisitedAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result := resp.(*commands.RecordVisitResponse)
	status := http.StatusOK
	if result.FirstVisit {
		status = http.StatusCreated
	}
	writeJSON(w, status, recordVisitResponse{
		FirstVisit:     result.FirstVisit,
		VisitCount:     result.VisitCount,
		LinkRecorded:   result.LinkRecorded,
		MemoryRecorded: result.MemoryRecorded,
	})
}

type recordObservationRequest struct {
	PlayerID    string     `json:"player_id"`
	PortID      string     `json:"port_id"`
	CommodityID string     `json:"commodity_id"`
	BuyPrice    int        `json:"buy_price"`
	SellPrice   int        `json:"sell_price"`
	ObservedAt  *time.Time `json:"observed_at,omitempty"`
}

type recordObservationResponse struct {
	ObservationID     int64  `json:"observation_id"`
	PatternRefreshed  bool   `json:"pattern_refreshed"`
	PatternKind       string `json:"pattern_kind,omitempty"`
	SignificantChange bool   `json:"significant_change"`
	MemoryRecorded    bool   `json:"memory_recorded"`
	CacheInvalidated  bool   `json:"cache_invalidated"`
}

// RecordObservation handles POST /v1/observations
func (h *IngestHandler) RecordObservation(w http.ResponseWriter, r *http.Request) {
	var req recordObservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	playerID, err := shared.NewPlayerID(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	if req.PortID == "" {
		writeError(w, http.StatusBadRequest, "port_id is required")
		return
	}
	if req.CommodityID == "" {
		writeError(w, http.StatusBadRequest, "commodity_id is required")
		return
	}

	resp, err := h.m.Send(r.Context(), &commands.RecordObservationCommand{
		PlayerID:    playerID,
		PortID:      req.PortID,
		CommodityID: req.CommodityID,
		BuyPrice:    req.BuyPrice,
		SellPrice:   req.SellPrice,
		ObservedAt:  req.ObservedAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result := resp.(*commands.RecordObservationResponse)
	writeJSON(w, http.StatusCreated, recordObservationResponse{
		ObservationID:     result.ObservationID,
		PatternRefreshed:  result.PatternRefreshed,
		PatternKind:       result.PatternKind,
		SignificantChange: result.SignificantChange,
		MemoryRecorded:    result.MemoryRecorded,
		CacheInvalidated:  result.CacheInvalidated,
	})
}

type recordOutcomeRequest struct {
	PlayerID    string     `json:"player_id"`
	HeuristicID string     `json:"heuristic_id"`
	Success     bool       `json:"success"`
	Profit      float64    `json:"profit"`
	CommodityID string     `json:"commodity_id,omitempty"`
	FromPortID  string     `json:"from_port_id,omitempty"`
	ToPortID    string     `json:"to_port_id,omitempty"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
}

type recordOutcomeResponse struct {
	HeuristicName  string  `json:"heuristic_name"`
	Fitness        float64 `json:"fitness"`
	SuccessRate    float64 `json:"success_rate"`
	AvgProfit      float64 `json:"avg_profit"`
	OutcomeCount   int     `json:"outcome_count"`
	MemoryRecorded bool    `json:"memory_recorded"`
}

// RecordOutcome handles POST /v1/outcomes
func (h *IngestHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req recordOutcomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	playerID, err := shared.NewPlayerID(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	if req.HeuristicID == "" {
		writeError(w, http.StatusBadRequest, "heuristic_id is required")
		return
	}

	resp, err := h.m.Send(r.Context(), &commands.RecordOutcomeCommand{
		PlayerID:    playerID,
		HeuristicID: req.HeuristicID,
		Success:     req.Success,
		Profit:      req.Profit,
		CommodityID: req.CommodityID,
		FromPortID:  req.FromPortID,
		ToPortID:    req.ToPortID,
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result := resp.(*commands.RecordOutcomeResponse)
	writeJSON(w, http.StatusOK, recordOutcomeResponse{
		HeuristicName:  result.HeuristicName,
		Fitness:        result.Fitness,
		SuccessRate:    result.SuccessRate,
		AvgProfit:      result.AvgProfit,
		OutcomeCount:   result.OutcomeCount,
		MemoryRecorded: result.MemoryRecorded,
	})
}
