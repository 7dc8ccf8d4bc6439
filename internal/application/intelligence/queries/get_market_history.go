package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/market"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GetMarketHistoryQuery lists the player's own observations for one
// (port, commodity) ledger
type GetMarketHistoryQuery struct {
	PlayerID    shared.PlayerID
	PortID      string
	CommodityID string
	Limit       int // Non-positive returns the full ledger
}

// ObservationDTO is one recorded observation
type ObservationDTO struct {
	ID         int64     `json:"id"`
	BuyPrice   int       `json:"buy_price"`
	SellPrice  int       `json:"sell_price"`
	MidPrice   float64   `json:"mid_price"`
	ObservedAt time.Time `json:"observed_at"`
}

// GetMarketHistoryResponse carries the ledger in chronological order with
// its derived quality
type GetMarketHistoryResponse struct {
	Observations  []ObservationDTO `json:"observations"`
	SampleCount   int              `json:"sample_count"`
	Quality       float64          `json:"quality"`
	VolatilityPct float64          `json:"volatility_pct"`
}

// GetMarketHistoryHandler handles the GetMarketHistory query
type GetMarketHistoryHandler struct {
	observationRepo market.ObservationRepository
	clock           shared.Clock
}

// NewGetMarketHistoryHandler creates a new GetMarketHistoryHandler
func NewGetMarketHistoryHandler(observationRepo market.ObservationRepository, clock shared.Clock) *GetMarketHistoryHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &GetMarketHistoryHandler{
		observationRepo: observationRepo,
		clock:           clock,
	}
}

// Handle executes the GetMarketHistory query
func (h *GetMarketHistoryHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetMarketHistoryQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetMarketHistoryQuery")
	}

	observations, err := h.observationRepo.History(ctx, query.PlayerID, query.PortID, query.CommodityID, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load observation history: %w", err)
	}

	dtos := make([]ObservationDTO, 0, len(observations))
	for _, obs := range observations {
		dtos = append(dtos, ObservationDTO{
			ID:         obs.ID(),
			BuyPrice:   obs.BuyPrice(),
			SellPrice:  obs.SellPrice(),
			MidPrice:   obs.MidPrice(),
			ObservedAt: obs.ObservedAt(),
		})
	}

	quality := 0.0
	volatility := 0.0
	if len(observations) > 0 {
		volatility = market.Volatility(observations)
		lastObservedAt := observations[len(observations)-1].ObservedAt()
		quality = market.QualityScore(len(observations), lastObservedAt, volatility, h.clock.Now())
	}

	return &GetMarketHistoryResponse{
		Observations:  dtos,
		SampleCount:   len(observations),
		Quality:       quality,
		VolatilityPct: volatility,
	}, nil
}
