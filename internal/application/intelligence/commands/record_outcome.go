package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// Importance assigned to trade outcome memories
const tradeOutcomeImportance = 0.6

// RecordOutcomeCommand feeds one executed trade back into the heuristic
// that recommended it
type RecordOutcomeCommand struct {
	PlayerID    shared.PlayerID
	HeuristicID string
	Success     bool
	Profit      float64
	CommodityID string
	FromPortID  string
	ToPortID    string
	OccurredAt  *time.Time // Optional: defaults to current time
}

// RecordOutcomeResponse reports the heuristic's updated performance
type RecordOutcomeResponse struct {
	HeuristicName  string
	Fitness        float64
	SuccessRate    float64
	AvgProfit      float64
	OutcomeCount   int
	MemoryRecorded bool
}

// RecordOutcomeHandler handles the RecordOutcome command
type RecordOutcomeHandler struct {
	heuristicRepo evolution.Repository
	memoryWriter  *services.MemoryWriter
	locks         *common.PlayerLocks
	clock         shared.Clock
}

// NewRecordOutcomeHandler creates a new RecordOutcomeHandler
func NewRecordOutcomeHandler(
	heuristicRepo evolution.Repository,
	memoryWriter *services.MemoryWriter,
	locks *common.PlayerLocks,
	clock shared.Clock,
) *RecordOutcomeHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &RecordOutcomeHandler{
		heuristicRepo: heuristicRepo,
		memoryWriter:  memoryWriter,
		locks:         locks,
		clock:         clock,
	}
}

// Handle executes the RecordOutcome command
func (h *RecordOutcomeHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RecordOutcomeCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RecordOutcomeCommand")
	}

	defer h.locks.Lock(cmd.PlayerID)()

	heuristic, err := h.heuristicRepo.FindByID(ctx, cmd.PlayerID, cmd.HeuristicID)
	if err != nil {
		return nil, err
	}

	heuristic.RecordOutcome(cmd.Success, cmd.Profit)

	if err := h.heuristicRepo.Save(ctx, heuristic); err != nil {
		return nil, fmt.Errorf("failed to persist heuristic: %w", err)
	}

	occurredAt := h.clock.Now()
	if cmd.OccurredAt != nil {
		occurredAt = *cmd.OccurredAt
	}

	payload := map[string]interface{}{
		"heuristic_id":   heuristic.ID(),
		"heuristic_name": heuristic.Name(),
		"success":        cmd.Success,
		"profit":         cmd.Profit,
		"commodity_id":   cmd.CommodityID,
		"from_port_id":   cmd.FromPortID,
		"to_port_id":     cmd.ToPortID,
		"occurred_at":    occurredAt.UTC().Format(time.RFC3339),
	}

	_, stored, err := h.memoryWriter.Remember(ctx, cmd.PlayerID, memory.KindTradeOutcome, payload, tradeOutcomeImportance)
	if err != nil {
		return nil, fmt.Errorf("failed to record trade memory: %w", err)
	}

	return &RecordOutcomeResponse{
		HeuristicName:  heuristic.Name(),
		Fitness:        heuristic.Fitness(),
		SuccessRate:    heuristic.SuccessRate(),
		AvgProfit:      heuristic.AvgProfit(),
		OutcomeCount:   heuristic.OutcomeCount(),
		MemoryRecorded: stored,
	}, nil
}
