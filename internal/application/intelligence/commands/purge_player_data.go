package commands

import (
	"context"
	"fmt"

	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/ports"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/market"
	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// PurgePlayerDataCommand erases everything the core knows about a player:
// memories, observations, patterns, heuristics, exploration map, travel
// links, and cached results. The audit log stays; it is the proof that the
// purge happened.
type PurgePlayerDataCommand struct {
	PlayerID shared.PlayerID
}

// PurgePlayerDataResponse lists the stores that were cleared
type PurgePlayerDataResponse struct {
	Purged bool
	Stores []string
}

// PurgePlayerDataHandler handles the PurgePlayerData command
type PurgePlayerDataHandler struct {
	memoryRepo      memory.Repository
	observationRepo market.ObservationRepository
	patternRepo     intel.PatternRepository
	heuristicRepo   evolution.Repository
	visitRepo       exploration.VisitRepository
	linkRepo        exploration.LinkRepository
	cache           ports.ResultCache
	audit           *services.AuditTrail
	locks           *common.PlayerLocks
}

// NewPurgePlayerDataHandler creates a new PurgePlayerDataHandler
func NewPurgePlayerDataHandler(
	memoryRepo memory.Repository,
	observationRepo market.ObservationRepository,
	patternRepo intel.PatternRepository,
	heuristicRepo evolution.Repository,
	visitRepo exploration.VisitRepository,
	linkRepo exploration.LinkRepository,
	cache ports.ResultCache,
	audit *services.AuditTrail,
	locks *common.PlayerLocks,
) *PurgePlayerDataHandler {
	return &PurgePlayerDataHandler{
		memoryRepo:      memoryRepo,
		observationRepo: observationRepo,
		patternRepo:     patternRepo,
		heuristicRepo:   heuristicRepo,
		visitRepo:       visitRepo,
		linkRepo:        linkRepo,
		cache:           cache,
		audit:           audit,
		locks:           locks,
	}
}

// Handle executes the PurgePlayerData command. Deletes are idempotent, so a
// partially failed purge can simply be retried.
func (h *PurgePlayerDataHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*PurgePlayerDataCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *PurgePlayerDataCommand")
	}

	if cmd.PlayerID.IsZero() {
		return nil, fmt.Errorf("invalid player ID: player_id cannot be zero")
	}

	defer h.locks.Lock(cmd.PlayerID)()

	if err := h.audit.Record(ctx, cmd.PlayerID, "player_purge", "all", security.OutcomeOK, "requested", security.AnomalyPurge); err != nil {
		return nil, err
	}

	steps := []struct {
		store  string
		delete func(context.Context, shared.PlayerID) error
	}{
		{"memories", h.memoryRepo.DeleteByPlayer},
		{"observations", h.observationRepo.DeleteByPlayer},
		{"patterns", h.patternRepo.DeleteByPlayer},
		{"heuristics", h.heuristicRepo.DeleteByPlayer},
		{"visits", h.visitRepo.DeleteByPlayer},
		{"links", h.linkRepo.DeleteByPlayer},
		{"cache", h.cache.DeleteByPlayer},
	}

	cleared := make([]string, 0, len(steps))
	for _, step := range steps {
		if err := step.delete(ctx, cmd.PlayerID); err != nil {
			h.audit.RecordBestEffort(ctx, cmd.PlayerID, "player_purge", step.store, security.OutcomeError, err.Error(), security.AnomalyPurge)
			return nil, fmt.Errorf("failed to purge %s: %w", step.store, err)
		}
		cleared = append(cleared, step.store)
	}

	logging.LoggerFromContext(ctx).Log("info", "player data purged", map[string]interface{}{
		"player_id": cmd.PlayerID.String(),
		"stores":    len(cleared),
	})

	return &PurgePlayerDataResponse{
		Purged: true,
		Stores: cleared,
	}, nil
}
