package commands

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// SeedPopulationCommand creates a player's initial heuristic population.
// Seed fixes the random source so a seeded run is reproducible; when nil,
// the current time seeds it.
type SeedPopulationCommand struct {
	PlayerID shared.PlayerID
	Seed     *int64
}

// SeedPopulationResponse reports the resulting population
type SeedPopulationResponse struct {
	Created        bool
	PopulationSize int
	Generation     int
}

// SeedPopulationHandler handles the SeedPopulation command
type SeedPopulationHandler struct {
	heuristicRepo evolution.Repository
	evolver       *evolution.Evolver
	audit         *services.AuditTrail
	locks         *common.PlayerLocks
	clock         shared.Clock
}

// NewSeedPopulationHandler creates a new SeedPopulationHandler
func NewSeedPopulationHandler(
	heuristicRepo evolution.Repository,
	evolver *evolution.Evolver,
	audit *services.AuditTrail,
	locks *common.PlayerLocks,
	clock shared.Clock,
) *SeedPopulationHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &SeedPopulationHandler{
		heuristicRepo: heuristicRepo,
		evolver:       evolver,
		audit:         audit,
		locks:         locks,
		clock:         clock,
	}
}

// Handle executes the SeedPopulation command. Seeding an already populated
// player is a no-op that reports the existing population.
func (h *SeedPopulationHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*SeedPopulationCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *SeedPopulationCommand")
	}

	defer h.locks.Lock(cmd.PlayerID)()

	existing, err := h.heuristicRepo.FindByPlayer(ctx, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load population: %w", err)
	}
	if len(existing) > 0 {
		return &SeedPopulationResponse{
			Created:        false,
			PopulationSize: len(existing),
			Generation:     existing[0].Generation(),
		}, nil
	}

	if err := h.audit.Record(ctx, cmd.PlayerID, "population_seed", "heuristics", security.OutcomeOK, "requested", security.AnomalyNone); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seedOrNow(cmd.Seed, h.clock)))

	population, err := h.evolver.SeedPopulation(cmd.PlayerID, rng, h.clock.Now())
	if err != nil {
		h.audit.RecordBestEffort(ctx, cmd.PlayerID, "population_seed", "heuristics", security.OutcomeError, err.Error(), security.AnomalyNone)
		return nil, fmt.Errorf("failed to seed population: %w", err)
	}

	if err := h.heuristicRepo.ReplacePopulation(ctx, cmd.PlayerID, population); err != nil {
		h.audit.RecordBestEffort(ctx, cmd.PlayerID, "population_seed", "heuristics", security.OutcomeError, err.Error(), security.AnomalyNone)
		return nil, fmt.Errorf("failed to persist population: %w", err)
	}

	return &SeedPopulationResponse{
		Created:        true,
		PopulationSize: len(population),
		Generation:     1,
	}, nil
}

// seedOrNow resolves the random seed for an evolution step
func seedOrNow(seed *int64, clock shared.Clock) int64 {
	if seed != nil {
		return *seed
	}
	return clock.Now().UnixNano()
}
