package commands

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// EvolvePatternsCommand advances a player's heuristic population by one
// generation. Evolution runs only on explicit request; there is no
// background scheduler mutating strategies behind the player's back.
type EvolvePatternsCommand struct {
	PlayerID shared.PlayerID
	Seed     *int64
}

// EvolvePatternsResponse reports the new generation
type EvolvePatternsResponse struct {
	Evolved        bool
	Generation     int
	PopulationSize int
	Survivors      int
	BestName       string
	BestFitness    float64
}

// EvolvePatternsHandler handles the EvolvePatterns command
type EvolvePatternsHandler struct {
	heuristicRepo evolution.Repository
	evolver       *evolution.Evolver
	audit         *services.AuditTrail
	locks         *common.PlayerLocks
	clock         shared.Clock
}

// NewEvolvePatternsHandler creates a new EvolvePatternsHandler
func NewEvolvePatternsHandler(
	heuristicRepo evolution.Repository,
	evolver *evolution.Evolver,
	audit *services.AuditTrail,
	locks *common.PlayerLocks,
	clock shared.Clock,
) *EvolvePatternsHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &EvolvePatternsHandler{
		heuristicRepo: heuristicRepo,
		evolver:       evolver,
		audit:         audit,
		locks:         locks,
		clock:         clock,
	}
}

// Handle executes the EvolvePatterns command
func (h *EvolvePatternsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*EvolvePatternsCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *EvolvePatternsCommand")
	}

	defer h.locks.Lock(cmd.PlayerID)()

	population, err := h.heuristicRepo.FindByPlayer(ctx, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load population: %w", err)
	}

	if len(population) < 2 {
		return &EvolvePatternsResponse{
			Evolved:        false,
			Generation:     maxGenerationOf(population),
			PopulationSize: len(population),
		}, nil
	}

	if err := h.audit.Record(ctx, cmd.PlayerID, "population_evolve", "heuristics", security.OutcomeOK, "requested", security.AnomalyNone); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seedOrNow(cmd.Seed, h.clock)))

	next, err := h.evolver.EvolvePopulation(population, rng, h.clock.Now())
	if err != nil {
		h.audit.RecordBestEffort(ctx, cmd.PlayerID, "population_evolve", "heuristics", security.OutcomeError, err.Error(), security.AnomalyNone)
		return nil, fmt.Errorf("failed to evolve population: %w", err)
	}

	if err := h.heuristicRepo.ReplacePopulation(ctx, cmd.PlayerID, next); err != nil {
		h.audit.RecordBestEffort(ctx, cmd.PlayerID, "population_evolve", "heuristics", security.OutcomeError, err.Error(), security.AnomalyNone)
		return nil, fmt.Errorf("failed to persist population: %w", err)
	}

	ranked := evolution.Rank(next)
	best := ranked[0]
	survivors := len(population) / 2

	logging.LoggerFromContext(ctx).Log("info", "population evolved", map[string]interface{}{
		"player_id":    cmd.PlayerID.String(),
		"generation":   maxGenerationOf(next),
		"best":         best.Name(),
		"best_fitness": best.Fitness(),
	})

	return &EvolvePatternsResponse{
		Evolved:        true,
		Generation:     maxGenerationOf(next),
		PopulationSize: len(next),
		Survivors:      survivors,
		BestName:       best.Name(),
		BestFitness:    best.Fitness(),
	}, nil
}

// maxGenerationOf returns the highest generation present, or zero for an
// empty population
func maxGenerationOf(population []*evolution.Heuristic) int {
	max := 0
	for _, h := range population {
		if h.Generation() > max {
			max = h.Generation()
		}
	}
	return max
}
