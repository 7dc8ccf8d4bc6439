package steps

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cucumber/godog"

	"github.com/sectorwars/aria-core/internal/adapters/crypto"
	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

type strategyEvolutionContext struct {
	clock         *shared.MockClock
	heuristicRepo *persistence.GormHeuristicRepository
	playerID      shared.PlayerID

	seedHandler    *commands.SeedPopulationHandler
	evolveHandler  *commands.EvolvePatternsHandler
	outcomeHandler *commands.RecordOutcomeHandler
	rankedHandler  *queries.GetRecommendedHeuristicsHandler

	seedResponses  []*commands.SeedPopulationResponse
	evolveResponse *commands.EvolvePatternsResponse
	err            error
}

func (ctx *strategyEvolutionContext) reset() {
	ctx.playerID = shared.PlayerID{}
	ctx.seedResponses = nil
	ctx.evolveResponse = nil
	ctx.err = nil

	// Truncate all tables for test isolation
	if err := helpers.TruncateAllTables(); err != nil {
		panic(fmt.Errorf("failed to truncate tables: %w", err))
	}

	db := helpers.SharedTestDB
	ctx.clock = shared.NewMockClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(fmt.Errorf("failed to create snowflake node: %w", err))
	}

	memoryRepo := persistence.NewGormMemoryRepository(db)
	ctx.heuristicRepo = persistence.NewGormHeuristicRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)

	audit := services.NewAuditTrail(auditRepo, ctx.clock)
	writer := services.NewMemoryWriter(memoryRepo, audit, crypto.NewPlainCodec(), ctx.clock, 0)
	locks := common.NewPlayerLocks()
	evolver := evolution.NewEvolver(8)

	ctx.seedHandler = commands.NewSeedPopulationHandler(ctx.heuristicRepo, evolver, audit, locks, ctx.clock)
	ctx.evolveHandler = commands.NewEvolvePatternsHandler(ctx.heuristicRepo, evolver, audit, locks, ctx.clock)
	ctx.outcomeHandler = commands.NewRecordOutcomeHandler(ctx.heuristicRepo, writer, locks, ctx.clock)
	ctx.rankedHandler = queries.NewGetRecommendedHeuristicsHandler(ctx.heuristicRepo)
}

func (ctx *strategyEvolutionContext) rankedPopulation() ([]*evolution.Heuristic, error) {
	population, err := ctx.heuristicRepo.FindByPlayer(context.Background(), ctx.playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load population: %w", err)
	}
	return evolution.Rank(population), nil
}

// When steps

func (ctx *strategyEvolutionContext) playerSeedsPopulation(playerName string, seed int) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	ctx.playerID = pid

	seed64 := int64(seed)
	resp, err := ctx.seedHandler.Handle(context.Background(), &commands.SeedPopulationCommand{
		PlayerID: pid,
		Seed:     &seed64,
	})
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	seeded, ok := resp.(*commands.SeedPopulationResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	ctx.seedResponses = append(ctx.seedResponses, seeded)
	return nil
}

func (ctx *strategyEvolutionContext) playerReportsWinForTopHeuristic(playerName string, profit int) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	ctx.playerID = pid

	ranked, err := ctx.rankedPopulation()
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		return fmt.Errorf("population is empty")
	}

	_, err = ctx.outcomeHandler.Handle(context.Background(), &commands.RecordOutcomeCommand{
		PlayerID:    pid,
		HeuristicID: ranked[0].ID(),
		Success:     true,
		Profit:      float64(profit),
		CommodityID: "ore",
		FromPortID:  "sol-a3",
		ToPortID:    "vega-b1",
	})
	if err != nil {
		return fmt.Errorf("outcome report failed: %w", err)
	}
	return nil
}

func (ctx *strategyEvolutionContext) playerReportsWinForHeuristic(playerName string, profit int, heuristicID string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	ctx.playerID = pid

	// Keep the error for the Then step instead of failing here
	_, ctx.err = ctx.outcomeHandler.Handle(context.Background(), &commands.RecordOutcomeCommand{
		PlayerID:    pid,
		HeuristicID: heuristicID,
		Success:     true,
		Profit:      float64(profit),
		CommodityID: "ore",
		FromPortID:  "sol-a3",
		ToPortID:    "vega-b1",
	})
	return nil
}

func (ctx *strategyEvolutionContext) playerEvolvesPopulation(playerName string, seed int) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	ctx.playerID = pid

	seed64 := int64(seed)
	resp, err := ctx.evolveHandler.Handle(context.Background(), &commands.EvolvePatternsCommand{
		PlayerID: pid,
		Seed:     &seed64,
	})
	if err != nil {
		return fmt.Errorf("evolution failed: %w", err)
	}

	evolved, ok := resp.(*commands.EvolvePatternsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	ctx.evolveResponse = evolved
	return nil
}

// Then steps

func (ctx *strategyEvolutionContext) thePopulationShouldHold(count int) error {
	population, err := ctx.heuristicRepo.FindByPlayer(context.Background(), ctx.playerID)
	if err != nil {
		return fmt.Errorf("failed to load population: %w", err)
	}
	if len(population) != count {
		return fmt.Errorf("expected %d heuristics, got %d", count, len(population))
	}
	return nil
}

func (ctx *strategyEvolutionContext) thePopulationShouldBeAtGeneration(generation int) error {
	resp, err := ctx.rankedHandler.Handle(context.Background(), &queries.GetRecommendedHeuristicsQuery{
		PlayerID: ctx.playerID,
	})
	if err != nil {
		return fmt.Errorf("ranking query failed: %w", err)
	}

	ranked, ok := resp.(*queries.GetRecommendedHeuristicsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	if ranked.Generation != generation {
		return fmt.Errorf("expected generation %d, got %d", generation, ranked.Generation)
	}
	return nil
}

func (ctx *strategyEvolutionContext) theSecondSeedingShouldReportAnExistingPopulation() error {
	if len(ctx.seedResponses) < 2 {
		return fmt.Errorf("expected two seeding attempts, got %d", len(ctx.seedResponses))
	}

	second := ctx.seedResponses[1]
	if second.Created {
		return fmt.Errorf("expected the second seeding to find an existing population")
	}
	if second.Generation != 1 {
		return fmt.Errorf("expected the existing population at generation 1, got %d", second.Generation)
	}
	return nil
}

func (ctx *strategyEvolutionContext) theTopHeuristicShouldHaveFitness(fitness float64) error {
	ranked, err := ctx.rankedPopulation()
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		return fmt.Errorf("population is empty")
	}

	got := ranked[0].Fitness()
	if math.Abs(got-fitness) > 1e-9 {
		return fmt.Errorf("expected top fitness %.4f, got %.4f", fitness, got)
	}
	return nil
}

func (ctx *strategyEvolutionContext) theTopHeuristicShouldHaveSuccessRate(rate float64) error {
	ranked, err := ctx.rankedPopulation()
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		return fmt.Errorf("population is empty")
	}

	got := ranked[0].SuccessRate()
	if math.Abs(got-rate) > 1e-9 {
		return fmt.Errorf("expected top success rate %.4f, got %.4f", rate, got)
	}
	return nil
}

func (ctx *strategyEvolutionContext) nHeuristicsShouldBeSurvivors(count int) error {
	if ctx.evolveResponse == nil {
		return fmt.Errorf("no evolution response available")
	}
	if ctx.evolveResponse.Survivors != count {
		return fmt.Errorf("expected %d survivors, got %d", count, ctx.evolveResponse.Survivors)
	}
	return nil
}

func (ctx *strategyEvolutionContext) theReportShouldFailWithError(substring string) error {
	if ctx.err == nil {
		return fmt.Errorf("expected the report to fail, but it succeeded")
	}
	if !strings.Contains(ctx.err.Error(), substring) {
		return fmt.Errorf("expected error containing %q, got %q", substring, ctx.err.Error())
	}
	return nil
}

// Register steps

func InitializeStrategyEvolutionScenario(ctx *godog.ScenarioContext) {
	evolutionCtx := &strategyEvolutionContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		evolutionCtx.reset()
		return ctx, nil
	})

	ctx.Step(`^player "([^"]*)" seeds a strategy population with seed (\d+)$`, evolutionCtx.playerSeedsPopulation)
	ctx.Step(`^player "([^"]*)" reports a (\d+) credit win for the top heuristic$`, evolutionCtx.playerReportsWinForTopHeuristic)
	ctx.Step(`^player "([^"]*)" reports a (\d+) credit win for heuristic "([^"]*)"$`, evolutionCtx.playerReportsWinForHeuristic)
	ctx.Step(`^player "([^"]*)" evolves the population with seed (\d+)$`, evolutionCtx.playerEvolvesPopulation)
	ctx.Step(`^the population should hold (\d+) heuristics$`, evolutionCtx.thePopulationShouldHold)
	ctx.Step(`^the population should be at generation (\d+)$`, evolutionCtx.thePopulationShouldBeAtGeneration)
	ctx.Step(`^the second seeding should report an existing population$`, evolutionCtx.theSecondSeedingShouldReportAnExistingPopulation)
	ctx.Step(`^the top heuristic should have fitness ([0-9.]+)$`, evolutionCtx.theTopHeuristicShouldHaveFitness)
	ctx.Step(`^the top heuristic should have success rate ([0-9.]+)$`, evolutionCtx.theTopHeuristicShouldHaveSuccessRate)
	ctx.Step(`^(\d+) heuristics should be survivors of the previous generation$`, evolutionCtx.nHeuristicsShouldBeSurvivors)
	ctx.Step(`^the report should fail with an error containing "([^"]*)"$`, evolutionCtx.theReportShouldFailWithError)
}
