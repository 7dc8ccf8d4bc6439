package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cucumber/godog"

	"github.com/sectorwars/aria-core/internal/adapters/crypto"
	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

type recordedLedger struct {
	playerName  string
	portID      string
	commodityID string
}

type dataErasureContext struct {
	clock *shared.MockClock

	memoryRepo      *persistence.GormMemoryRepository
	observationRepo *persistence.GormObservationRepository
	patternRepo     *persistence.GormPatternRepository
	heuristicRepo   *persistence.GormHeuristicRepository
	visitRepo       *persistence.GormVisitRepository
	linkRepo        *persistence.GormLinkRepository
	auditRepo       *persistence.GormAuditRepository

	visitHandler       *commands.RecordVisitHandler
	observationHandler *commands.RecordObservationHandler
	seedHandler        *commands.SeedPopulationHandler
	purgeHandler       *commands.PurgePlayerDataHandler

	ledgers       []recordedLedger
	purgeResponse *commands.PurgePlayerDataResponse
}

func (ctx *dataErasureContext) reset() {
	ctx.ledgers = nil
	ctx.purgeResponse = nil

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

	ctx.memoryRepo = persistence.NewGormMemoryRepository(db)
	ctx.observationRepo = persistence.NewGormObservationRepository(db)
	ctx.patternRepo = persistence.NewGormPatternRepository(db)
	ctx.heuristicRepo = persistence.NewGormHeuristicRepository(db)
	ctx.visitRepo = persistence.NewGormVisitRepository(db)
	ctx.linkRepo = persistence.NewGormLinkRepository(db)
	ctx.auditRepo = persistence.NewGormAuditRepository(db, node)
	cache := persistence.NewGormResultCache(db, ctx.clock)

	audit := services.NewAuditTrail(ctx.auditRepo, ctx.clock)
	writer := services.NewMemoryWriter(ctx.memoryRepo, audit, crypto.NewPlainCodec(), ctx.clock, 0)
	locks := common.NewPlayerLocks()

	ctx.visitHandler = commands.NewRecordVisitHandler(ctx.visitRepo, ctx.linkRepo, writer, locks, ctx.clock)
	ctx.observationHandler = commands.NewRecordObservationHandler(
		ctx.observationRepo,
		ctx.patternRepo,
		intel.NewRecognizer(3),
		writer,
		cache,
		locks,
		ctx.clock,
		15*time.Minute,
		3,
	)
	ctx.seedHandler = commands.NewSeedPopulationHandler(ctx.heuristicRepo, evolution.NewEvolver(8), audit, locks, ctx.clock)
	ctx.purgeHandler = commands.NewPurgePlayerDataHandler(
		ctx.memoryRepo,
		ctx.observationRepo,
		ctx.patternRepo,
		ctx.heuristicRepo,
		ctx.visitRepo,
		ctx.linkRepo,
		cache,
		audit,
		locks,
	)
}

// Given steps

func (ctx *dataErasureContext) playerHasRecordedVisit(playerName, portID, sectorID string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	_, err = ctx.visitHandler.Handle(context.Background(), &commands.RecordVisitCommand{
		PlayerID:  pid,
		SectorID:  sectorID,
		PortID:    portID,
		PortClass: "hub",
	})
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

func (ctx *dataErasureContext) playerHasRecordedPrice(playerName, commodityID string, buyPrice, sellPrice int, portID string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	_, err = ctx.observationHandler.Handle(context.Background(), &commands.RecordObservationCommand{
		PlayerID:    pid,
		PortID:      portID,
		CommodityID: commodityID,
		BuyPrice:    buyPrice,
		SellPrice:   sellPrice,
	})
	if err != nil {
		return fmt.Errorf("failed to record observation: %w", err)
	}

	ctx.ledgers = append(ctx.ledgers, recordedLedger{playerName: playerName, portID: portID, commodityID: commodityID})
	return nil
}

func (ctx *dataErasureContext) playerHasSeededPopulation(playerName string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	seed := int64(42)
	_, err = ctx.seedHandler.Handle(context.Background(), &commands.SeedPopulationCommand{
		PlayerID: pid,
		Seed:     &seed,
	})
	if err != nil {
		return fmt.Errorf("failed to seed population: %w", err)
	}
	return nil
}

// When steps

func (ctx *dataErasureContext) playerInvokesErasure(playerName string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	resp, err := ctx.purgeHandler.Handle(context.Background(), &commands.PurgePlayerDataCommand{PlayerID: pid})
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	purged, ok := resp.(*commands.PurgePlayerDataResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	ctx.purgeResponse = purged
	return nil
}

// Then steps

func (ctx *dataErasureContext) thePurgeShouldReportClearedStores(count int) error {
	if ctx.purgeResponse == nil {
		return fmt.Errorf("no purge response available")
	}
	if !ctx.purgeResponse.Purged {
		return fmt.Errorf("expected the purge to report success")
	}
	if len(ctx.purgeResponse.Stores) != count {
		return fmt.Errorf("expected %d cleared stores, got %d: %v", count, len(ctx.purgeResponse.Stores), ctx.purgeResponse.Stores)
	}
	return nil
}

func (ctx *dataErasureContext) noPersonalDataShouldRemain(playerName string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	memories, err := ctx.memoryRepo.CountByPlayer(context.Background(), pid)
	if err != nil {
		return fmt.Errorf("failed to count memories: %w", err)
	}
	if memories != 0 {
		return fmt.Errorf("expected no memories, found %d", memories)
	}

	for _, ledger := range ctx.ledgers {
		if ledger.playerName != playerName {
			continue
		}
		history, err := ctx.observationRepo.History(context.Background(), pid, ledger.portID, ledger.commodityID, 0)
		if err != nil {
			return fmt.Errorf("failed to load ledger %s/%s: %w", ledger.portID, ledger.commodityID, err)
		}
		if len(history) != 0 {
			return fmt.Errorf("expected an empty ledger for %s/%s, found %d observations", ledger.portID, ledger.commodityID, len(history))
		}
	}

	patterns, err := ctx.patternRepo.ListByPlayer(context.Background(), pid)
	if err != nil {
		return fmt.Errorf("failed to list patterns: %w", err)
	}
	if len(patterns) != 0 {
		return fmt.Errorf("expected no patterns, found %d", len(patterns))
	}

	population, err := ctx.heuristicRepo.FindByPlayer(context.Background(), pid)
	if err != nil {
		return fmt.Errorf("failed to load population: %w", err)
	}
	if len(population) != 0 {
		return fmt.Errorf("expected no heuristics, found %d", len(population))
	}

	visits, err := ctx.visitRepo.CountByPlayer(context.Background(), pid)
	if err != nil {
		return fmt.Errorf("failed to count visits: %w", err)
	}
	if visits != 0 {
		return fmt.Errorf("expected no visits, found %d", visits)
	}

	links, err := ctx.linkRepo.ListByPlayer(context.Background(), pid)
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}
	if len(links) != 0 {
		return fmt.Errorf("expected no links, found %d", len(links))
	}

	return nil
}

func (ctx *dataErasureContext) auditTrailShouldStillHoldEntry(action, playerName string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	entries, err := ctx.auditRepo.ListByPlayer(context.Background(), pid, 50)
	if err != nil {
		return fmt.Errorf("failed to list audit entries: %w", err)
	}

	for _, entry := range entries {
		if entry.Action() == action {
			return nil
		}
	}
	return fmt.Errorf("no %q audit entry found in %d entries", action, len(entries))
}

func (ctx *dataErasureContext) playerShouldStillHaveVisits(playerName string, count int) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	visits, err := ctx.visitRepo.CountByPlayer(context.Background(), pid)
	if err != nil {
		return fmt.Errorf("failed to count visits: %w", err)
	}
	if visits != int64(count) {
		return fmt.Errorf("expected %d visits, got %d", count, visits)
	}
	return nil
}

// Register steps

func InitializeDataErasureScenario(ctx *godog.ScenarioContext) {
	erasureCtx := &dataErasureContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		erasureCtx.reset()
		return ctx, nil
	})

	ctx.Step(`^player "([^"]*)" has recorded a visit to port "([^"]*)" in sector "([^"]*)"$`, erasureCtx.playerHasRecordedVisit)
	ctx.Step(`^player "([^"]*)" has recorded an? "([^"]*)" price of buy (\d+) sell (\d+) at port "([^"]*)"$`, erasureCtx.playerHasRecordedPrice)
	ctx.Step(`^player "([^"]*)" has seeded a strategy population$`, erasureCtx.playerHasSeededPopulation)
	ctx.Step(`^player "([^"]*)" invokes the right to erasure$`, erasureCtx.playerInvokesErasure)
	ctx.Step(`^the purge should report (\d+) cleared stores$`, erasureCtx.thePurgeShouldReportClearedStores)
	ctx.Step(`^no personal data should remain for player "([^"]*)"$`, erasureCtx.noPersonalDataShouldRemain)
	ctx.Step(`^the audit trail should still hold a "([^"]*)" entry for player "([^"]*)"$`, erasureCtx.auditTrailShouldStillHoldEntry)
	ctx.Step(`^player "([^"]*)" should still have (\d+) recorded visits?$`, erasureCtx.playerShouldStillHaveVisits)
}
