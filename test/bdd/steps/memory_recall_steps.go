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
	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

// memoryDecayRate makes 200 days of decay visible in assertions without
// dropping fresh memories below the floor
const memoryDecayRate = 0.002

type memoryRecallContext struct {
	clock      *shared.MockClock
	auditRepo  *persistence.GormAuditRepository
	writer     *services.MemoryWriter
	remembered map[string]*memory.Record
	playerID   shared.PlayerID

	recallHandler *queries.GetMemoriesHandler
	forgetHandler *commands.ForgetMemoryHandler

	response *queries.GetMemoriesResponse
	err      error
}

func (ctx *memoryRecallContext) reset() {
	ctx.remembered = make(map[string]*memory.Record)
	ctx.playerID = shared.PlayerID{}
	ctx.response = nil
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
	ctx.auditRepo = persistence.NewGormAuditRepository(db, node)

	codec := crypto.NewPlainCodec()
	audit := services.NewAuditTrail(ctx.auditRepo, ctx.clock)
	ctx.writer = services.NewMemoryWriter(memoryRepo, audit, codec, ctx.clock, memoryDecayRate)
	locks := common.NewPlayerLocks()

	ctx.recallHandler = queries.NewGetMemoriesHandler(memoryRepo, codec, audit, ctx.clock)
	ctx.forgetHandler = commands.NewForgetMemoryHandler(memoryRepo, audit, locks)
}

// Given steps

func (ctx *memoryRecallContext) playerRemembersMemory(playerName, kind, label string, importance float64) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	ctx.playerID = pid

	record, stored, err := ctx.writer.Remember(
		context.Background(),
		pid,
		memory.Kind(kind),
		map[string]interface{}{"note": label},
		importance,
	)
	if err != nil {
		return fmt.Errorf("failed to remember %q: %w", label, err)
	}
	if !stored {
		return fmt.Errorf("memory %q was reported as a duplicate", label)
	}

	ctx.remembered[label] = record
	return nil
}

func (ctx *memoryRecallContext) daysPass(days int) error {
	ctx.clock.Advance(time.Duration(days) * 24 * time.Hour)
	return nil
}

// When steps

func (ctx *memoryRecallContext) recall(query *queries.GetMemoriesQuery) error {
	resp, err := ctx.recallHandler.Handle(context.Background(), query)
	ctx.err = err
	ctx.response = nil
	if err != nil {
		return nil
	}

	memories, ok := resp.(*queries.GetMemoriesResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	ctx.response = memories
	return nil
}

func (ctx *memoryRecallContext) playerRecallsMemories(playerName string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	ctx.playerID = pid

	if err := ctx.recall(&queries.GetMemoriesQuery{PlayerID: pid}); err != nil {
		return err
	}
	if ctx.err != nil {
		return fmt.Errorf("recall failed: %w", ctx.err)
	}
	return nil
}

func (ctx *memoryRecallContext) playerRecallsOnlyKind(playerName, kind string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	ctx.playerID = pid

	if err := ctx.recall(&queries.GetMemoriesQuery{PlayerID: pid, Kind: &kind}); err != nil {
		return err
	}
	if ctx.err != nil {
		return fmt.Errorf("recall failed: %w", ctx.err)
	}
	return nil
}

func (ctx *memoryRecallContext) playerRecallsStrongerThan(playerName string, minStrength float64) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	ctx.playerID = pid

	if err := ctx.recall(&queries.GetMemoriesQuery{PlayerID: pid, MinStrength: &minStrength}); err != nil {
		return err
	}
	if ctx.err != nil {
		return fmt.Errorf("recall failed: %w", ctx.err)
	}
	return nil
}

func (ctx *memoryRecallContext) playerTriesToRecallKind(playerName, kind string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	ctx.playerID = pid

	// Keep the error for the Then step instead of failing here
	return ctx.recall(&queries.GetMemoriesQuery{PlayerID: pid, Kind: &kind})
}

func (ctx *memoryRecallContext) playerForgetsMemory(playerName, label string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	record, ok := ctx.remembered[label]
	if !ok {
		return fmt.Errorf("no remembered memory labeled %q", label)
	}

	_, err = ctx.forgetHandler.Handle(context.Background(), &commands.ForgetMemoryCommand{
		PlayerID: pid,
		RecordID: record.ID(),
	})
	if err != nil {
		return fmt.Errorf("forget failed: %w", err)
	}
	return nil
}

// Then steps

func (ctx *memoryRecallContext) nMemoriesShouldSurface(count int) error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if len(ctx.response.Memories) != count {
		return fmt.Errorf("expected %d memories, got %d", count, len(ctx.response.Memories))
	}
	return nil
}

func (ctx *memoryRecallContext) noMemoriesShouldSurface() error {
	return ctx.nMemoriesShouldSurface(0)
}

func (ctx *memoryRecallContext) memoryNShouldBeKind(position int, kind string) error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if position < 1 || position > len(ctx.response.Memories) {
		return fmt.Errorf("position %d out of range, have %d memories", position, len(ctx.response.Memories))
	}

	got := ctx.response.Memories[position-1].Kind
	if got != kind {
		return fmt.Errorf("expected memory %d to be %q, got %q", position, kind, got)
	}
	return nil
}

func (ctx *memoryRecallContext) memoryNShouldHaveStrength(position int, strength float64) error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if position < 1 || position > len(ctx.response.Memories) {
		return fmt.Errorf("position %d out of range, have %d memories", position, len(ctx.response.Memories))
	}

	got := ctx.response.Memories[position-1].EffectiveStrength
	if math.Abs(got-strength) > 0.001 {
		return fmt.Errorf("expected memory %d strength %.4f, got %.4f", position, strength, got)
	}
	return nil
}

func (ctx *memoryRecallContext) recallNotedInAuditTrail(resource string) error {
	entries, err := ctx.auditRepo.ListByPlayer(context.Background(), ctx.playerID, 50)
	if err != nil {
		return fmt.Errorf("failed to list audit entries: %w", err)
	}

	for _, entry := range entries {
		if entry.Action() == "memory_query" && entry.Resource() == resource {
			return nil
		}
	}
	return fmt.Errorf("no memory_query audit entry for resource %q", resource)
}

func (ctx *memoryRecallContext) recallShouldFailWithError(substring string) error {
	if ctx.err == nil {
		return fmt.Errorf("expected recall to fail, but it succeeded")
	}
	if !strings.Contains(ctx.err.Error(), substring) {
		return fmt.Errorf("expected error containing %q, got %q", substring, ctx.err.Error())
	}
	return nil
}

// Register steps

func InitializeMemoryRecallScenario(ctx *godog.ScenarioContext) {
	recallCtx := &memoryRecallContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		recallCtx.reset()
		return ctx, nil
	})

	ctx.Step(`^player "([^"]*)" remembers an? "([^"]*)" memory "([^"]*)" with importance ([0-9.]+)$`, recallCtx.playerRemembersMemory)
	ctx.Step(`^(\d+) days pass$`, recallCtx.daysPass)
	ctx.Step(`^player "([^"]*)" recalls memories$`, recallCtx.playerRecallsMemories)
	ctx.Step(`^player "([^"]*)" recalls only "([^"]*)" memories$`, recallCtx.playerRecallsOnlyKind)
	ctx.Step(`^player "([^"]*)" recalls memories stronger than ([0-9.]+)$`, recallCtx.playerRecallsStrongerThan)
	ctx.Step(`^player "([^"]*)" tries to recall "([^"]*)" memories$`, recallCtx.playerTriesToRecallKind)
	ctx.Step(`^player "([^"]*)" forgets the "([^"]*)" memory$`, recallCtx.playerForgetsMemory)
	ctx.Step(`^(\d+) memor(?:y|ies) should surface$`, recallCtx.nMemoriesShouldSurface)
	ctx.Step(`^no memories should surface$`, recallCtx.noMemoriesShouldSurface)
	ctx.Step(`^memory (\d+) should be the "([^"]*)" memory$`, recallCtx.memoryNShouldBeKind)
	ctx.Step(`^memory (\d+) should have effective strength ([0-9.]+)$`, recallCtx.memoryNShouldHaveStrength)
	ctx.Step(`^the recall should be noted in the audit trail as "([^"]*)"$`, recallCtx.recallNotedInAuditTrail)
	ctx.Step(`^the recall should fail with an error containing "([^"]*)"$`, recallCtx.recallShouldFailWithError)
}
