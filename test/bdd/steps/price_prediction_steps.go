package steps

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cucumber/godog"

	"github.com/sectorwars/aria-core/internal/adapters/crypto"
	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

type pricePredictionContext struct {
	clock *shared.MockClock

	recordHandler     *commands.RecordObservationHandler
	predictionHandler *queries.GetPredictionHandler

	response *queries.GetPredictionResponse
	err      error
}

func (ctx *pricePredictionContext) reset() {
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
	observationRepo := persistence.NewGormObservationRepository(db)
	patternRepo := persistence.NewGormPatternRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	cache := persistence.NewGormResultCache(db, ctx.clock)

	audit := services.NewAuditTrail(auditRepo, ctx.clock)
	writer := services.NewMemoryWriter(memoryRepo, audit, crypto.NewPlainCodec(), ctx.clock, 0)
	locks := common.NewPlayerLocks()

	ctx.recordHandler = commands.NewRecordObservationHandler(
		observationRepo,
		patternRepo,
		intel.NewRecognizer(3),
		writer,
		cache,
		locks,
		ctx.clock,
		15*time.Minute,
		3,
	)
	ctx.predictionHandler = queries.NewGetPredictionHandler(patternRepo, cache, 15*time.Minute)
}

// Given steps

func (ctx *pricePredictionContext) playerRecordsPrices(playerName, commodityID, portID string, table *godog.Table) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}

		buy, err := strconv.Atoi(cellValue(table, row, "buy_price"))
		if err != nil {
			return fmt.Errorf("invalid buy_price in row %d: %w", i, err)
		}
		sell, err := strconv.Atoi(cellValue(table, row, "sell_price"))
		if err != nil {
			return fmt.Errorf("invalid sell_price in row %d: %w", i, err)
		}

		_, err = ctx.recordHandler.Handle(context.Background(), &commands.RecordObservationCommand{
			PlayerID:    pid,
			PortID:      portID,
			CommodityID: commodityID,
			BuyPrice:    buy,
			SellPrice:   sell,
		})
		if err != nil {
			return fmt.Errorf("failed to record observation %d: %w", i, err)
		}

		ctx.clock.Advance(time.Hour)
	}

	return nil
}

// When steps

func (ctx *pricePredictionContext) playerAsksForPrediction(playerName, commodityID, portID string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	resp, err := ctx.predictionHandler.Handle(context.Background(), &queries.GetPredictionQuery{
		PlayerID:    pid,
		PortID:      portID,
		CommodityID: commodityID,
	})
	ctx.err = err
	ctx.response = nil
	if err != nil {
		return nil
	}

	prediction, ok := resp.(*queries.GetPredictionResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	ctx.response = prediction
	return nil
}

func (ctx *pricePredictionContext) playerAsksForPredictionAgain(playerName, commodityID, portID string) error {
	return ctx.playerAsksForPrediction(playerName, commodityID, portID)
}

// Then steps

func (ctx *pricePredictionContext) aPredictionShouldBeAvailable() error {
	if ctx.err != nil {
		return fmt.Errorf("prediction query failed: %w", ctx.err)
	}
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if !ctx.response.Available {
		return fmt.Errorf("expected a prediction, got refusal: %s", ctx.response.Reason)
	}
	return nil
}

func (ctx *pricePredictionContext) noPredictionShouldBeAvailable() error {
	if ctx.err != nil {
		return fmt.Errorf("prediction query failed: %w", ctx.err)
	}
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if ctx.response.Available {
		return fmt.Errorf("expected no prediction, got value %d", ctx.response.PredictedValue)
	}
	return nil
}

func (ctx *pricePredictionContext) thePredictedValueShouldBe(value int) error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if ctx.response.PredictedValue != value {
		return fmt.Errorf("expected predicted value %d, got %d", value, ctx.response.PredictedValue)
	}
	return nil
}

func (ctx *pricePredictionContext) thePatternShouldRead(kind string) error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if ctx.response.PatternKind != kind {
		return fmt.Errorf("expected pattern %q, got %q", kind, ctx.response.PatternKind)
	}
	return nil
}

func (ctx *pricePredictionContext) theRefusalReasonShouldBe(reason string) error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if ctx.response.Reason != reason {
		return fmt.Errorf("expected reason %q, got %q", reason, ctx.response.Reason)
	}
	return nil
}

func (ctx *pricePredictionContext) theAnswerShouldComeFromTheResultCache() error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if !ctx.response.FromCache {
		return fmt.Errorf("expected a cached answer, got a fresh computation")
	}
	return nil
}

// Register steps

func InitializePricePredictionScenario(ctx *godog.ScenarioContext) {
	predictionCtx := &pricePredictionContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		predictionCtx.reset()
		return ctx, nil
	})

	ctx.Step(`^player "([^"]*)" records the following "([^"]*)" prices at port "([^"]*)", one hour apart:$`, predictionCtx.playerRecordsPrices)
	ctx.Step(`^player "([^"]*)" asks for an? "([^"]*)" prediction at port "([^"]*)"$`, predictionCtx.playerAsksForPrediction)
	ctx.Step(`^player "([^"]*)" asks for an? "([^"]*)" prediction at port "([^"]*)" again$`, predictionCtx.playerAsksForPredictionAgain)
	ctx.Step(`^a prediction should be available$`, predictionCtx.aPredictionShouldBeAvailable)
	ctx.Step(`^no prediction should be available$`, predictionCtx.noPredictionShouldBeAvailable)
	ctx.Step(`^the predicted value should be (\d+) credits$`, predictionCtx.thePredictedValueShouldBe)
	ctx.Step(`^the pattern should read "([^"]*)"$`, predictionCtx.thePatternShouldRead)
	ctx.Step(`^the refusal reason should be "([^"]*)"$`, predictionCtx.theRefusalReasonShouldBe)
	ctx.Step(`^the answer should come from the result cache$`, predictionCtx.theAnswerShouldComeFromTheResultCache)
}
