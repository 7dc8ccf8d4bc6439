package steps

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cucumber/godog"

	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

type routePlanningContext struct {
	clock       *shared.MockClock
	visitRepo   *persistence.GormVisitRepository
	linkRepo    *persistence.GormLinkRepository
	patternRepo *persistence.GormPatternRepository

	planHandler *queries.GetRoutePlanHandler

	response *queries.GetRoutePlanResponse
	err      error
}

func (ctx *routePlanningContext) reset() {
	ctx.response = nil
	ctx.err = nil

	// Truncate all tables for test isolation
	if err := helpers.TruncateAllTables(); err != nil {
		panic(fmt.Errorf("failed to truncate tables: %w", err))
	}

	db := helpers.SharedTestDB
	ctx.clock = shared.NewMockClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	ctx.visitRepo = persistence.NewGormVisitRepository(db)
	ctx.linkRepo = persistence.NewGormLinkRepository(db)
	ctx.patternRepo = persistence.NewGormPatternRepository(db)
	heuristicRepo := persistence.NewGormHeuristicRepository(db)
	cache := persistence.NewGormResultCache(db, ctx.clock)

	ctx.planHandler = queries.NewGetRoutePlanHandler(
		ctx.visitRepo,
		ctx.linkRepo,
		ctx.patternRepo,
		heuristicRepo,
		nil,
		cache,
		15*time.Minute,
	)
}

// Given steps

func (ctx *routePlanningContext) playerHasVisitedPorts(playerName string, table *godog.Table) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}

		visit, err := exploration.NewVisitRecord(
			pid,
			cellValue(table, row, "sector_id"),
			cellValue(table, row, "port_id"),
			cellValue(table, row, "port_class"),
			ctx.clock.Now(),
		)
		if err != nil {
			return fmt.Errorf("invalid visit in row %d: %w", i, err)
		}
		if err := ctx.visitRepo.Save(context.Background(), visit); err != nil {
			return fmt.Errorf("failed to save visit %d: %w", i, err)
		}
	}

	return nil
}

func (ctx *routePlanningContext) playerHasTraveled(playerName, fromPortID, toPortID string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	link, err := exploration.NewTravelLink(pid, fromPortID, toPortID, ctx.clock.Now())
	if err != nil {
		return fmt.Errorf("invalid travel link: %w", err)
	}
	return ctx.linkRepo.Save(context.Background(), link)
}

func (ctx *routePlanningContext) playerHoldsPattern(playerName, commodityID, portID string, predicted int, confidence float64) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}

	pattern, err := intel.NewPricePattern(
		pid,
		portID,
		commodityID,
		intel.PatternTrendingUp,
		confidence,
		3,
		5.0,
		predicted,
		confidence,
		ctx.clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	return ctx.patternRepo.Upsert(context.Background(), pattern)
}

// When steps

func (ctx *routePlanningContext) plan(query *queries.GetRoutePlanQuery) error {
	resp, err := ctx.planHandler.Handle(context.Background(), query)
	ctx.err = err
	ctx.response = nil
	if err != nil {
		return fmt.Errorf("route planning failed: %w", err)
	}

	plan, ok := resp.(*queries.GetRoutePlanResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	ctx.response = plan
	return nil
}

func (ctx *routePlanningContext) playerPlansRoute(playerName, startPortID string) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	return ctx.plan(&queries.GetRoutePlanQuery{PlayerID: pid, StartPortID: startPortID})
}

func (ctx *routePlanningContext) playerPlansRouteRequiringConfidence(playerName, startPortID string, minConfidence float64) error {
	pid, err := shared.NewPlayerID(playerName)
	if err != nil {
		return err
	}
	return ctx.plan(&queries.GetRoutePlanQuery{
		PlayerID:      pid,
		StartPortID:   startPortID,
		MinConfidence: minConfidence,
	})
}

// Then steps

func (ctx *routePlanningContext) aViableRouteShouldBeFound() error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if !ctx.response.Viable {
		return fmt.Errorf("expected a viable route, got refusal: %s", ctx.response.Reason)
	}
	return nil
}

func (ctx *routePlanningContext) noViableRouteShouldBeFound() error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if ctx.response.Viable {
		return fmt.Errorf("expected no route, got %d hops worth %.0f credits", len(ctx.response.Hops), ctx.response.TotalExpectedProfit)
	}
	return nil
}

func (ctx *routePlanningContext) theRouteShouldSpanHops(hops int) error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if len(ctx.response.Hops) != hops {
		return fmt.Errorf("expected %d hops, got %d", hops, len(ctx.response.Hops))
	}
	return nil
}

func (ctx *routePlanningContext) theExpectedProfitShouldBe(credits int) error {
	if ctx.response == nil {
		return fmt.Errorf("no response available")
	}
	if math.Abs(ctx.response.TotalExpectedProfit-float64(credits)) > 1e-6 {
		return fmt.Errorf("expected profit %d, got %.4f", credits, ctx.response.TotalExpectedProfit)
	}
	return nil
}

// Register steps

func InitializeRoutePlanningScenario(ctx *godog.ScenarioContext) {
	routeCtx := &routePlanningContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		routeCtx.reset()
		return ctx, nil
	})

	ctx.Step(`^player "([^"]*)" has visited these ports:$`, routeCtx.playerHasVisitedPorts)
	ctx.Step(`^player "([^"]*)" has traveled from "([^"]*)" to "([^"]*)"$`, routeCtx.playerHasTraveled)
	ctx.Step(`^player "([^"]*)" holds an? "([^"]*)" pattern at "([^"]*)" predicting (\d+) credits with confidence ([0-9.]+)$`, routeCtx.playerHoldsPattern)
	ctx.Step(`^player "([^"]*)" plans a route from "([^"]*)"$`, routeCtx.playerPlansRoute)
	ctx.Step(`^player "([^"]*)" plans a route from "([^"]*)" requiring confidence ([0-9.]+)$`, routeCtx.playerPlansRouteRequiringConfidence)
	ctx.Step(`^a viable route should be found$`, routeCtx.aViableRouteShouldBeFound)
	ctx.Step(`^no viable route should be found$`, routeCtx.noViableRouteShouldBeFound)
	ctx.Step(`^the route should span (\d+) hops?$`, routeCtx.theRouteShouldSpanHops)
	ctx.Step(`^the expected profit should be (\d+) credits$`, routeCtx.theExpectedProfitShouldBe)
}
