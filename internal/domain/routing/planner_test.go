package routing_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/routing"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

var plannedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// graphOf builds a graph by hand: nodes then edges as
// (from, to, commodity, profit, confidence) tuples
func graphOf(t *testing.T, nodes []string, edges ...*routing.TradeEdge) *routing.TradeGraph {
	t.Helper()
	g := routing.NewTradeGraph()
	for _, id := range nodes {
		g.AddNode(&routing.PortNode{PortID: id, SectorID: "sol", PortClass: "hub", VisitCount: 1})
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e))
	}
	return g
}

func edge(from, to, commodity string, profit, confidence float64) *routing.TradeEdge {
	return &routing.TradeEdge{
		FromPortID:     from,
		ToPortID:       to,
		CommodityID:    commodity,
		ExpectedProfit: profit,
		Confidence:     confidence,
	}
}

func TestPlanner_PlansCascade(t *testing.T) {
	g := graphOf(t, []string{"a", "b", "c"},
		edge("a", "b", "ore", 100, 0.8),
		edge("b", "c", "fuel", 150, 0.7),
	)

	planner := routing.NewPlanner()
	plan, err := planner.PlanCascade(context.Background(), g, "a", 3, 0, nil)
	require.NoError(t, err)

	require.Equal(t, 2, plan.HopCount())
	assert.Equal(t, "ore", plan.Hops()[0].CommodityID)
	assert.Equal(t, "fuel", plan.Hops()[1].CommodityID)
	assert.InDelta(t, 250.0, plan.TotalExpectedProfit(), 1e-9)
	assert.InDelta(t, 0.5, plan.AggregateRisk(), 1e-9)
	assert.Contains(t, plan.Summary(), "2-hop cascade from a")
}

func TestPlanner_UnknownStartPort(t *testing.T) {
	g := graphOf(t, []string{"a"})

	planner := routing.NewPlanner()
	_, err := planner.PlanCascade(context.Background(), g, "never-visited", 3, 0, nil)

	assert.ErrorIs(t, err, routing.ErrNoViableRoute)
}

func TestPlanner_ConfidenceGateExcludesEdges(t *testing.T) {
	g := graphOf(t, []string{"a", "b"},
		edge("a", "b", "ore", 500, 0.4),
	)

	planner := routing.NewPlanner()

	// Below the gate the lone edge is excluded entirely, not penalized
	_, err := planner.PlanCascade(context.Background(), g, "a", 3, 0.6, nil)
	assert.ErrorIs(t, err, routing.ErrNoViableRoute)

	// At a permissive gate the same edge is admissible
	plan, err := planner.PlanCascade(context.Background(), g, "a", 3, 0.3, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.HopCount())
}

func TestPlanner_HopBudgetBoundsPathLength(t *testing.T) {
	g := graphOf(t, []string{"a", "b", "c", "d", "e"},
		edge("a", "b", "ore", 100, 0.9),
		edge("b", "c", "ore", 100, 0.9),
		edge("c", "d", "ore", 100, 0.9),
		edge("d", "e", "ore", 100, 0.9),
	)

	planner := routing.NewPlanner()
	plan, err := planner.PlanCascade(context.Background(), g, "a", 2, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, plan.HopCount())
	assert.InDelta(t, 200.0, plan.TotalExpectedProfit(), 1e-9)
}

func TestPlanner_PicksMostProfitableBranch(t *testing.T) {
	g := graphOf(t, []string{"a", "b", "c"},
		edge("a", "b", "ore", 100, 0.8),
		edge("a", "c", "fuel", 300, 0.8),
	)

	planner := routing.NewPlanner()
	plan, err := planner.PlanCascade(context.Background(), g, "a", 1, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, "c", plan.Hops()[0].ToPortID)
}

func TestPlanner_TieFavorsFewerHops(t *testing.T) {
	g := graphOf(t, []string{"a", "b", "c", "d"},
		edge("a", "b", "ore", 100, 0.8),
		edge("a", "c", "fuel", 50, 0.8),
		edge("c", "d", "fuel", 50, 0.8),
	)

	planner := routing.NewPlanner()
	plan, err := planner.PlanCascade(context.Background(), g, "a", 3, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, plan.HopCount())
	assert.Equal(t, "b", plan.Hops()[0].ToPortID)
}

func TestPlanner_NeverRevisitsAPort(t *testing.T) {
	// a <-> b cycle with juicy profits in both directions
	g := graphOf(t, []string{"a", "b"},
		edge("a", "b", "ore", 100, 0.9),
		edge("b", "a", "ore", 100, 0.9),
	)

	planner := routing.NewPlanner()
	plan, err := planner.PlanCascade(context.Background(), g, "a", 10, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, plan.HopCount())
}

func TestPlanner_GenePreferenceBiasesRankingOnly(t *testing.T) {
	g := graphOf(t, []string{"a", "b", "c"},
		edge("a", "b", "ore", 100, 0.8),
		edge("a", "c", "fuel", 105, 0.8),
	)

	genes := &evolution.Genes{
		RiskTolerance:        0.5,
		MinProfitMargin:      0.1,
		MaxHops:              3,
		TimePreference:       12,
		PreferredCommodities: []string{"ore"},
	}
	require.NoError(t, genes.Validate())

	planner := routing.NewPlanner()
	plan, err := planner.PlanCascade(context.Background(), g, "a", 1, 0, genes)
	require.NoError(t, err)

	// The 10% affinity bonus outweighs the raw 5-credit difference, but the
	// reported profit stays the unbiased expectation
	assert.Equal(t, "b", plan.Hops()[0].ToPortID)
	assert.InDelta(t, 100.0, plan.TotalExpectedProfit(), 1e-9)
}

func TestPlanner_CancelledContext(t *testing.T) {
	g := graphOf(t, []string{"a", "b"},
		edge("a", "b", "ore", 100, 0.9),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	planner := routing.NewPlanner()
	_, err := planner.PlanCascade(ctx, g, "a", 3, 0, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestTradeGraph_RefusesEdgesOutsideVisitedSet(t *testing.T) {
	g := routing.NewTradeGraph()
	g.AddNode(&routing.PortNode{PortID: "a"})

	err := g.AddEdge(edge("a", "never-visited", "ore", 100, 0.9))
	assert.ErrorIs(t, err, routing.ErrUnknownPort)

	err = g.AddEdge(edge("never-visited", "a", "ore", 100, 0.9))
	assert.ErrorIs(t, err, routing.ErrUnknownPort)

	assert.Equal(t, 0, g.EdgeCount())
}

func buildPattern(t *testing.T, portID string, predicted int, confidence float64) *intel.PricePattern {
	t.Helper()
	pattern, err := intel.NewPricePattern(
		shared.MustNewPlayerID("player-1"), portID, "ore",
		intel.PatternTrendingUp, 0.8, 5, 10, predicted, confidence, plannedAt)
	require.NoError(t, err)
	return pattern
}

func TestBuildGraph_DerivesEdgesFromOwnTerritory(t *testing.T) {
	playerID := shared.MustNewPlayerID("player-1")

	visitA, err := exploration.NewVisitRecord(playerID, "sol", "a", "hub", plannedAt)
	require.NoError(t, err)
	visitB, err := exploration.NewVisitRecord(playerID, "sol", "b", "hub", plannedAt)
	require.NoError(t, err)

	linkAB, err := exploration.NewTravelLink(playerID, "a", "b", plannedAt)
	require.NoError(t, err)
	// The player heard of c but never visited it
	linkBC, err := exploration.NewTravelLink(playerID, "b", "c", plannedAt)
	require.NoError(t, err)

	patterns := []*intel.PricePattern{
		buildPattern(t, "a", 10, 0.8),
		buildPattern(t, "b", 20, 0.6),
		buildPattern(t, "c", 90, 0.9),
	}

	g := routing.BuildGraph(
		[]*exploration.VisitRecord{visitA, visitB},
		[]*exploration.TravelLink{linkAB, linkBC},
		patterns,
	)

	// Unvisited territory is invisible: no node, no edge, however juicy
	assert.False(t, g.HasNode("c"))
	assert.Equal(t, 2, g.NodeCount())
	require.Equal(t, 1, g.EdgeCount())

	// Spread 10 at the weaker endpoint's confidence 0.6
	hop := g.EdgesFrom("a")[0]
	assert.Equal(t, "b", hop.ToPortID)
	assert.InDelta(t, 0.6, hop.Confidence, 1e-9)
	assert.InDelta(t, 6.0, hop.ExpectedProfit, 1e-9)

	// Planning over this graph can never route through c
	planner := routing.NewPlanner()
	plan, err := planner.PlanCascade(context.Background(), g, "a", 5, 0, nil)
	require.NoError(t, err)
	for _, hop := range plan.Hops() {
		assert.NotEqual(t, "c", hop.ToPortID)
	}
}

func TestBuildGraph_PrivacyHoldsForRandomTerritories(t *testing.T) {
	playerID := shared.MustNewPlayerID("player-1")
	rng := rand.New(rand.NewSource(1337))
	planner := routing.NewPlanner()

	universe := make([]string, 20)
	for i := range universe {
		universe[i] = fmt.Sprintf("port-%02d", i)
	}

	for trial := 0; trial < 50; trial++ {
		visited := make(map[string]bool)
		var visits []*exploration.VisitRecord
		for _, portID := range universe {
			if rng.Float64() < 0.4 {
				continue
			}
			visit, err := exploration.NewVisitRecord(playerID, "sol", portID, "hub", plannedAt)
			require.NoError(t, err)
			visits = append(visits, visit)
			visited[portID] = true
		}

		// Links land on arbitrary pairs, many of them into ports never visited
		var links []*exploration.TravelLink
		for i := 0; i < 40; i++ {
			from := universe[rng.Intn(len(universe))]
			to := universe[rng.Intn(len(universe))]
			if from == to {
				continue
			}
			link, err := exploration.NewTravelLink(playerID, from, to, plannedAt)
			require.NoError(t, err)
			links = append(links, link)
		}

		// Every port carries a pattern, so unvisited ones look as tempting as any
		var patterns []*intel.PricePattern
		for _, portID := range universe {
			patterns = append(patterns, buildPattern(t, portID, 10+rng.Intn(200), 0.2+rng.Float64()*0.7))
		}

		g := routing.BuildGraph(visits, links, patterns)

		for _, portID := range g.NodeIDs() {
			require.True(t, visited[portID], "trial %d leaked node %s", trial, portID)
			for _, e := range g.EdgesFrom(portID) {
				require.True(t, visited[e.FromPortID] && visited[e.ToPortID],
					"trial %d leaked edge %s->%s", trial, e.FromPortID, e.ToPortID)
			}
		}

		if len(visits) == 0 {
			continue
		}
		start := visits[rng.Intn(len(visits))].PortID()
		plan, err := planner.PlanCascade(context.Background(), g, start, 5, 0, nil)
		if errors.Is(err, routing.ErrNoViableRoute) {
			continue
		}
		require.NoError(t, err)
		for _, hop := range plan.Hops() {
			require.True(t, visited[hop.FromPortID] && visited[hop.ToPortID],
				"trial %d planned through %s->%s", trial, hop.FromPortID, hop.ToPortID)
		}
	}
}

func TestBuildGraph_SkipsUnprofitableSpreads(t *testing.T) {
	playerID := shared.MustNewPlayerID("player-1")

	visitA, err := exploration.NewVisitRecord(playerID, "sol", "a", "hub", plannedAt)
	require.NoError(t, err)
	visitB, err := exploration.NewVisitRecord(playerID, "sol", "b", "hub", plannedAt)
	require.NoError(t, err)
	link, err := exploration.NewTravelLink(playerID, "a", "b", plannedAt)
	require.NoError(t, err)

	// Destination predicts the same price: nothing to earn
	g := routing.BuildGraph(
		[]*exploration.VisitRecord{visitA, visitB},
		[]*exploration.TravelLink{link},
		[]*intel.PricePattern{
			buildPattern(t, "a", 50, 0.8),
			buildPattern(t, "b", 50, 0.8),
		},
	)

	assert.Equal(t, 0, g.EdgeCount())
}

func TestNewRoutePlan_RequiresHops(t *testing.T) {
	_, err := routing.NewRoutePlan(nil)
	assert.ErrorIs(t, err, routing.ErrNoViableRoute)
}
