package queries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sectorwars/aria-core/internal/application/intelligence/ports"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/routing"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

const (
	defaultRouteTTL      = 15 * time.Minute
	defaultMaxHops       = 4
	defaultMinConfidence = 0.3
)

// GetRoutePlanQuery asks for the most profitable trade cascade starting at
// a port, built only from what the player has personally seen
type GetRoutePlanQuery struct {
	PlayerID      shared.PlayerID
	StartPortID   string
	MaxHops       int     // Non-positive uses the default
	MinConfidence float64 // Non-positive uses the default
}

// RouteHopDTO is one leg of the planned cascade
type RouteHopDTO struct {
	FromPortID     string  `json:"from_port_id"`
	ToPortID       string  `json:"to_port_id"`
	CommodityID    string  `json:"commodity_id"`
	ExpectedProfit float64 `json:"expected_profit"`
	Confidence     float64 `json:"confidence"`
}

// GetRoutePlanResponse is the planning outcome. Viable=false is the normal
// answer for sparsely explored territory, not an error.
type GetRoutePlanResponse struct {
	Viable              bool          `json:"viable"`
	Reason              string        `json:"reason,omitempty"`
	Hops                []RouteHopDTO `json:"hops,omitempty"`
	TotalExpectedProfit float64       `json:"total_expected_profit"`
	AggregateRisk       float64       `json:"aggregate_risk"`
	Summary             string        `json:"summary,omitempty"`
	PortsConsidered     int           `json:"ports_considered"`
	FromCache           bool          `json:"-"`
}

// GetRoutePlanHandler handles the GetRoutePlan query
type GetRoutePlanHandler struct {
	visitRepo     exploration.VisitRepository
	linkRepo      exploration.LinkRepository
	patternRepo   intel.PatternRepository
	heuristicRepo evolution.Repository
	planner       *routing.Planner
	cache         ports.ResultCache
	cacheTTL      time.Duration
}

// NewGetRoutePlanHandler creates a new GetRoutePlanHandler
func NewGetRoutePlanHandler(
	visitRepo exploration.VisitRepository,
	linkRepo exploration.LinkRepository,
	patternRepo intel.PatternRepository,
	heuristicRepo evolution.Repository,
	planner *routing.Planner,
	cache ports.ResultCache,
	cacheTTL time.Duration,
) *GetRoutePlanHandler {
	if planner == nil {
		planner = routing.NewPlanner()
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultRouteTTL
	}

	return &GetRoutePlanHandler{
		visitRepo:     visitRepo,
		linkRepo:      linkRepo,
		patternRepo:   patternRepo,
		heuristicRepo: heuristicRepo,
		planner:       planner,
		cache:         cache,
		cacheTTL:      cacheTTL,
	}
}

// Handle executes the GetRoutePlan query
func (h *GetRoutePlanHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetRoutePlanQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetRoutePlanQuery")
	}

	maxHops := query.MaxHops
	if maxHops < 1 {
		maxHops = defaultMaxHops
	}
	minConfidence := query.MinConfidence
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}

	if h.cache == nil {
		return h.compute(ctx, query, maxHops, minConfidence)
	}

	key := ports.RouteKeyPrefix + query.StartPortID + ":" + strconv.Itoa(maxHops) + ":" + strconv.FormatFloat(minConfidence, 'f', 2, 64)

	cached, err := h.cache.GetOrCompute(ctx, query.PlayerID, key, h.cacheTTL, func(ctx context.Context) ([]byte, error) {
		response, err := h.compute(ctx, query, maxHops, minConfidence)
		if err != nil {
			return nil, err
		}
		// No-route outcomes are never cached: the next observation or visit
		// may open a route, and the stale answer would hide it.
		if !response.Viable {
			return nil, routing.ErrNoViableRoute
		}
		return json.Marshal(response)
	})
	if err != nil {
		if errors.Is(err, routing.ErrNoViableRoute) {
			return noViableRoute(), nil
		}
		return nil, err
	}

	var response GetRoutePlanResponse
	if err := json.Unmarshal(cached.Payload, &response); err != nil {
		return nil, fmt.Errorf("failed to decode cached route plan: %w", err)
	}
	response.FromCache = cached.Hit

	return &response, nil
}

// compute builds the player's personal trade graph and searches it
func (h *GetRoutePlanHandler) compute(ctx context.Context, query *GetRoutePlanQuery, maxHops int, minConfidence float64) (*GetRoutePlanResponse, error) {
	visits, err := h.visitRepo.ListByPlayer(ctx, query.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exploration map: %w", err)
	}

	links, err := h.linkRepo.ListByPlayer(ctx, query.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load travel links: %w", err)
	}

	patterns, err := h.patternRepo.ListByPlayer(ctx, query.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	graph := routing.BuildGraph(visits, links, patterns)

	genes, err := h.bestGenes(ctx, query.PlayerID)
	if err != nil {
		return nil, err
	}

	plan, err := h.planner.PlanCascade(ctx, graph, query.StartPortID, maxHops, minConfidence, genes)
	if err != nil {
		if errors.Is(err, routing.ErrNoViableRoute) {
			response := noViableRoute()
			response.PortsConsidered = graph.NodeCount()
			return response, nil
		}
		return nil, fmt.Errorf("failed to plan route: %w", err)
	}

	hops := make([]RouteHopDTO, 0, plan.HopCount())
	for _, hop := range plan.Hops() {
		hops = append(hops, RouteHopDTO{
			FromPortID:     hop.FromPortID,
			ToPortID:       hop.ToPortID,
			CommodityID:    hop.CommodityID,
			ExpectedProfit: hop.ExpectedProfit,
			Confidence:     hop.Confidence,
		})
	}

	return &GetRoutePlanResponse{
		Viable:              true,
		Hops:                hops,
		TotalExpectedProfit: plan.TotalExpectedProfit(),
		AggregateRisk:       plan.AggregateRisk(),
		Summary:             plan.Summary(),
		PortsConsidered:     graph.NodeCount(),
	}, nil
}

// bestGenes returns the fittest heuristic's genes to bias the search, or
// nil when the player has no population yet
func (h *GetRoutePlanHandler) bestGenes(ctx context.Context, playerID shared.PlayerID) (*evolution.Genes, error) {
	population, err := h.heuristicRepo.FindByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load population: %w", err)
	}
	if len(population) == 0 {
		return nil, nil
	}

	genes := evolution.Rank(population)[0].Genes()
	return &genes, nil
}

func noViableRoute() *GetRoutePlanResponse {
	return &GetRoutePlanResponse{
		Viable: false,
		Reason: "no viable route",
	}
}
