package routing

import (
	"context"
	"math"

	"github.com/sectorwars/aria-core/internal/domain/evolution"
)

// Planner searches the personal trade graph for the most profitable bounded
// cascade.
//
// This is a domain service with no infrastructure dependencies. The search
// only reads the graph, so it is safe to run concurrently with ledger writes
// and to cancel mid-flight via context.
type Planner struct{}

// NewPlanner creates a route planner
func NewPlanner() *Planner {
	return &Planner{}
}

// PlanCascade finds the path of at most maxHops edges from start that
// maximizes cumulative expected profit, biased toward the supplied genes'
// preferences. Edges whose prediction confidence falls below minConfidence
// are excluded entirely, not merely penalized. Ties prefer fewer hops, then
// lower aggregate risk.
//
// Returns ErrNoViableRoute when no qualifying path exists - the normal
// outcome for sparsely explored territory, not a fault.
func (p *Planner) PlanCascade(
	ctx context.Context,
	graph *TradeGraph,
	startPortID string,
	maxHops int,
	minConfidence float64,
	genes *evolution.Genes,
) (*RoutePlan, error) {
	if graph == nil || !graph.HasNode(startPortID) {
		return nil, ErrNoViableRoute
	}
	if maxHops < 1 {
		return nil, ErrNoViableRoute
	}

	search := &cascadeSearch{
		graph:         graph,
		maxHops:       maxHops,
		minConfidence: minConfidence,
		genes:         genes,
		visited:       map[string]bool{startPortID: true},
	}

	if err := search.explore(ctx, startPortID, nil, 0); err != nil {
		return nil, err
	}
	if len(search.bestHops) == 0 {
		return nil, ErrNoViableRoute
	}

	return NewRoutePlan(search.bestHops)
}

// cascadeSearch is the state of one depth-first profit-maximizing search
type cascadeSearch struct {
	graph         *TradeGraph
	maxHops       int
	minConfidence float64
	genes         *evolution.Genes
	visited       map[string]bool

	bestHops  []RouteHop
	bestScore float64
	bestRisk  float64
}

const scoreEpsilon = 1e-9

// explore extends the current path from portID with every admissible edge
func (s *cascadeSearch) explore(ctx context.Context, portID string, path []RouteHop, score float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(path) > 0 {
		s.consider(path, score)
	}
	if len(path) >= s.maxHops {
		return nil
	}

	for _, edge := range s.graph.EdgesFrom(portID) {
		if edge.Confidence < s.minConfidence {
			continue
		}
		if s.visited[edge.ToPortID] {
			continue
		}

		hop := RouteHop{
			FromPortID:     edge.FromPortID,
			ToPortID:       edge.ToPortID,
			CommodityID:    edge.CommodityID,
			ExpectedProfit: edge.ExpectedProfit,
			Confidence:     edge.Confidence,
		}

		s.visited[edge.ToPortID] = true
		err := s.explore(ctx, edge.ToPortID, append(path, hop), score+s.biasedProfit(edge))
		delete(s.visited, edge.ToPortID)
		if err != nil {
			return err
		}
	}
	return nil
}

// consider keeps the candidate if it beats the best path found so far:
// higher biased score, then fewer hops, then lower aggregate risk.
func (s *cascadeSearch) consider(path []RouteHop, score float64) {
	risk := 0.0
	for _, hop := range path {
		risk += 1 - hop.Confidence
	}

	better := false
	switch {
	case score > s.bestScore+scoreEpsilon:
		better = true
	case math.Abs(score-s.bestScore) <= scoreEpsilon && len(s.bestHops) > 0:
		if len(path) < len(s.bestHops) {
			better = true
		} else if len(path) == len(s.bestHops) && risk < s.bestRisk-scoreEpsilon {
			better = true
		}
	}

	if better {
		s.bestHops = make([]RouteHop, len(path))
		copy(s.bestHops, path)
		s.bestScore = score
		s.bestRisk = risk
	}
}

// biasedProfit applies the gene affinity multiplier used for ranking only;
// reported plan profit stays the unbiased expectation.
func (s *cascadeSearch) biasedProfit(edge *TradeEdge) float64 {
	if s.genes == nil {
		return edge.ExpectedProfit
	}
	toClass := ""
	if node := s.graph.Node(edge.ToPortID); node != nil {
		toClass = node.PortClass
	}
	return edge.ExpectedProfit * s.genes.AffinityFor(edge.CommodityID, toClass)
}
