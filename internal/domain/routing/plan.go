package routing

import (
	"fmt"
	"strings"
)

// RouteHop is one leg of a planned cascade
type RouteHop struct {
	FromPortID     string
	ToPortID       string
	CommodityID    string
	ExpectedProfit float64
	Confidence     float64
}

// RoutePlan is a bounded-length sequence of trade hops through the player's
// personal graph, chosen to maximize expected profit.
// This is an immutable entity - all fields are private with getters only.
type RoutePlan struct {
	hops                []RouteHop
	totalExpectedProfit float64
	aggregateRisk       float64
	summary             string
}

// NewRoutePlan assembles a plan from its hops, deriving totals and the
// human-readable summary.
func NewRoutePlan(hops []RouteHop) (*RoutePlan, error) {
	if len(hops) == 0 {
		return nil, ErrNoViableRoute
	}

	var profit, risk float64
	for _, hop := range hops {
		profit += hop.ExpectedProfit
		risk += 1 - hop.Confidence
	}

	return &RoutePlan{
		hops:                hops,
		totalExpectedProfit: profit,
		aggregateRisk:       risk,
		summary:             summarize(hops, profit),
	}, nil
}

// Getters

func (p *RoutePlan) Hops() []RouteHop {
	out := make([]RouteHop, len(p.hops))
	copy(out, p.hops)
	return out
}

func (p *RoutePlan) HopCount() int {
	return len(p.hops)
}

func (p *RoutePlan) TotalExpectedProfit() float64 {
	return p.totalExpectedProfit
}

// AggregateRisk is the sum of (1 - confidence) across all hops. Lower is
// safer; used to break ties between equally profitable plans.
func (p *RoutePlan) AggregateRisk() float64 {
	return p.aggregateRisk
}

func (p *RoutePlan) Summary() string {
	return p.summary
}

// summarize builds the one-line recommendation text for a plan
func summarize(hops []RouteHop, profit float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d-hop cascade from %s: ", len(hops), hops[0].FromPortID)
	for i, hop := range hops {
		if i > 0 {
			sb.WriteString(", then ")
		}
		fmt.Fprintf(&sb, "haul %s %s->%s", hop.CommodityID, hop.FromPortID, hop.ToPortID)
	}
	fmt.Fprintf(&sb, " for ~%.0f credits expected", profit)
	return sb.String()
}
