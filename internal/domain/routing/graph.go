package routing

import (
	"sort"

	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/intel"
)

// PortNode is one port in the player's personal trade graph
type PortNode struct {
	PortID     string
	SectorID   string
	PortClass  string
	VisitCount int
}

// TradeEdge is one candidate hop: buy the commodity at From, travel a known
// link, sell at To. ExpectedProfit is the predicted spread already discounted
// by the edge confidence.
type TradeEdge struct {
	FromPortID     string
	ToPortID       string
	CommodityID    string
	ExpectedProfit float64
	Confidence     float64
}

// TradeGraph is the player's private trade territory: nodes are ports the
// player has personally visited, edges exist only along links the player has
// personally discovered. It is rebuilt on demand and never persisted.
type TradeGraph struct {
	nodes     map[string]*PortNode
	adjacency map[string][]*TradeEdge
}

// NewTradeGraph creates an empty graph
func NewTradeGraph() *TradeGraph {
	return &TradeGraph{
		nodes:     make(map[string]*PortNode),
		adjacency: make(map[string][]*TradeEdge),
	}
}

// AddNode registers a visited port
func (g *TradeGraph) AddNode(node *PortNode) {
	if node == nil || node.PortID == "" {
		return
	}
	g.nodes[node.PortID] = node
}

// AddEdge registers a candidate hop. Both endpoints must already be nodes;
// an edge to undiscovered territory is refused, which is what keeps the
// graph private to the player.
func (g *TradeGraph) AddEdge(edge *TradeEdge) error {
	if edge == nil {
		return ErrUnknownPort
	}
	if !g.HasNode(edge.FromPortID) || !g.HasNode(edge.ToPortID) {
		return ErrUnknownPort
	}
	g.adjacency[edge.FromPortID] = append(g.adjacency[edge.FromPortID], edge)
	return nil
}

// HasNode reports whether the port is part of the player's visited set
func (g *TradeGraph) HasNode(portID string) bool {
	_, ok := g.nodes[portID]
	return ok
}

// Node returns the node for a port, or nil
func (g *TradeGraph) Node(portID string) *PortNode {
	return g.nodes[portID]
}

// EdgesFrom returns the outgoing candidate hops from a port
func (g *TradeGraph) EdgesFrom(portID string) []*TradeEdge {
	return g.adjacency[portID]
}

// NodeIDs returns all port ids in the graph, sorted for deterministic
// iteration
func (g *TradeGraph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount returns the number of visited ports in the graph
func (g *TradeGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of candidate hops in the graph
func (g *TradeGraph) EdgeCount() int {
	count := 0
	for _, edges := range g.adjacency {
		count += len(edges)
	}
	return count
}

// BuildGraph derives the personal trade graph from the player's own
// exploration map, known links, and current price patterns. A hop candidate
// exists where a known link connects two visited ports and both ends carry a
// pattern for the same commodity predicting a positive spread.
func BuildGraph(
	visits []*exploration.VisitRecord,
	links []*exploration.TravelLink,
	patterns []*intel.PricePattern,
) *TradeGraph {
	g := NewTradeGraph()

	for _, v := range visits {
		g.AddNode(&PortNode{
			PortID:     v.PortID(),
			SectorID:   v.SectorID(),
			PortClass:  v.PortClass(),
			VisitCount: v.VisitCount(),
		})
	}

	// Index patterns by port, then commodity
	byPort := make(map[string]map[string]*intel.PricePattern)
	for _, p := range patterns {
		if byPort[p.PortID()] == nil {
			byPort[p.PortID()] = make(map[string]*intel.PricePattern)
		}
		byPort[p.PortID()][p.CommodityID()] = p
	}

	for _, link := range links {
		fromPatterns := byPort[link.FromPortID()]
		toPatterns := byPort[link.ToPortID()]
		if fromPatterns == nil || toPatterns == nil {
			continue
		}

		for commodityID, fromPattern := range fromPatterns {
			toPattern, ok := toPatterns[commodityID]
			if !ok {
				continue
			}

			spread := float64(toPattern.PredictedValue() - fromPattern.PredictedValue())
			if spread <= 0 {
				continue
			}

			confidence := fromPattern.PredictionConfidence()
			if toPattern.PredictionConfidence() < confidence {
				confidence = toPattern.PredictionConfidence()
			}

			// Ignore the error: both endpoints came from the visit set above
			_ = g.AddEdge(&TradeEdge{
				FromPortID:     link.FromPortID(),
				ToPortID:       link.ToPortID(),
				CommodityID:    commodityID,
				ExpectedProfit: spread * confidence,
				Confidence:     confidence,
			})
		}
	}

	return g
}
