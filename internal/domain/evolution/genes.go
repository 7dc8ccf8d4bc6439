package evolution

import (
	"fmt"
	"math/rand"
)

// Gene bounds. Mutation and random seeding always clamp into these ranges.
const (
	MinRiskTolerance = 0.05
	MaxRiskTolerance = 0.95

	MinProfitMarginFloor = 0.01
	MinProfitMarginCeil  = 0.50

	MinHops = 1
	MaxHops = 6
)

// DefaultCommodityPool is the commodity universe used when seeding random
// genes. Players trade a fixed catalog, so the pool is small and stable.
var DefaultCommodityPool = []string{
	"ore", "organics", "equipment", "fuel", "luxury_items", "technology", "colonists",
}

// DefaultPortClassPool is the port classification universe for gene seeding
var DefaultPortClassPool = []string{
	"gateway", "hub", "industrial", "agricultural", "mining", "frontier",
}

// Genes is the structured condition-action rule a heuristic trades by: how
// much risk it accepts, the margin it insists on, how far it will chain
// hops, when it prefers to trade, and which commodities and port classes it
// favors.
type Genes struct {
	RiskTolerance        float64  `json:"risk_tolerance"`
	MinProfitMargin      float64  `json:"min_profit_margin"`
	MaxHops              int      `json:"max_hops"`
	TimePreference       int      `json:"time_preference"` // preferred hour of day, 0-23
	PreferredCommodities []string `json:"preferred_commodities"`
	PreferredPortClasses []string `json:"preferred_port_classes"`
}

// Validate checks all genes are inside their bounds
func (g Genes) Validate() error {
	if g.RiskTolerance < MinRiskTolerance || g.RiskTolerance > MaxRiskTolerance {
		return &ErrInvalidHeuristic{Field: "risk_tolerance", Reason: fmt.Sprintf("must be in [%.2f,%.2f]", MinRiskTolerance, MaxRiskTolerance)}
	}
	if g.MinProfitMargin < MinProfitMarginFloor || g.MinProfitMargin > MinProfitMarginCeil {
		return &ErrInvalidHeuristic{Field: "min_profit_margin", Reason: fmt.Sprintf("must be in [%.2f,%.2f]", MinProfitMarginFloor, MinProfitMarginCeil)}
	}
	if g.MaxHops < MinHops || g.MaxHops > MaxHops {
		return &ErrInvalidHeuristic{Field: "max_hops", Reason: fmt.Sprintf("must be in [%d,%d]", MinHops, MaxHops)}
	}
	if g.TimePreference < 0 || g.TimePreference > 23 {
		return &ErrInvalidHeuristic{Field: "time_preference", Reason: "must be an hour of day (0-23)"}
	}
	return nil
}

// RandomGenes produces bounded random genes from the supplied source. Same
// source state, same genes.
func RandomGenes(rng *rand.Rand) Genes {
	return Genes{
		RiskTolerance:        MinRiskTolerance + rng.Float64()*(MaxRiskTolerance-MinRiskTolerance),
		MinProfitMargin:      MinProfitMarginFloor + rng.Float64()*(MinProfitMarginCeil-MinProfitMarginFloor),
		MaxHops:              MinHops + rng.Intn(MaxHops-MinHops+1),
		TimePreference:       rng.Intn(24),
		PreferredCommodities: pickSome(rng, DefaultCommodityPool, 1, 3),
		PreferredPortClasses: pickSome(rng, DefaultPortClassPool, 1, 2),
	}
}

// Mutate returns a copy with exactly one gene perturbed within bounds
func (g Genes) Mutate(rng *rand.Rand) Genes {
	out := g.clone()
	switch rng.Intn(5) {
	case 0:
		// Risk drifts by up to ±20% of its current value
		out.RiskTolerance = clampFloat(g.RiskTolerance*(1+(rng.Float64()*0.4-0.2)), MinRiskTolerance, MaxRiskTolerance)
	case 1:
		// Margins drift more cautiously, by up to ±5%
		out.MinProfitMargin = clampFloat(g.MinProfitMargin*(1+(rng.Float64()*0.1-0.05)), MinProfitMarginFloor, MinProfitMarginCeil)
	case 2:
		out.MaxHops = clampInt(g.MaxHops+rng.Intn(3)-1, MinHops, MaxHops)
	case 3:
		// Shift the preferred trading window by up to ±2 hours
		out.TimePreference = ((g.TimePreference+rng.Intn(5)-2)%24 + 24) % 24
	case 4:
		out.PreferredCommodities = pickSome(rng, DefaultCommodityPool, 1, 3)
	}
	return out
}

// Crossover combines two parents field-wise: each gene comes from one parent
// chosen by coin flip.
func (g Genes) Crossover(other Genes, rng *rand.Rand) Genes {
	out := Genes{}
	if rng.Intn(2) == 0 {
		out.RiskTolerance = g.RiskTolerance
	} else {
		out.RiskTolerance = other.RiskTolerance
	}
	if rng.Intn(2) == 0 {
		out.MinProfitMargin = g.MinProfitMargin
	} else {
		out.MinProfitMargin = other.MinProfitMargin
	}
	if rng.Intn(2) == 0 {
		out.MaxHops = g.MaxHops
	} else {
		out.MaxHops = other.MaxHops
	}
	if rng.Intn(2) == 0 {
		out.TimePreference = g.TimePreference
	} else {
		out.TimePreference = other.TimePreference
	}
	if rng.Intn(2) == 0 {
		out.PreferredCommodities = cloneStrings(g.PreferredCommodities)
	} else {
		out.PreferredCommodities = cloneStrings(other.PreferredCommodities)
	}
	if rng.Intn(2) == 0 {
		out.PreferredPortClasses = cloneStrings(g.PreferredPortClasses)
	} else {
		out.PreferredPortClasses = cloneStrings(other.PreferredPortClasses)
	}
	return out
}

// AffinityFor scores how strongly these genes favor trading the given
// commodity toward the given port class. Returns a multiplier in [1.0, 1.2]
// used to bias route edge selection.
func (g Genes) AffinityFor(commodityID, portClass string) float64 {
	bias := 1.0
	for _, c := range g.PreferredCommodities {
		if c == commodityID {
			bias += 0.1
			break
		}
	}
	for _, pc := range g.PreferredPortClasses {
		if pc == portClass {
			bias += 0.1
			break
		}
	}
	return bias
}

func (g Genes) clone() Genes {
	out := g
	out.PreferredCommodities = cloneStrings(g.PreferredCommodities)
	out.PreferredPortClasses = cloneStrings(g.PreferredPortClasses)
	return out
}

func pickSome(rng *rand.Rand, pool []string, min, max int) []string {
	n := min
	if max > min {
		n = min + rng.Intn(max-min+1)
	}
	if n > len(pool) {
		n = len(pool)
	}

	picked := make([]string, 0, n)
	indices := rng.Perm(len(pool))
	for _, idx := range indices[:n] {
		picked = append(picked, pool[idx])
	}
	return picked
}

func cloneStrings(xs []string) []string {
	if xs == nil {
		return nil
	}
	out := make([]string, len(xs))
	copy(out, xs)
	return out
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
