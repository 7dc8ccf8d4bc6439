package evolution

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// Evolver runs the genetic algorithm over a player's heuristic population:
// fitness-ranked selection, survivor retention, and mutation/crossover
// offspring.
//
// This is a domain service with no infrastructure dependencies. Given the
// same population and the same random source state, its output population is
// structurally identical (genes, names, generations, lineage), which keeps
// evolution reproducible under test.
type Evolver struct {
	populationSize   int
	survivorFraction float64
	mutationRate     float64 // probability an offspring is a mutation vs a crossover
}

// NewEvolver creates an evolver with the given population size. Non-positive
// size selects the default of 8. Survivor fraction and mutation rate use the
// standard 50% / 70% split.
func NewEvolver(populationSize int) *Evolver {
	if populationSize <= 0 {
		populationSize = 8
	}
	return &Evolver{
		populationSize:   populationSize,
		survivorFraction: 0.5,
		mutationRate:     0.7,
	}
}

// PopulationSize returns the fixed population size held across generations
func (e *Evolver) PopulationSize() int {
	return e.populationSize
}

// SeedPopulation creates the initial generation of heuristics with bounded
// random genes.
func (e *Evolver) SeedPopulation(playerID shared.PlayerID, rng *rand.Rand, now time.Time) ([]*Heuristic, error) {
	population := make([]*Heuristic, 0, e.populationSize)
	for i := 0; i < e.populationSize; i++ {
		h, err := NewHeuristic(playerID, heuristicName(1, i), 1, nil, RandomGenes(rng), now)
		if err != nil {
			return nil, fmt.Errorf("failed to seed heuristic %d: %w", i, err)
		}
		population = append(population, h)
	}
	return population, nil
}

// EvolvePopulation produces the next generation: the top half survives
// unchanged, the rest are replaced by offspring mutated from or crossed
// between survivors. Population size is held constant. A population with
// fewer than two members cannot meaningfully evolve and is returned
// unchanged.
func (e *Evolver) EvolvePopulation(population []*Heuristic, rng *rand.Rand, now time.Time) ([]*Heuristic, error) {
	if len(population) < 2 {
		return population, nil
	}

	ranked := Rank(population)

	survivorCount := int(float64(len(ranked)) * e.survivorFraction)
	if survivorCount < 1 {
		survivorCount = 1
	}
	survivors := ranked[:survivorCount]

	nextGeneration := maxGeneration(ranked) + 1

	offspring := make([]*Heuristic, 0, len(ranked)-survivorCount)
	for i := 0; i < len(ranked)-survivorCount; i++ {
		child, err := e.spawnOffspring(survivors, nextGeneration, i, rng, now)
		if err != nil {
			return nil, err
		}
		offspring = append(offspring, child)
	}

	next := make([]*Heuristic, 0, len(ranked))
	next = append(next, survivors...)
	next = append(next, offspring...)
	return next, nil
}

// spawnOffspring produces one child: usually a mutation of a single
// survivor, sometimes a crossover of two.
func (e *Evolver) spawnOffspring(survivors []*Heuristic, generation, index int, rng *rand.Rand, now time.Time) (*Heuristic, error) {
	parent := survivors[rng.Intn(len(survivors))]

	var genes Genes
	if len(survivors) < 2 || rng.Float64() < e.mutationRate {
		genes = parent.Genes().Mutate(rng)
	} else {
		other := survivors[rng.Intn(len(survivors))]
		for other.ID() == parent.ID() {
			other = survivors[rng.Intn(len(survivors))]
		}
		genes = parent.Genes().Crossover(other.Genes(), rng)
	}

	parentID := parent.ID()
	child, err := NewHeuristic(parent.PlayerID(), heuristicName(generation, index), generation, &parentID, genes, now)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn offspring: %w", err)
	}
	return child, nil
}

// Rank orders a population by fitness descending. Ties prefer the lower
// profit variance (consistency), then the older name for full determinism.
func Rank(population []*Heuristic) []*Heuristic {
	ranked := make([]*Heuristic, len(population))
	copy(ranked, population)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Fitness() != ranked[j].Fitness() {
			return ranked[i].Fitness() > ranked[j].Fitness()
		}
		if ranked[i].ProfitVariance() != ranked[j].ProfitVariance() {
			return ranked[i].ProfitVariance() < ranked[j].ProfitVariance()
		}
		return ranked[i].Name() < ranked[j].Name()
	})
	return ranked
}

func maxGeneration(population []*Heuristic) int {
	max := 0
	for _, h := range population {
		if h.Generation() > max {
			max = h.Generation()
		}
	}
	return max
}

// heuristicName builds the stable display name for a population slot. Names
// are deterministic per (generation, slot) so evolution runs reproduce
// structurally identical populations.
func heuristicName(generation, index int) string {
	return fmt.Sprintf("dna-g%d-%02d", generation, index)
}
