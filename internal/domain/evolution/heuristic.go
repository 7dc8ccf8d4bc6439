package evolution

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// successRateAlpha is the exponential weight given to the newest outcome
// when updating a heuristic's success rate. Recent performance matters more
// than ancient history.
const successRateAlpha = 0.3

// profitNormalization is the average profit (credits) at which the profit
// component of fitness saturates.
const profitNormalization = 1000.0

// Heuristic is one member of a player's trading DNA population: a gene set
// plus the performance evidence accumulated against real trade outcomes.
// Fitness is always derived from that evidence, never set directly.
type Heuristic struct {
	id           string
	playerID     shared.PlayerID
	name         string
	generation   int
	parentID     *string
	genes        Genes
	successRate  float64
	avgProfit    float64
	profitM2     float64 // running sum of squared deviations (Welford)
	outcomeCount int
	fitness      float64
	createdAt    time.Time
}

// NewHeuristic creates a heuristic with validation. Fresh heuristics start
// with no performance evidence and zero fitness.
func NewHeuristic(
	playerID shared.PlayerID,
	name string,
	generation int,
	parentID *string,
	genes Genes,
	createdAt time.Time,
) (*Heuristic, error) {
	if playerID.IsZero() {
		return nil, &ErrInvalidHeuristic{Field: "player_id", Reason: "player_id cannot be zero"}
	}
	if name == "" {
		return nil, &ErrInvalidHeuristic{Field: "name", Reason: "name cannot be empty"}
	}
	if generation < 1 {
		return nil, &ErrInvalidHeuristic{Field: "generation", Reason: "generation starts at 1"}
	}
	if err := genes.Validate(); err != nil {
		return nil, err
	}
	if createdAt.IsZero() {
		return nil, &ErrInvalidHeuristic{Field: "created_at", Reason: "created_at cannot be zero"}
	}

	return &Heuristic{
		id:         uuid.New().String(),
		playerID:   playerID,
		name:       name,
		generation: generation,
		parentID:   parentID,
		genes:      genes.clone(),
		createdAt:  createdAt,
	}, nil
}

// ReconstructHeuristic rebuilds a heuristic from persistence, including its
// accumulated performance evidence. Used only by repositories.
func ReconstructHeuristic(
	id string,
	playerID shared.PlayerID,
	name string,
	generation int,
	parentID *string,
	genes Genes,
	successRate float64,
	avgProfit float64,
	profitM2 float64,
	outcomeCount int,
	createdAt time.Time,
) (*Heuristic, error) {
	h, err := NewHeuristic(playerID, name, generation, parentID, genes, createdAt)
	if err != nil {
		return nil, err
	}
	h.id = id
	h.successRate = successRate
	h.avgProfit = avgProfit
	h.profitM2 = profitM2
	h.outcomeCount = outcomeCount
	h.recomputeFitness()
	return h, nil
}

// Getters

func (h *Heuristic) ID() string {
	return h.id
}

func (h *Heuristic) PlayerID() shared.PlayerID {
	return h.playerID
}

func (h *Heuristic) Name() string {
	return h.name
}

func (h *Heuristic) Generation() int {
	return h.generation
}

func (h *Heuristic) ParentID() *string {
	return h.parentID
}

func (h *Heuristic) Genes() Genes {
	return h.genes.clone()
}

func (h *Heuristic) SuccessRate() float64 {
	return h.successRate
}

func (h *Heuristic) AvgProfit() float64 {
	return h.avgProfit
}

func (h *Heuristic) ProfitM2() float64 {
	return h.profitM2
}

func (h *Heuristic) OutcomeCount() int {
	return h.outcomeCount
}

func (h *Heuristic) Fitness() float64 {
	return h.fitness
}

func (h *Heuristic) CreatedAt() time.Time {
	return h.createdAt
}

// ProfitVariance returns the variance of realized profits. Used to break
// fitness ties in favor of consistent performers.
func (h *Heuristic) ProfitVariance() float64 {
	if h.outcomeCount < 2 {
		return 0
	}
	return h.profitM2 / float64(h.outcomeCount)
}

// RecordOutcome folds one realized trade result into the heuristic's
// evidence: exponentially weighted success rate, running profit mean and
// variance, and a recomputed fitness.
func (h *Heuristic) RecordOutcome(succeeded bool, profit float64) {
	outcome := 0.0
	if succeeded {
		outcome = 1.0
	}

	if h.outcomeCount == 0 {
		h.successRate = outcome
	} else {
		h.successRate = (1-successRateAlpha)*h.successRate + successRateAlpha*outcome
	}

	h.outcomeCount++
	delta := profit - h.avgProfit
	h.avgProfit += delta / float64(h.outcomeCount)
	h.profitM2 += delta * (profit - h.avgProfit)

	h.recomputeFitness()
}

// recomputeFitness derives fitness from success rate and normalized average
// profit. Fitness is never mutated independently of the evidence.
func (h *Heuristic) recomputeFitness() {
	profitScore := math.Min(math.Max(h.avgProfit, 0)/profitNormalization, 1.0)
	f := 0.5*h.successRate + 0.5*profitScore
	if f > 1 {
		f = 1
	}
	if f < 0 {
		f = 0
	}
	h.fitness = f
}
