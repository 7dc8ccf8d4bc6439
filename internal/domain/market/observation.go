package market

import (
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// ClockSkewTolerance is how far an observation's timestamp may lag the
// latest recorded observation for the same (port, commodity) pair before it
// is rejected as out of order. Protects monotonic ordering without being
// overly strict about clock drift between game nodes.
const ClockSkewTolerance = 2 * time.Second

// PriceObservation is one price point the player personally witnessed at a
// port. Observations are append-only: the ledger accumulates, never rewrites.
// This is an immutable entity - all fields are private with getters only.
type PriceObservation struct {
	id          int64
	playerID    shared.PlayerID
	portID      string
	commodityID string
	buyPrice    int // What the port charges the player to buy
	sellPrice   int // What the port pays the player when selling
	observedAt  time.Time
}

// NewPriceObservation creates an observation with validation
func NewPriceObservation(
	playerID shared.PlayerID,
	portID string,
	commodityID string,
	buyPrice int,
	sellPrice int,
	observedAt time.Time,
) (*PriceObservation, error) {
	if playerID.IsZero() {
		return nil, ErrInvalidPlayerID
	}
	if portID == "" {
		return nil, ErrInvalidPortID
	}
	if commodityID == "" {
		return nil, ErrInvalidCommodityID
	}
	if buyPrice < 0 || sellPrice < 0 {
		return nil, ErrInvalidPrice
	}
	if observedAt.IsZero() {
		return nil, ErrInvalidTimestamp
	}

	return &PriceObservation{
		playerID:    playerID,
		portID:      portID,
		commodityID: commodityID,
		buyPrice:    buyPrice,
		sellPrice:   sellPrice,
		observedAt:  observedAt,
	}, nil
}

// ReconstructPriceObservation rebuilds an observation from persistence
func ReconstructPriceObservation(
	id int64,
	playerID shared.PlayerID,
	portID string,
	commodityID string,
	buyPrice int,
	sellPrice int,
	observedAt time.Time,
) (*PriceObservation, error) {
	obs, err := NewPriceObservation(playerID, portID, commodityID, buyPrice, sellPrice, observedAt)
	if err != nil {
		return nil, err
	}
	obs.id = id
	return obs, nil
}

// AssignID attaches the persistence-assigned ledger id. Called only by
// repositories during Append.
func (o *PriceObservation) AssignID(id int64) {
	o.id = id
}

// Getters (immutable entity - no setters)

func (o *PriceObservation) ID() int64 {
	return o.id
}

func (o *PriceObservation) PlayerID() shared.PlayerID {
	return o.playerID
}

func (o *PriceObservation) PortID() string {
	return o.portID
}

func (o *PriceObservation) CommodityID() string {
	return o.commodityID
}

func (o *PriceObservation) BuyPrice() int {
	return o.buyPrice
}

func (o *PriceObservation) SellPrice() int {
	return o.sellPrice
}

func (o *PriceObservation) ObservedAt() time.Time {
	return o.observedAt
}

// MidPrice returns the midpoint between buy and sell price
func (o *PriceObservation) MidPrice() float64 {
	return float64(o.buyPrice+o.sellPrice) / 2
}

// Spread returns the buy/sell spread in credits. A positive spread is the
// port's margin; route profit estimates work off the inverse.
func (o *PriceObservation) Spread() int {
	return o.buyPrice - o.sellPrice
}

// CheckOrdering validates an observation's timestamp against the latest one
// already recorded for the same (port, commodity) pair. Timestamps may lag
// by at most ClockSkewTolerance; anything older is rejected rather than
// silently reordered.
func CheckOrdering(latest time.Time, next time.Time) error {
	if latest.IsZero() {
		return nil
	}
	if next.Before(latest.Add(-ClockSkewTolerance)) {
		return &ErrOutOfOrderObservation{Latest: latest, Got: next}
	}
	return nil
}
