package exploration

import (
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// VisitRecord tracks one port the player has personally visited: when it was
// first discovered, when it was last seen, and how often. The set of visit
// records is the complete node universe for the player's trade graph -
// nothing outside it is ever visible to route planning.
type VisitRecord struct {
	id             int64
	playerID       shared.PlayerID
	sectorID       string
	portID         string
	portClass      string
	firstVisitedAt time.Time
	lastVisitedAt  time.Time
	visitCount     int
}

// NewVisitRecord creates a first-visit record with validation
func NewVisitRecord(
	playerID shared.PlayerID,
	sectorID string,
	portID string,
	portClass string,
	visitedAt time.Time,
) (*VisitRecord, error) {
	if playerID.IsZero() {
		return nil, &ErrInvalidVisit{Field: "player_id", Reason: "player_id cannot be zero"}
	}
	if sectorID == "" {
		return nil, &ErrInvalidVisit{Field: "sector_id", Reason: "sector_id cannot be empty"}
	}
	if portID == "" {
		return nil, &ErrInvalidVisit{Field: "port_id", Reason: "port_id cannot be empty"}
	}
	if visitedAt.IsZero() {
		return nil, &ErrInvalidVisit{Field: "visited_at", Reason: "visited_at cannot be zero"}
	}

	return &VisitRecord{
		playerID:       playerID,
		sectorID:       sectorID,
		portID:         portID,
		portClass:      portClass,
		firstVisitedAt: visitedAt,
		lastVisitedAt:  visitedAt,
		visitCount:     1,
	}, nil
}

// ReconstructVisitRecord rebuilds a visit record from persistence
func ReconstructVisitRecord(
	id int64,
	playerID shared.PlayerID,
	sectorID string,
	portID string,
	portClass string,
	firstVisitedAt time.Time,
	lastVisitedAt time.Time,
	visitCount int,
) (*VisitRecord, error) {
	v, err := NewVisitRecord(playerID, sectorID, portID, portClass, firstVisitedAt)
	if err != nil {
		return nil, err
	}
	v.id = id
	v.lastVisitedAt = lastVisitedAt
	v.visitCount = visitCount
	return v, nil
}

// Getters

func (v *VisitRecord) ID() int64 {
	return v.id
}

func (v *VisitRecord) PlayerID() shared.PlayerID {
	return v.playerID
}

func (v *VisitRecord) SectorID() string {
	return v.sectorID
}

func (v *VisitRecord) PortID() string {
	return v.portID
}

func (v *VisitRecord) PortClass() string {
	return v.portClass
}

func (v *VisitRecord) FirstVisitedAt() time.Time {
	return v.firstVisitedAt
}

func (v *VisitRecord) LastVisitedAt() time.Time {
	return v.lastVisitedAt
}

func (v *VisitRecord) VisitCount() int {
	return v.visitCount
}

// RecordRevisit bumps the visit counters for a return trip. First-visit
// metadata is immutable.
func (v *VisitRecord) RecordRevisit(at time.Time) {
	v.visitCount++
	if at.After(v.lastVisitedAt) {
		v.lastVisitedAt = at
	}
}
