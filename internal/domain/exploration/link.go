package exploration

import (
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// TravelLink records that the player personally traveled (or was told of a
// connection) from one port to another. Links are directed and player
// scoped: they are the only edges route planning may traverse.
type TravelLink struct {
	id              int64
	playerID        shared.PlayerID
	fromPortID      string
	toPortID        string
	firstTraveledAt time.Time
	travelCount     int
}

// NewTravelLink creates a directed link with validation
func NewTravelLink(
	playerID shared.PlayerID,
	fromPortID string,
	toPortID string,
	traveledAt time.Time,
) (*TravelLink, error) {
	if playerID.IsZero() {
		return nil, &ErrInvalidVisit{Field: "player_id", Reason: "player_id cannot be zero"}
	}
	if fromPortID == "" || toPortID == "" {
		return nil, &ErrInvalidVisit{Field: "port_id", Reason: "link endpoints cannot be empty"}
	}
	if fromPortID == toPortID {
		return nil, &ErrInvalidVisit{Field: "port_id", Reason: "link endpoints must differ"}
	}
	if traveledAt.IsZero() {
		return nil, &ErrInvalidVisit{Field: "traveled_at", Reason: "traveled_at cannot be zero"}
	}

	return &TravelLink{
		playerID:        playerID,
		fromPortID:      fromPortID,
		toPortID:        toPortID,
		firstTraveledAt: traveledAt,
		travelCount:     1,
	}, nil
}

// ReconstructTravelLink rebuilds a link from persistence
func ReconstructTravelLink(
	id int64,
	playerID shared.PlayerID,
	fromPortID string,
	toPortID string,
	firstTraveledAt time.Time,
	travelCount int,
) (*TravelLink, error) {
	l, err := NewTravelLink(playerID, fromPortID, toPortID, firstTraveledAt)
	if err != nil {
		return nil, err
	}
	l.id = id
	l.travelCount = travelCount
	return l, nil
}

// Getters

func (l *TravelLink) ID() int64 {
	return l.id
}

func (l *TravelLink) PlayerID() shared.PlayerID {
	return l.playerID
}

func (l *TravelLink) FromPortID() string {
	return l.fromPortID
}

func (l *TravelLink) ToPortID() string {
	return l.toPortID
}

func (l *TravelLink) FirstTraveledAt() time.Time {
	return l.firstTraveledAt
}

func (l *TravelLink) TravelCount() int {
	return l.travelCount
}

// RecordTraversal bumps the traversal counter for a repeated trip
func (l *TravelLink) RecordTraversal() {
	l.travelCount++
}
