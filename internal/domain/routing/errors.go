package routing

import "errors"

// Domain errors for personal trade graph construction and route planning

var (
	// ErrNoViableRoute is returned when no path meets the caller's hop and
	// confidence requirements. A legitimate, common outcome for players
	// with sparse exploration - not an error condition.
	ErrNoViableRoute = errors.New("no viable route")

	// ErrUnknownPort is returned when an edge references a port outside the
	// player's visited set
	ErrUnknownPort = errors.New("port not in player's visited set")
)
