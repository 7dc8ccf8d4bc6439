package evolution

import "fmt"

// ErrInvalidHeuristic represents validation errors for trading heuristics
type ErrInvalidHeuristic struct {
	Field  string
	Reason string
}

func (e *ErrInvalidHeuristic) Error() string {
	return fmt.Sprintf("invalid heuristic: %s - %s", e.Field, e.Reason)
}

// ErrHeuristicNotFound is returned when a heuristic cannot be found in the
// player's population
type ErrHeuristicNotFound struct {
	HeuristicID string
	PlayerID    string
}

func (e *ErrHeuristicNotFound) Error() string {
	return fmt.Sprintf("heuristic not found: id=%s, player_id=%s", e.HeuristicID, e.PlayerID)
}
