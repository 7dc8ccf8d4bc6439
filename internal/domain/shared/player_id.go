package shared

import "fmt"

// PlayerID is a value object representing a player's unique identifier.
// Every record in the intelligence core is scoped by one of these; there is
// no code path that reads or writes across players.
type PlayerID struct {
	value string
}

// NewPlayerID creates a new PlayerID value object
func NewPlayerID(id string) (PlayerID, error) {
	if id == "" {
		return PlayerID{}, fmt.Errorf("player_id must not be empty")
	}
	return PlayerID{value: id}, nil
}

// MustNewPlayerID creates a new PlayerID value object, panicking if invalid.
// Use this only when you're certain the ID is valid (e.g., from database)
func MustNewPlayerID(id string) PlayerID {
	playerID, err := NewPlayerID(id)
	if err != nil {
		panic(err)
	}
	return playerID
}

// Value returns the string value of the PlayerID
func (p PlayerID) Value() string {
	return p.value
}

// String returns a string representation of the PlayerID
func (p PlayerID) String() string {
	return p.value
}

// Equals checks if two PlayerIDs are equal
func (p PlayerID) Equals(other PlayerID) bool {
	return p.value == other.value
}

// IsZero checks if the PlayerID is the zero value (uninitialized)
func (p PlayerID) IsZero() bool {
	return p.value == ""
}
