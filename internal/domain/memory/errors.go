package memory

import "fmt"

// ErrInvalidRecord represents validation errors for memory records
type ErrInvalidRecord struct {
	Field  string
	Reason string
}

func (e *ErrInvalidRecord) Error() string {
	return fmt.Sprintf("invalid memory record: %s - %s", e.Field, e.Reason)
}

// ErrHashCollision is returned when two genuinely different payloads produce
// the same content hash for the same player. Silently merging them would
// corrupt the player's history, so this is a hard failure.
type ErrHashCollision struct {
	PlayerID    string
	ContentHash string
}

func (e *ErrHashCollision) Error() string {
	return fmt.Sprintf("content hash collision for player %s: hash %s matches a record with a different payload", e.PlayerID, e.ContentHash)
}

// ErrRecordNotFound is returned when a memory record cannot be found
type ErrRecordNotFound struct {
	RecordID string
	PlayerID string
}

func (e *ErrRecordNotFound) Error() string {
	return fmt.Sprintf("memory record not found: id=%s, player_id=%s", e.RecordID, e.PlayerID)
}
