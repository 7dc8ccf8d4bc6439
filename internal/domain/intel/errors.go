package intel

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a ledger holds too few observations
// to extract a pattern or answer a prediction. It is an expected outcome for
// sparsely explored markets, never an exception, and never replaced by a
// fabricated low-confidence guess.
var ErrInsufficientData = errors.New("insufficient data")

// ErrInvalidPattern represents validation errors for price patterns
type ErrInvalidPattern struct {
	Field  string
	Reason string
}

func (e *ErrInvalidPattern) Error() string {
	return fmt.Sprintf("invalid price pattern: %s - %s", e.Field, e.Reason)
}
