package exploration

import "fmt"

// ErrInvalidVisit represents validation errors for visit records and travel
// links
type ErrInvalidVisit struct {
	Field  string
	Reason string
}

func (e *ErrInvalidVisit) Error() string {
	return fmt.Sprintf("invalid exploration record: %s - %s", e.Field, e.Reason)
}
