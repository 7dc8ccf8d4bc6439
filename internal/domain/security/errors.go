package security

import "fmt"

// ErrInvalidAuditEntry is returned when audit entry validation fails
type ErrInvalidAuditEntry struct {
	Field  string
	Reason string
}

func (e *ErrInvalidAuditEntry) Error() string {
	return fmt.Sprintf("invalid audit entry: %s - %s", e.Field, e.Reason)
}

// ErrAuditWriteFailed wraps a persistence failure while appending to the
// audit log. Callers treat it as fatal for the guarded operation.
type ErrAuditWriteFailed struct {
	Action string
	Cause  error
}

func (e *ErrAuditWriteFailed) Error() string {
	return fmt.Sprintf("audit write failed for action %s: %v", e.Action, e.Cause)
}

func (e *ErrAuditWriteFailed) Unwrap() error {
	return e.Cause
}
