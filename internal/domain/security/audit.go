package security

import (
	"time"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// Outcome classifies how an audited call ended
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeDenied Outcome = "denied"
	OutcomeError  Outcome = "error"
)

// IsValid checks whether the outcome is one of the known values
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeOK, OutcomeDenied, OutcomeError:
		return true
	}
	return false
}

// Baseline anomaly scores per situation. Individual callers may raise them
// when they see something stranger than the baseline.
const (
	AnomalyNone        = 0.0
	AnomalyPurge       = 0.4
	AnomalyRateLimited = 0.7
	AnomalyDenied      = 0.8
)

// AuditEntry is one row of the security log: who did what to which resource
// and how it ended. State-mutating intelligence operations must write their
// entry or abort; the log is not best-effort.
// The id is assigned by the persistence layer from a monotonic sequence.
type AuditEntry struct {
	id           int64
	playerID     shared.PlayerID
	action       string
	resource     string
	outcome      Outcome
	detail       string
	anomalyScore float64
	createdAt    time.Time
}

// NewAuditEntry creates an audit entry with validation
func NewAuditEntry(
	playerID shared.PlayerID,
	action string,
	resource string,
	outcome Outcome,
	detail string,
	anomalyScore float64,
	createdAt time.Time,
) (*AuditEntry, error) {
	if playerID.IsZero() {
		return nil, &ErrInvalidAuditEntry{Field: "player_id", Reason: "player_id cannot be zero"}
	}
	if action == "" {
		return nil, &ErrInvalidAuditEntry{Field: "action", Reason: "action cannot be empty"}
	}
	if !outcome.IsValid() {
		return nil, &ErrInvalidAuditEntry{Field: "outcome", Reason: "unknown outcome: " + string(outcome)}
	}
	if anomalyScore < 0 || anomalyScore > 1 {
		return nil, &ErrInvalidAuditEntry{Field: "anomaly_score", Reason: "anomaly_score must be in [0,1]"}
	}
	if createdAt.IsZero() {
		return nil, &ErrInvalidAuditEntry{Field: "created_at", Reason: "created_at cannot be zero"}
	}

	return &AuditEntry{
		playerID:     playerID,
		action:       action,
		resource:     resource,
		outcome:      outcome,
		detail:       detail,
		anomalyScore: anomalyScore,
		createdAt:    createdAt,
	}, nil
}

// ReconstructAuditEntry rebuilds an entry from persistence with its assigned
// sequence id
func ReconstructAuditEntry(
	id int64,
	playerID shared.PlayerID,
	action string,
	resource string,
	outcome Outcome,
	detail string,
	anomalyScore float64,
	createdAt time.Time,
) (*AuditEntry, error) {
	e, err := NewAuditEntry(playerID, action, resource, outcome, detail, anomalyScore, createdAt)
	if err != nil {
		return nil, err
	}
	e.id = id
	return e, nil
}

// AssignID attaches the persistence-assigned sequence id. Called only by
// repositories during Append.
func (e *AuditEntry) AssignID(id int64) {
	e.id = id
}

// Getters

func (e *AuditEntry) ID() int64 {
	return e.id
}

func (e *AuditEntry) PlayerID() shared.PlayerID {
	return e.playerID
}

func (e *AuditEntry) Action() string {
	return e.action
}

func (e *AuditEntry) Resource() string {
	return e.resource
}

func (e *AuditEntry) Outcome() Outcome {
	return e.outcome
}

func (e *AuditEntry) Detail() string {
	return e.detail
}

func (e *AuditEntry) AnomalyScore() float64 {
	return e.anomalyScore
}

func (e *AuditEntry) CreatedAt() time.Time {
	return e.createdAt
}
