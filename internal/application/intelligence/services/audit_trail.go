package services

import (
	"context"
	"fmt"

	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// AuditTrail gives handlers a uniform way to write the security log.
// Record is the gate for state-mutating calls: when the append fails the
// caller must not mutate. RecordBestEffort documents a failure after the
// gate has already been passed.
type AuditTrail struct {
	auditRepo security.AuditRepository
	clock     shared.Clock
}

// NewAuditTrail creates an AuditTrail
func NewAuditTrail(auditRepo security.AuditRepository, clock shared.Clock) *AuditTrail {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &AuditTrail{
		auditRepo: auditRepo,
		clock:     clock,
	}
}

// Record appends one entry and returns an error when the log could not be
// written
func (a *AuditTrail) Record(
	ctx context.Context,
	playerID shared.PlayerID,
	action string,
	resource string,
	outcome security.Outcome,
	detail string,
	anomalyScore float64,
) error {
	entry, err := security.NewAuditEntry(playerID, action, resource, outcome, detail, anomalyScore, a.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	if err := a.auditRepo.Append(ctx, entry); err != nil {
		return &security.ErrAuditWriteFailed{Action: action, Cause: err}
	}
	return nil
}

// RecordBestEffort appends one entry and only logs when the append fails
func (a *AuditTrail) RecordBestEffort(
	ctx context.Context,
	playerID shared.PlayerID,
	action string,
	resource string,
	outcome security.Outcome,
	detail string,
	anomalyScore float64,
) {
	if err := a.Record(ctx, playerID, action, resource, outcome, detail, anomalyScore); err != nil {
		logging.LoggerFromContext(ctx).Log("error", "failed to append audit entry", map[string]interface{}{
			"player_id": playerID.String(),
			"action":    action,
			"error":     err.Error(),
		})
	}
}
