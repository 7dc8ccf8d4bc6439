package security_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

var loggedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewAuditEntry(t *testing.T) {
	playerID := shared.MustNewPlayerID("player-1")

	entry, err := security.NewAuditEntry(
		playerID, "forget_memory", "memory/7f3a2b1c",
		security.OutcomeOK, "", security.AnomalyNone, loggedAt)
	require.NoError(t, err)

	assert.Equal(t, int64(0), entry.ID(), "sequence id comes from persistence")
	assert.Equal(t, "forget_memory", entry.Action())
	assert.Equal(t, security.OutcomeOK, entry.Outcome())

	entry.AssignID(42)
	assert.Equal(t, int64(42), entry.ID())
}

func TestNewAuditEntry_Validation(t *testing.T) {
	playerID := shared.MustNewPlayerID("player-1")

	tests := []struct {
		name  string
		build func() (*security.AuditEntry, error)
		field string
	}{
		{"zero player", func() (*security.AuditEntry, error) {
			return security.NewAuditEntry(shared.PlayerID{}, "purge", "", security.OutcomeOK, "", 0, loggedAt)
		}, "player_id"},
		{"empty action", func() (*security.AuditEntry, error) {
			return security.NewAuditEntry(playerID, "", "", security.OutcomeOK, "", 0, loggedAt)
		}, "action"},
		{"unknown outcome", func() (*security.AuditEntry, error) {
			return security.NewAuditEntry(playerID, "purge", "", security.Outcome("shrug"), "", 0, loggedAt)
		}, "outcome"},
		{"anomaly above one", func() (*security.AuditEntry, error) {
			return security.NewAuditEntry(playerID, "purge", "", security.OutcomeOK, "", 1.2, loggedAt)
		}, "anomaly_score"},
		{"zero time", func() (*security.AuditEntry, error) {
			return security.NewAuditEntry(playerID, "purge", "", security.OutcomeOK, "", 0, time.Time{})
		}, "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)

			var invalid *security.ErrInvalidAuditEntry
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestOutcome_IsValid(t *testing.T) {
	assert.True(t, security.OutcomeOK.IsValid())
	assert.True(t, security.OutcomeDenied.IsValid())
	assert.True(t, security.OutcomeError.IsValid())
	assert.False(t, security.Outcome("partial").IsValid())
}
