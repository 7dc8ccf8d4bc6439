package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sectorwars/aria-core/internal/adapters/crypto"
	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

// commandEnv wires command handlers against a fresh in-memory database the
// same way the daemon does at startup, with a controllable clock
type commandEnv struct {
	db              *gorm.DB
	clock           *shared.MockClock
	locks           *common.PlayerLocks
	memoryRepo      *persistence.GormMemoryRepository
	observationRepo *persistence.GormObservationRepository
	patternRepo     *persistence.GormPatternRepository
	heuristicRepo   *persistence.GormHeuristicRepository
	visitRepo       *persistence.GormVisitRepository
	linkRepo        *persistence.GormLinkRepository
	auditRepo       *persistence.GormAuditRepository
	cache           *persistence.GormResultCache
	audit           *services.AuditTrail
	memoryWriter    *services.MemoryWriter
}

func newCommandEnv(t *testing.T) *commandEnv {
	t.Helper()

	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	auditRepo := persistence.NewGormAuditRepository(db, node)
	audit := services.NewAuditTrail(auditRepo, clock)
	memoryRepo := persistence.NewGormMemoryRepository(db)

	return &commandEnv{
		db:              db,
		clock:           clock,
		locks:           common.NewPlayerLocks(),
		memoryRepo:      memoryRepo,
		observationRepo: persistence.NewGormObservationRepository(db),
		patternRepo:     persistence.NewGormPatternRepository(db),
		heuristicRepo:   persistence.NewGormHeuristicRepository(db),
		visitRepo:       persistence.NewGormVisitRepository(db),
		linkRepo:        persistence.NewGormLinkRepository(db),
		auditRepo:       auditRepo,
		cache:           persistence.NewGormResultCache(db, clock),
		audit:           audit,
		memoryWriter:    services.NewMemoryWriter(memoryRepo, audit, crypto.NewPlainCodec(), clock, 0),
	}
}

// auditActions returns the player's audit log actions, oldest first
func (e *commandEnv) auditActions(t *testing.T, playerID shared.PlayerID) []string {
	t.Helper()
	entries, err := e.auditRepo.ListByPlayer(context.Background(), playerID, 100)
	require.NoError(t, err)

	actions := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		actions = append(actions, entries[i].Action())
	}
	return actions
}

// findAuditEntry returns the most recent entry for one action, or nil
func (e *commandEnv) findAuditEntry(t *testing.T, playerID shared.PlayerID, action string) *security.AuditEntry {
	t.Helper()
	entries, err := e.auditRepo.ListByPlayer(context.Background(), playerID, 100)
	require.NoError(t, err)

	for _, entry := range entries {
		if entry.Action() == action {
			return entry
		}
	}
	return nil
}
