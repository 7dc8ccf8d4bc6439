package queries_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sectorwars/aria-core/internal/adapters/crypto"
	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

// queryEnv wires query handlers against a fresh in-memory database with a
// controllable clock. Tests seed state through the domain entities directly,
// the same state the command handlers would have produced.
type queryEnv struct {
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

func newQueryEnv(t *testing.T) *queryEnv {
	t.Helper()

	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	auditRepo := persistence.NewGormAuditRepository(db, node)
	audit := services.NewAuditTrail(auditRepo, clock)
	memoryRepo := persistence.NewGormMemoryRepository(db)

	return &queryEnv{
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
		memoryWriter:    services.NewMemoryWriter(memoryRepo, audit, crypto.NewPlainCodec(), clock, 0.002),
	}
}

// findAuditEntry returns the most recent entry for one action, or nil
func (e *queryEnv) findAuditEntry(t *testing.T, playerID shared.PlayerID, action string) *security.AuditEntry {
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

func (e *queryEnv) seedVisit(t *testing.T, playerID shared.PlayerID, sectorID, portID, portClass string) *exploration.VisitRecord {
	t.Helper()
	visit, err := exploration.NewVisitRecord(playerID, sectorID, portID, portClass, e.clock.Now())
	require.NoError(t, err)
	require.NoError(t, e.visitRepo.Save(context.Background(), visit))
	return visit
}

func (e *queryEnv) seedLink(t *testing.T, playerID shared.PlayerID, fromPortID, toPortID string) {
	t.Helper()
	link, err := exploration.NewTravelLink(playerID, fromPortID, toPortID, e.clock.Now())
	require.NoError(t, err)
	require.NoError(t, e.linkRepo.Save(context.Background(), link))
}

func (e *queryEnv) seedPattern(t *testing.T, playerID shared.PlayerID, portID, commodityID string, predicted int, confidence float64) {
	t.Helper()
	pattern, err := intel.NewPricePattern(playerID, portID, commodityID, intel.PatternTrendingUp, confidence, 3, 5.0, predicted, confidence, e.clock.Now())
	require.NoError(t, err)
	require.NoError(t, e.patternRepo.Upsert(context.Background(), pattern))
}

// seedPopulation creates a deterministic first generation and returns it
// ranked by fitness
func (e *queryEnv) seedPopulation(t *testing.T, playerID shared.PlayerID) []*evolution.Heuristic {
	t.Helper()
	evolver := evolution.NewEvolver(8)
	population, err := evolver.SeedPopulation(playerID, rand.New(rand.NewSource(42)), e.clock.Now())
	require.NoError(t, err)
	require.NoError(t, e.heuristicRepo.ReplacePopulation(context.Background(), playerID, population))
	return evolution.Rank(population)
}
