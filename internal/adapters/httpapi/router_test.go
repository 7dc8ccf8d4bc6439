package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectorwars/aria-core/internal/adapters/crypto"
	"github.com/sectorwars/aria-core/internal/adapters/httpapi"
	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/auth"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/routing"
	"github.com/sectorwars/aria-core/internal/domain/shared"
	"github.com/sectorwars/aria-core/test/helpers"
)

// apiEnv is the full daemon wiring over an in-memory database, served
// through httptest instead of a TCP listener
type apiEnv struct {
	router *chi.Mux
	clock  *shared.MockClock
}

func newAPIEnv(t *testing.T) *apiEnv {
	return newAPIEnvWithBudget(t, 1000)
}

func newAPIEnvWithBudget(t *testing.T, queriesPerMinute int) *apiEnv {
	t.Helper()

	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	memoryRepo := persistence.NewGormMemoryRepository(db)
	observationRepo := persistence.NewGormObservationRepository(db)
	patternRepo := persistence.NewGormPatternRepository(db)
	heuristicRepo := persistence.NewGormHeuristicRepository(db)
	visitRepo := persistence.NewGormVisitRepository(db)
	linkRepo := persistence.NewGormLinkRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	cache := persistence.NewGormResultCache(db, clock)

	codec := crypto.NewPlainCodec()
	audit := services.NewAuditTrail(auditRepo, clock)
	memoryWriter := services.NewMemoryWriter(memoryRepo, audit, codec, clock, 0)
	locks := common.NewPlayerLocks()
	limiter := common.NewQueryRateLimiter(queriesPerMinute)

	med := mediator.NewMediator()
	med.RegisterMiddleware(auth.PlayerScopeMiddleware(auditRepo, clock))
	med.RegisterMiddleware(common.RateLimitMiddleware(limiter, auditRepo, clock))

	require.NoError(t, mediator.RegisterHandler[*commands.RecordVisitCommand](med,
		commands.NewRecordVisitHandler(visitRepo, linkRepo, memoryWriter, locks, clock)))
	require.NoError(t, mediator.RegisterHandler[*commands.RecordObservationCommand](med,
		commands.NewRecordObservationHandler(observationRepo, patternRepo, intel.NewRecognizer(3),
			memoryWriter, cache, locks, clock, 15*time.Minute, 3)))
	require.NoError(t, mediator.RegisterHandler[*commands.RecordOutcomeCommand](med,
		commands.NewRecordOutcomeHandler(heuristicRepo, memoryWriter, locks, clock)))
	require.NoError(t, mediator.RegisterHandler[*commands.SeedPopulationCommand](med,
		commands.NewSeedPopulationHandler(heuristicRepo, evolution.NewEvolver(8), audit, locks, clock)))
	require.NoError(t, mediator.RegisterHandler[*commands.EvolvePatternsCommand](med,
		commands.NewEvolvePatternsHandler(heuristicRepo, evolution.NewEvolver(8), audit, locks, clock)))
	require.NoError(t, mediator.RegisterHandler[*commands.ForgetMemoryCommand](med,
		commands.NewForgetMemoryHandler(memoryRepo, audit, locks)))
	require.NoError(t, mediator.RegisterHandler[*commands.PurgePlayerDataCommand](med,
		commands.NewPurgePlayerDataHandler(memoryRepo, observationRepo, patternRepo, heuristicRepo,
			visitRepo, linkRepo, cache, audit, locks)))

	require.NoError(t, mediator.RegisterHandler[*queries.GetPredictionQuery](med,
		queries.NewGetPredictionHandler(patternRepo, cache, 15*time.Minute)))
	require.NoError(t, mediator.RegisterHandler[*queries.GetRecommendedHeuristicsQuery](med,
		queries.NewGetRecommendedHeuristicsHandler(heuristicRepo)))
	require.NoError(t, mediator.RegisterHandler[*queries.GetRoutePlanQuery](med,
		queries.NewGetRoutePlanHandler(visitRepo, linkRepo, patternRepo, heuristicRepo,
			routing.NewPlanner(), cache, 15*time.Minute)))
	require.NoError(t, mediator.RegisterHandler[*queries.GetMemoriesQuery](med,
		queries.NewGetMemoriesHandler(memoryRepo, codec, audit, clock)))
	require.NoError(t, mediator.RegisterHandler[*queries.GetExplorationSummaryQuery](med,
		queries.NewGetExplorationSummaryHandler(visitRepo, linkRepo)))
	require.NoError(t, mediator.RegisterHandler[*queries.GetMarketHistoryQuery](med,
		queries.NewGetMarketHistoryHandler(observationRepo, clock)))

	logger := logging.NewStdLogger(log.New(io.Discard, "", 0))

	return &apiEnv{
		router: httpapi.NewRouter(med, db, logger),
		clock:  clock,
	}
}

// do performs one request against the in-process router and decodes the JSON
// response body
func (e *apiEnv) do(t *testing.T, method, path string, body interface{}, scope string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if scope != "" {
		req.Header.Set(httpapi.PlayerScopeHeader, scope)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	decoded := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func TestAPI_Health(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	// Act
	env.router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
}

func TestAPI_RecordVisitRoundTrip(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)
	visit := map[string]interface{}{
		"player_id":  "player-1",
		"sector_id":  "sol",
		"port_id":    "sol-a3",
		"port_class": "hub",
	}

	// Act
	status, body := env.do(t, http.MethodPost, "/v1/visits", visit, "")

	// Assert
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["first_visit"])
	assert.EqualValues(t, 1, body["visit_count"])

	// A revisit is 200, not 201
	status, body = env.do(t, http.MethodPost, "/v1/visits", visit, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["first_visit"])
	assert.EqualValues(t, 2, body["visit_count"])
}

func TestAPI_RecordVisitValidation(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)

	// Act: no port_id
	status, body := env.do(t, http.MethodPost, "/v1/visits", map[string]interface{}{
		"player_id": "player-1",
		"sector_id": "sol",
	}, "")

	// Assert
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "port_id is required", body["error"])

	// Unknown fields are rejected rather than silently dropped
	status, body = env.do(t, http.MethodPost, "/v1/visits", map[string]interface{}{
		"player_id": "player-1",
		"sector_id": "sol",
		"port_id":   "sol-a3",
		"warp":      9,
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "invalid request body")
}

func TestAPI_ObservationToPredictionFlow(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)

	for _, price := range []int{10, 11, 12} {
		status, _ := env.do(t, http.MethodPost, "/v1/observations", map[string]interface{}{
			"player_id":    "player-1",
			"port_id":      "sol-a3",
			"commodity_id": "ore",
			"buy_price":    price,
			"sell_price":   price,
		}, "")
		require.Equal(t, http.StatusCreated, status)
		env.clock.Advance(time.Hour)
	}

	// Act
	status, body := env.do(t, http.MethodGet, "/v1/players/player-1/prediction?port=sol-a3&commodity=ore", nil, "")

	// Assert
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["available"])
	assert.EqualValues(t, 13, body["predicted_value"])
	assert.Equal(t, "trending-up", body["pattern_kind"])
}

func TestAPI_PredictionWithoutData(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)

	// Act
	status, body := env.do(t, http.MethodGet, "/v1/players/player-1/prediction?port=sol-a3&commodity=ore", nil, "")

	// Assert
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["available"])
	assert.Equal(t, "insufficient data", body["reason"])
}

func TestAPI_NegativePriceRejected(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)

	// Act
	status, body := env.do(t, http.MethodPost, "/v1/observations", map[string]interface{}{
		"player_id":    "player-1",
		"port_id":      "sol-a3",
		"commodity_id": "ore",
		"buy_price":    -5,
		"sell_price":   10,
	}, "")

	// Assert
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "price")
}

func TestAPI_OutOfOrderObservationConflict(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)
	now := env.clock.Now()

	status, _ := env.do(t, http.MethodPost, "/v1/observations", map[string]interface{}{
		"player_id":    "player-1",
		"port_id":      "sol-a3",
		"commodity_id": "ore",
		"buy_price":    10,
		"sell_price":   10,
		"observed_at":  now.Format(time.RFC3339),
	}, "")
	require.Equal(t, http.StatusCreated, status)

	// Act: one hour behind the ledger head
	status, body := env.do(t, http.MethodPost, "/v1/observations", map[string]interface{}{
		"player_id":    "player-1",
		"port_id":      "sol-a3",
		"commodity_id": "ore",
		"buy_price":    11,
		"sell_price":   11,
		"observed_at":  now.Add(-time.Hour).Format(time.RFC3339),
	}, "")

	// Assert
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "out-of-order")
}

func TestAPI_CrossPlayerAccessForbidden(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)

	// Act: caller authenticated as player-2, asking for player-1's memories
	status, body := env.do(t, http.MethodGet, "/v1/players/player-1/memories", nil, "player-2")

	// Assert
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body["error"], "player scope violation")
}

func TestAPI_MatchingScopeAllowed(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)

	// Act
	status, body := env.do(t, http.MethodGet, "/v1/players/player-1/exploration", nil, "player-1")

	// Assert
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["ports_visited"])
}

func TestAPI_QueryRateLimitReturns429(t *testing.T) {
	// Arrange
	env := newAPIEnvWithBudget(t, 2)

	for i := 0; i < 2; i++ {
		status, _ := env.do(t, http.MethodGet, "/v1/players/player-1/exploration", nil, "")
		require.Equal(t, http.StatusOK, status)
	}

	// Act
	status, body := env.do(t, http.MethodGet, "/v1/players/player-1/exploration", nil, "")

	// Assert
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, body["error"], "rate limit")
}

func TestAPI_UnknownHeuristicIs404(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)

	// Act
	status, body := env.do(t, http.MethodPost, "/v1/outcomes", map[string]interface{}{
		"player_id":    "player-1",
		"heuristic_id": "ghost",
		"success":      true,
		"profit":       100,
	}, "")

	// Assert
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "heuristic")
}

func TestAPI_SeedEvolveAndRankFlow(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)

	// Act: first seed creates, second is a no-op
	status, body := env.do(t, http.MethodPost, "/v1/players/player-1/dna/seed", map[string]interface{}{"seed": 42}, "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["created"])
	assert.EqualValues(t, 8, body["population_size"])
	assert.EqualValues(t, 1, body["generation"])

	status, body = env.do(t, http.MethodPost, "/v1/players/player-1/dna/seed", map[string]interface{}{"seed": 42}, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["created"])

	status, body = env.do(t, http.MethodPost, "/v1/players/player-1/evolve", map[string]interface{}{"seed": 7}, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["evolved"])
	assert.EqualValues(t, 2, body["generation"])
	assert.EqualValues(t, 8, body["population_size"])
	assert.EqualValues(t, 4, body["survivors"])

	status, body = env.do(t, http.MethodGet, "/v1/players/player-1/heuristics?limit=3", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["generation"])
	assert.Len(t, body["heuristics"], 3)
}

func TestAPI_ForgetMemoryIsIdempotent(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)

	// Act: forgetting a record that was never stored still succeeds
	status, body := env.do(t, http.MethodDelete, "/v1/players/player-1/memories/no-such-record", nil, "")

	// Assert
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["deleted"])
}

func TestAPI_PurgeFlow(t *testing.T) {
	// Arrange
	env := newAPIEnv(t)
	status, _ := env.do(t, http.MethodPost, "/v1/visits", map[string]interface{}{
		"player_id":  "player-1",
		"sector_id":  "sol",
		"port_id":    "sol-a3",
		"port_class": "hub",
	}, "")
	require.Equal(t, http.StatusCreated, status)

	// Act
	status, body := env.do(t, http.MethodDelete, "/v1/players/player-1", nil, "")

	// Assert
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["purged"])
	assert.Len(t, body["stores"], 7)

	status, body = env.do(t, http.MethodGet, "/v1/players/player-1/exploration", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["ports_visited"])
}
