package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/ports"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/market"
	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

const (
	// Mid-price movement beyond this fraction of the previous mid is
	// significant enough to become a memory on its own.
	significantChangeFraction = 0.20

	// Importance assigned to significant price change memories
	priceChangeImportance = 0.7

	// Observations landing inside one cache TTL window before cached
	// results for the same ledger are dropped.
	defaultStaleThreshold = 10

	defaultCacheTTL = 15 * time.Minute

	// Ledger window handed to the recognizer per refresh
	analysisWindow = 50
)

// RecordObservationCommand appends one price observation to the player's
// personal ledger and refreshes the derived pattern.
type RecordObservationCommand struct {
	PlayerID    shared.PlayerID
	PortID      string
	CommodityID string
	BuyPrice    int
	SellPrice   int
	ObservedAt  *time.Time // Optional: defaults to current time
}

// RecordObservationResponse reports what the observation changed
type RecordObservationResponse struct {
	ObservationID     int64
	PatternRefreshed  bool
	PatternKind       string
	SignificantChange bool
	MemoryRecorded    bool
	CacheInvalidated  bool
}

// RecordObservationHandler handles the RecordObservation command
type RecordObservationHandler struct {
	observationRepo market.ObservationRepository
	patternRepo     intel.PatternRepository
	recognizer      *intel.Recognizer
	memoryWriter    *services.MemoryWriter
	cache           ports.ResultCache
	locks           *common.PlayerLocks
	clock           shared.Clock
	cacheTTL        time.Duration
	staleThreshold  int64
}

// NewRecordObservationHandler creates a new RecordObservationHandler.
// Non-positive cacheTTL or staleThreshold fall back to defaults.
func NewRecordObservationHandler(
	observationRepo market.ObservationRepository,
	patternRepo intel.PatternRepository,
	recognizer *intel.Recognizer,
	memoryWriter *services.MemoryWriter,
	cache ports.ResultCache,
	locks *common.PlayerLocks,
	clock shared.Clock,
	cacheTTL time.Duration,
	staleThreshold int64,
) *RecordObservationHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if staleThreshold <= 0 {
		staleThreshold = defaultStaleThreshold
	}

	return &RecordObservationHandler{
		observationRepo: observationRepo,
		patternRepo:     patternRepo,
		recognizer:      recognizer,
		memoryWriter:    memoryWriter,
		cache:           cache,
		locks:           locks,
		clock:           clock,
		cacheTTL:        cacheTTL,
		staleThreshold:  staleThreshold,
	}
}

// Handle executes the RecordObservation command
func (h *RecordObservationHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RecordObservationCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RecordObservationCommand")
	}

	defer h.locks.Lock(cmd.PlayerID)()

	observedAt := h.clock.Now()
	if cmd.ObservedAt != nil {
		observedAt = *cmd.ObservedAt
	}

	obs, err := market.NewPriceObservation(cmd.PlayerID, cmd.PortID, cmd.CommodityID, cmd.BuyPrice, cmd.SellPrice, observedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create observation: %w", err)
	}

	latest, err := h.observationRepo.LatestObservedAt(ctx, cmd.PlayerID, cmd.PortID, cmd.CommodityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest observation time: %w", err)
	}
	if !latest.IsZero() {
		if err := market.CheckOrdering(latest, obs.ObservedAt()); err != nil {
			return nil, err
		}
	}

	if err := h.observationRepo.Append(ctx, obs); err != nil {
		return nil, fmt.Errorf("failed to append observation: %w", err)
	}

	history, err := h.observationRepo.History(ctx, cmd.PlayerID, cmd.PortID, cmd.CommodityID, analysisWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load observation history: %w", err)
	}

	patternKind, refreshed, err := h.refreshPattern(ctx, cmd, history)
	if err != nil {
		return nil, err
	}

	significant, memoryRecorded, err := h.noteSignificantChange(ctx, cmd, history, observedAt)
	if err != nil {
		return nil, err
	}

	invalidated, err := h.dropStaleResults(ctx, cmd, observedAt)
	if err != nil {
		return nil, err
	}

	return &RecordObservationResponse{
		ObservationID:     obs.ID(),
		PatternRefreshed:  refreshed,
		PatternKind:       patternKind,
		SignificantChange: significant,
		MemoryRecorded:    memoryRecorded,
		CacheInvalidated:  invalidated,
	}, nil
}

// refreshPattern recomputes the pattern for the ledger just written. A
// ledger still below the minimum sample size is not an error; the pattern
// simply does not exist yet.
func (h *RecordObservationHandler) refreshPattern(
	ctx context.Context,
	cmd *RecordObservationCommand,
	history []*market.PriceObservation,
) (string, bool, error) {
	pattern, err := h.recognizer.Analyze(cmd.PlayerID, cmd.PortID, cmd.CommodityID, history, h.clock.Now())
	if err != nil {
		if errors.Is(err, intel.ErrInsufficientData) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to analyze ledger: %w", err)
	}

	if err := h.patternRepo.Upsert(ctx, pattern); err != nil {
		return "", false, fmt.Errorf("failed to persist pattern: %w", err)
	}

	return string(pattern.Kind()), true, nil
}

// noteSignificantChange writes a memory when the newest mid price moved more
// than the significance threshold against the previous one
func (h *RecordObservationHandler) noteSignificantChange(
	ctx context.Context,
	cmd *RecordObservationCommand,
	history []*market.PriceObservation,
	observedAt time.Time,
) (bool, bool, error) {
	if len(history) < 2 {
		return false, false, nil
	}

	prev := history[len(history)-2]
	curr := history[len(history)-1]
	if prev.MidPrice() <= 0 {
		return false, false, nil
	}

	change := math.Abs(curr.MidPrice()-prev.MidPrice()) / prev.MidPrice()
	if change <= significantChangeFraction {
		return false, false, nil
	}

	payload := map[string]interface{}{
		"port_id":      cmd.PortID,
		"commodity_id": cmd.CommodityID,
		"previous_mid": prev.MidPrice(),
		"current_mid":  curr.MidPrice(),
		"change_pct":   math.Round(change * 1000) / 10,
		"observed_at":  observedAt.UTC().Format(time.RFC3339),
	}

	_, stored, err := h.memoryWriter.Remember(ctx, cmd.PlayerID, memory.KindPriceObservation, payload, priceChangeImportance)
	if err != nil {
		return true, false, fmt.Errorf("failed to record price change memory: %w", err)
	}

	logging.LoggerFromContext(ctx).Log("info", "significant price change", map[string]interface{}{
		"player_id":    cmd.PlayerID.String(),
		"port_id":      cmd.PortID,
		"commodity_id": cmd.CommodityID,
		"change_pct":   payload["change_pct"],
	})

	return true, stored, nil
}

// dropStaleResults invalidates cached predictions for this ledger, and all
// cached routes, once enough fresh observations landed inside one TTL
// window. Every live cache entry is younger than the TTL, so counting over
// that window never misses an entry that went stale.
func (h *RecordObservationHandler) dropStaleResults(
	ctx context.Context,
	cmd *RecordObservationCommand,
	observedAt time.Time,
) (bool, error) {
	if h.cache == nil {
		return false, nil
	}

	count, err := h.observationRepo.CountSince(ctx, cmd.PlayerID, cmd.PortID, cmd.CommodityID, observedAt.Add(-h.cacheTTL))
	if err != nil {
		return false, fmt.Errorf("failed to count recent observations: %w", err)
	}
	if count < h.staleThreshold {
		return false, nil
	}

	predictionKey := ports.PredictionKeyPrefix + cmd.PortID + ":" + cmd.CommodityID
	dropped, err := h.cache.InvalidateFor(ctx, cmd.PlayerID, predictionKey)
	if err != nil {
		return false, fmt.Errorf("failed to invalidate prediction cache: %w", err)
	}

	droppedRoutes, err := h.cache.InvalidateFor(ctx, cmd.PlayerID, ports.RouteKeyPrefix)
	if err != nil {
		return false, fmt.Errorf("failed to invalidate route cache: %w", err)
	}

	return dropped+droppedRoutes > 0, nil
}
