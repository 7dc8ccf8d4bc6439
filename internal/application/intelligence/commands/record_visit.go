package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// Importance assigned to visit memories. Discovering a port matters far
// more than returning to it; the revisit payload carries no timestamp so
// repeat visits dedup onto one weak memory per port instead of piling up.
const (
	firstVisitImportance = 0.8
	revisitImportance    = 0.3
)

// RecordVisitCommand records that the player docked at a port. FromPortID
// is optional; when set, the traversal is added to the player's known
// travel links.
type RecordVisitCommand struct {
	PlayerID   shared.PlayerID
	SectorID   string
	PortID     string
	PortClass  string
	FromPortID string
	VisitedAt  *time.Time // Optional: defaults to current time
}

// RecordVisitResponse reports what the visit changed
type RecordVisitResponse struct {
	FirstVisit     bool
	VisitCount     int
	LinkRecorded   bool
	MemoryRecorded bool
}

// RecordVisitHandler handles the RecordVisit command
type RecordVisitHandler struct {
	visitRepo    exploration.VisitRepository
	linkRepo     exploration.LinkRepository
	memoryWriter *services.MemoryWriter
	locks        *common.PlayerLocks
	clock        shared.Clock
}

// NewRecordVisitHandler creates a new RecordVisitHandler
func NewRecordVisitHandler(
	visitRepo exploration.VisitRepository,
	linkRepo exploration.LinkRepository,
	memoryWriter *services.MemoryWriter,
	locks *common.PlayerLocks,
	clock shared.Clock,
) *RecordVisitHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &RecordVisitHandler{
		visitRepo:    visitRepo,
		linkRepo:     linkRepo,
		memoryWriter: memoryWriter,
		locks:        locks,
		clock:        clock,
	}
}

// Handle executes the RecordVisit command
func (h *RecordVisitHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RecordVisitCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RecordVisitCommand")
	}

	if cmd.PlayerID.IsZero() {
		return nil, fmt.Errorf("invalid player ID: player_id cannot be zero")
	}

	defer h.locks.Lock(cmd.PlayerID)()

	visitedAt := h.clock.Now()
	if cmd.VisitedAt != nil {
		visitedAt = *cmd.VisitedAt
	}

	visit, err := h.visitRepo.FindByPort(ctx, cmd.PlayerID, cmd.PortID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit record: %w", err)
	}

	firstVisit := visit == nil
	if firstVisit {
		visit, err = exploration.NewVisitRecord(cmd.PlayerID, cmd.SectorID, cmd.PortID, cmd.PortClass, visitedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create visit record: %w", err)
		}
	} else {
		visit.RecordRevisit(visitedAt)
	}

	if err := h.visitRepo.Save(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to persist visit record: %w", err)
	}

	linkRecorded, err := h.recordLink(ctx, cmd, visitedAt)
	if err != nil {
		return nil, err
	}

	importance := revisitImportance
	payload := map[string]interface{}{
		"sector_id":  cmd.SectorID,
		"port_id":    cmd.PortID,
		"port_class": cmd.PortClass,
	}
	if firstVisit {
		importance = firstVisitImportance
		payload["visited_at"] = visitedAt.UTC().Format(time.RFC3339)
	}

	_, memoryRecorded, err := h.memoryWriter.Remember(ctx, cmd.PlayerID, memory.KindLocationVisit, payload, importance)
	if err != nil {
		return nil, fmt.Errorf("failed to record visit memory: %w", err)
	}

	if firstVisit {
		logging.LoggerFromContext(ctx).Log("info", "recorded first visit", map[string]interface{}{
			"player_id": cmd.PlayerID.String(),
			"sector_id": cmd.SectorID,
			"port_id":   cmd.PortID,
		})
	}

	return &RecordVisitResponse{
		FirstVisit:     firstVisit,
		VisitCount:     visit.VisitCount(),
		LinkRecorded:   linkRecorded,
		MemoryRecorded: memoryRecorded,
	}, nil
}

// recordLink upserts the directed travel link when the command names the
// origin port
func (h *RecordVisitHandler) recordLink(ctx context.Context, cmd *RecordVisitCommand, traveledAt time.Time) (bool, error) {
	if cmd.FromPortID == "" || cmd.FromPortID == cmd.PortID {
		return false, nil
	}

	link, err := h.linkRepo.Find(ctx, cmd.PlayerID, cmd.FromPortID, cmd.PortID)
	if err != nil {
		return false, fmt.Errorf("failed to load travel link: %w", err)
	}

	if link == nil {
		link, err = exploration.NewTravelLink(cmd.PlayerID, cmd.FromPortID, cmd.PortID, traveledAt)
		if err != nil {
			return false, fmt.Errorf("failed to create travel link: %w", err)
		}
	} else {
		link.RecordTraversal()
	}

	if err := h.linkRepo.Save(ctx, link); err != nil {
		return false, fmt.Errorf("failed to persist travel link: %w", err)
	}

	return true, nil
}
