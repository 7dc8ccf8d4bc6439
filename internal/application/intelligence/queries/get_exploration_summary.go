package queries

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GetExplorationSummaryQuery summarizes how much of the world the player
// has personally seen
type GetExplorationSummaryQuery struct {
	PlayerID shared.PlayerID
}

// VisitDTO is one visited port
type VisitDTO struct {
	SectorID       string    `json:"sector_id"`
	PortID         string    `json:"port_id"`
	PortClass      string    `json:"port_class"`
	VisitCount     int       `json:"visit_count"`
	FirstVisitedAt time.Time `json:"first_visited_at"`
	LastVisitedAt  time.Time `json:"last_visited_at"`
}

// GetExplorationSummaryResponse aggregates the player's exploration map
type GetExplorationSummaryResponse struct {
	PortsVisited  int            `json:"ports_visited"`
	SectorsSeen   int            `json:"sectors_seen"`
	TotalVisits   int            `json:"total_visits"`
	LinksKnown    int            `json:"links_known"`
	PortsByClass  map[string]int `json:"ports_by_class"`
	RecentVisits  []VisitDTO     `json:"recent_visits"`
	LastVisitedAt *time.Time     `json:"last_visited_at,omitempty"`
}

// Number of most recent visits echoed back in the summary
const recentVisitLimit = 10

// GetExplorationSummaryHandler handles the GetExplorationSummary query
type GetExplorationSummaryHandler struct {
	visitRepo exploration.VisitRepository
	linkRepo  exploration.LinkRepository
}

// NewGetExplorationSummaryHandler creates a new GetExplorationSummaryHandler
func NewGetExplorationSummaryHandler(
	visitRepo exploration.VisitRepository,
	linkRepo exploration.LinkRepository,
) *GetExplorationSummaryHandler {
	return &GetExplorationSummaryHandler{
		visitRepo: visitRepo,
		linkRepo:  linkRepo,
	}
}

// Handle executes the GetExplorationSummary query
func (h *GetExplorationSummaryHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetExplorationSummaryQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetExplorationSummaryQuery")
	}

	visits, err := h.visitRepo.ListByPlayer(ctx, query.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exploration map: %w", err)
	}

	links, err := h.linkRepo.ListByPlayer(ctx, query.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load travel links: %w", err)
	}

	sectors := make(map[string]bool)
	byClass := make(map[string]int)
	totalVisits := 0
	var lastVisitedAt *time.Time

	for _, v := range visits {
		sectors[v.SectorID()] = true
		if v.PortClass() != "" {
			byClass[v.PortClass()]++
		}
		totalVisits += v.VisitCount()

		at := v.LastVisitedAt()
		if lastVisitedAt == nil || at.After(*lastVisitedAt) {
			lastVisitedAt = &at
		}
	}

	recent := recentVisits(visits, recentVisitLimit)
	recentDTOs := make([]VisitDTO, 0, len(recent))
	for _, v := range recent {
		recentDTOs = append(recentDTOs, VisitDTO{
			SectorID:       v.SectorID(),
			PortID:         v.PortID(),
			PortClass:      v.PortClass(),
			VisitCount:     v.VisitCount(),
			FirstVisitedAt: v.FirstVisitedAt(),
			LastVisitedAt:  v.LastVisitedAt(),
		})
	}

	return &GetExplorationSummaryResponse{
		PortsVisited:  len(visits),
		SectorsSeen:   len(sectors),
		TotalVisits:   totalVisits,
		LinksKnown:    len(links),
		PortsByClass:  byClass,
		RecentVisits:  recentDTOs,
		LastVisitedAt: lastVisitedAt,
	}, nil
}

// recentVisits returns up to limit visits ordered by last visit, newest
// first
func recentVisits(visits []*exploration.VisitRecord, limit int) []*exploration.VisitRecord {
	out := make([]*exploration.VisitRecord, len(visits))
	copy(out, visits)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastVisitedAt().After(out[j].LastVisitedAt())
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
