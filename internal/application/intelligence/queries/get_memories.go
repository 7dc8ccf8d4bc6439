package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GetMemoriesQuery lists a player's memories ordered by effective strength.
// Kind narrows to one memory kind; MinStrength drops records below the
// given effective strength (on top of the visibility floor).
type GetMemoriesQuery struct {
	PlayerID    shared.PlayerID
	Kind        *string
	MinStrength *float64
	Limit       int // Non-positive returns all visible records
}

// MemoryDTO is one decrypted memory with its read-time strength
type MemoryDTO struct {
	ID                string                 `json:"id"`
	Kind              string                 `json:"kind"`
	Payload           map[string]interface{} `json:"payload"`
	Importance        float64                `json:"importance"`
	EffectiveStrength float64                `json:"effective_strength"`
	CreatedAt         time.Time              `json:"created_at"`
	AccessCount       int                    `json:"access_count"`
}

// GetMemoriesResponse carries the visible memories, strongest first
type GetMemoriesResponse struct {
	Memories []MemoryDTO `json:"memories"`
	Total    int         `json:"total"`
}

// GetMemoriesHandler handles the GetMemories query
type GetMemoriesHandler struct {
	memoryRepo memory.Repository
	codec      memory.PayloadCodec
	audit      *services.AuditTrail
	clock      shared.Clock
}

// NewGetMemoriesHandler creates a new GetMemoriesHandler
func NewGetMemoriesHandler(
	memoryRepo memory.Repository,
	codec memory.PayloadCodec,
	audit *services.AuditTrail,
	clock shared.Clock,
) *GetMemoriesHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &GetMemoriesHandler{
		memoryRepo: memoryRepo,
		codec:      codec,
		audit:      audit,
		clock:      clock,
	}
}

// Handle executes the GetMemories query
func (h *GetMemoriesHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetMemoriesQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetMemoriesQuery")
	}

	var kind *memory.Kind
	if query.Kind != nil {
		k := memory.Kind(*query.Kind)
		if !k.IsValid() {
			return nil, fmt.Errorf("invalid memory kind: %s", *query.Kind)
		}
		kind = &k
	}

	if err := h.audit.Record(ctx, query.PlayerID, "memory_query", kindLabel(kind), security.OutcomeOK, "", security.AnomalyNone); err != nil {
		return nil, err
	}

	records, err := h.memoryRepo.FindByPlayer(ctx, query.PlayerID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}

	now := h.clock.Now()
	floor := memory.VisibilityFloor
	if query.MinStrength != nil && *query.MinStrength > floor {
		floor = *query.MinStrength
	}

	type scored struct {
		record   *memory.Record
		strength float64
	}

	visible := make([]scored, 0, len(records))
	for _, record := range records {
		strength := record.EffectiveStrength(now)
		if strength < floor {
			continue
		}
		visible = append(visible, scored{record: record, strength: strength})
	}

	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].strength != visible[j].strength {
			return visible[i].strength > visible[j].strength
		}
		return visible[i].record.CreatedAt().After(visible[j].record.CreatedAt())
	})

	if query.Limit > 0 && len(visible) > query.Limit {
		visible = visible[:query.Limit]
	}

	dtos := make([]MemoryDTO, 0, len(visible))
	accessed := make([]string, 0, len(visible))
	for _, s := range visible {
		plaintext, err := h.codec.Decrypt(s.record.Ciphertext())
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt memory %s: %w", s.record.ID(), err)
		}

		var payload map[string]interface{}
		if err := json.Unmarshal(plaintext, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode memory %s: %w", s.record.ID(), err)
		}

		dtos = append(dtos, MemoryDTO{
			ID:                s.record.ID(),
			Kind:              string(s.record.Kind()),
			Payload:           payload,
			Importance:        s.record.Importance(),
			EffectiveStrength: s.strength,
			CreatedAt:         s.record.CreatedAt(),
			AccessCount:       s.record.AccessCount(),
		})
		accessed = append(accessed, s.record.ID())
	}

	// Access metadata is bookkeeping only. It never feeds back into
	// importance, so recall cannot keep a memory alive.
	if len(accessed) > 0 {
		if err := h.memoryRepo.TouchAccess(ctx, accessed, now); err != nil {
			return nil, fmt.Errorf("failed to update access metadata: %w", err)
		}
	}

	return &GetMemoriesResponse{
		Memories: dtos,
		Total:    len(dtos),
	}, nil
}

func kindLabel(kind *memory.Kind) string {
	if kind == nil {
		return "all"
	}
	return string(*kind)
}
