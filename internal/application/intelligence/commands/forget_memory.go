package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// ForgetMemoryCommand hard-deletes one memory record at the player's
// request. Forgetting an already absent record succeeds.
type ForgetMemoryCommand struct {
	PlayerID shared.PlayerID
	RecordID string
}

// ForgetMemoryResponse reports whether a record was actually removed
type ForgetMemoryResponse struct {
	Deleted bool
}

// ForgetMemoryHandler handles the ForgetMemory command
type ForgetMemoryHandler struct {
	memoryRepo memory.Repository
	audit      *services.AuditTrail
	locks      *common.PlayerLocks
}

// NewForgetMemoryHandler creates a new ForgetMemoryHandler
func NewForgetMemoryHandler(
	memoryRepo memory.Repository,
	audit *services.AuditTrail,
	locks *common.PlayerLocks,
) *ForgetMemoryHandler {
	return &ForgetMemoryHandler{
		memoryRepo: memoryRepo,
		audit:      audit,
		locks:      locks,
	}
}

// Handle executes the ForgetMemory command
func (h *ForgetMemoryHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*ForgetMemoryCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ForgetMemoryCommand")
	}

	defer h.locks.Lock(cmd.PlayerID)()

	var notFound *memory.ErrRecordNotFound
	_, err := h.memoryRepo.FindByID(ctx, cmd.PlayerID, cmd.RecordID)
	if err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("failed to load memory record: %w", err)
	}
	exists := err == nil

	detail := "deleted"
	if !exists {
		detail = "already absent"
	}
	if err := h.audit.Record(ctx, cmd.PlayerID, "memory_forget", cmd.RecordID, security.OutcomeOK, detail, security.AnomalyNone); err != nil {
		return nil, err
	}

	if !exists {
		return &ForgetMemoryResponse{Deleted: false}, nil
	}

	if err := h.memoryRepo.Delete(ctx, cmd.PlayerID, cmd.RecordID); err != nil {
		h.audit.RecordBestEffort(ctx, cmd.PlayerID, "memory_forget", cmd.RecordID, security.OutcomeError, err.Error(), security.AnomalyNone)
		return nil, fmt.Errorf("failed to delete memory record: %w", err)
	}

	return &ForgetMemoryResponse{Deleted: true}, nil
}
