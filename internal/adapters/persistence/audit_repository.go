package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GormAuditRepository implements security.AuditRepository using GORM. Entry
// ids come from a snowflake node so the log stays totally ordered even when
// several entries land in the same millisecond. There is no Delete: the log
// is append-only by construction.
type GormAuditRepository struct {
	db   *gorm.DB
	node *snowflake.Node
}

// NewGormAuditRepository creates a new GORM audit repository
func NewGormAuditRepository(db *gorm.DB, node *snowflake.Node) *GormAuditRepository {
	return &GormAuditRepository{db: db, node: node}
}

// Append stores a new entry and assigns its sequence id
func (r *GormAuditRepository) Append(ctx context.Context, entry *security.AuditEntry) error {
	id := r.node.Generate().Int64()

	model := &SecurityAuditModel{
		ID:           id,
		PlayerID:     entry.PlayerID().Value(),
		Action:       entry.Action(),
		Resource:     entry.Resource(),
		Outcome:      string(entry.Outcome()),
		Detail:       entry.Detail(),
		AnomalyScore: entry.AnomalyScore(),
		CreatedAt:    entry.CreatedAt(),
	}

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to append audit entry: %w", result.Error)
	}

	entry.AssignID(id)
	return nil
}

// ListByPlayer returns a player's entries, most recent first
func (r *GormAuditRepository) ListByPlayer(
	ctx context.Context,
	playerID shared.PlayerID,
	limit int,
) ([]*security.AuditEntry, error) {
	query := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []SecurityAuditModel
	result := query.Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", result.Error)
	}

	entries := make([]*security.AuditEntry, 0, len(models))
	for i := range models {
		entry, err := r.modelToEntry(&models[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert audit model: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// CountSince counts a player's entries for one action since a point in time
func (r *GormAuditRepository) CountSince(
	ctx context.Context,
	playerID shared.PlayerID,
	action string,
	since time.Time,
) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&SecurityAuditModel{}).
		Where("player_id = ? AND action = ? AND created_at >= ?", playerID.Value(), action, since).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", result.Error)
	}

	return count, nil
}

// modelToEntry converts a GORM model to a domain entity
func (r *GormAuditRepository) modelToEntry(model *SecurityAuditModel) (*security.AuditEntry, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID: %w", err)
	}

	entry, err := security.ReconstructAuditEntry(
		model.ID,
		playerID,
		model.Action,
		model.Resource,
		security.Outcome(model.Outcome),
		model.Detail,
		model.AnomalyScore,
		model.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct audit entry: %w", err)
	}

	return entry, nil
}
