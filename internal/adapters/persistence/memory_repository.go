package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GormMemoryRepository implements memory.Repository using GORM
type GormMemoryRepository struct {
	db *gorm.DB
}

// NewGormMemoryRepository creates a new GORM memory repository
func NewGormMemoryRepository(db *gorm.DB) *GormMemoryRepository {
	return &GormMemoryRepository{db: db}
}

// Save persists a new memory record
func (r *GormMemoryRepository) Save(ctx context.Context, record *memory.Record) error {
	model := r.recordToModel(record)

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save memory record: %w", result.Error)
	}

	return nil
}

// FindByHash retrieves the record with the given content hash for a player,
// or nil if none exists
func (r *GormMemoryRepository) FindByHash(ctx context.Context, playerID shared.PlayerID, contentHash string) (*memory.Record, error) {
	var model PersonalMemoryModel
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND content_hash = ?", playerID.Value(), contentHash).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find memory by hash: %w", result.Error)
	}

	return r.modelToRecord(&model)
}

// FindByID retrieves a record by id, scoped to the player
func (r *GormMemoryRepository) FindByID(ctx context.Context, playerID shared.PlayerID, recordID string) (*memory.Record, error) {
	var model PersonalMemoryModel
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND id = ?", playerID.Value(), recordID).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &memory.ErrRecordNotFound{RecordID: recordID, PlayerID: playerID.String()}
		}
		return nil, fmt.Errorf("failed to find memory by id: %w", result.Error)
	}

	return r.modelToRecord(&model)
}

// FindByPlayer retrieves all records for a player, optionally filtered by
// kind
func (r *GormMemoryRepository) FindByPlayer(ctx context.Context, playerID shared.PlayerID, kind *memory.Kind) ([]*memory.Record, error) {
	query := r.db.WithContext(ctx).Where("player_id = ?", playerID.Value())
	if kind != nil {
		query = query.Where("kind = ?", string(*kind))
	}

	var models []PersonalMemoryModel
	result := query.Order("created_at DESC").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find memories: %w", result.Error)
	}

	records := make([]*memory.Record, 0, len(models))
	for _, model := range models {
		record, err := r.modelToRecord(&model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert memory model: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// TouchAccess bumps the access count and last-accessed timestamp for the
// given records
func (r *GormMemoryRepository) TouchAccess(ctx context.Context, recordIDs []string, at time.Time) error {
	if len(recordIDs) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&PersonalMemoryModel{}).
		Where("id IN ?", recordIDs).
		Updates(map[string]interface{}{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_accessed_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update access metadata: %w", result.Error)
	}

	return nil
}

// Delete removes a single record. Deleting a missing record is not an error.
func (r *GormMemoryRepository) Delete(ctx context.Context, playerID shared.PlayerID, recordID string) error {
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND id = ?", playerID.Value(), recordID).
		Delete(&PersonalMemoryModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete memory record: %w", result.Error)
	}

	return nil
}

// DeleteByPlayer removes every record for a player
func (r *GormMemoryRepository) DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error {
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Delete(&PersonalMemoryModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete player memories: %w", result.Error)
	}

	return nil
}

// CountByPlayer returns the number of stored records for a player
func (r *GormMemoryRepository) CountByPlayer(ctx context.Context, playerID shared.PlayerID) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&PersonalMemoryModel{}).
		Where("player_id = ?", playerID.Value()).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count memories: %w", result.Error)
	}

	return count, nil
}

// recordToModel converts a domain record to a GORM model
func (r *GormMemoryRepository) recordToModel(record *memory.Record) *PersonalMemoryModel {
	return &PersonalMemoryModel{
		ID:             record.ID(),
		PlayerID:       record.PlayerID().Value(),
		Kind:           string(record.Kind()),
		Ciphertext:     record.Ciphertext(),
		Importance:     record.Importance(),
		DecayRate:      record.DecayRate(),
		ContentHash:    record.ContentHash(),
		CreatedAt:      record.CreatedAt(),
		AccessCount:    record.AccessCount(),
		LastAccessedAt: record.LastAccessedAt(),
	}
}

// modelToRecord converts a GORM model to a domain record
func (r *GormMemoryRepository) modelToRecord(model *PersonalMemoryModel) (*memory.Record, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID: %w", err)
	}

	record, err := memory.ReconstructRecord(
		model.ID,
		playerID,
		memory.Kind(model.Kind),
		model.Ciphertext,
		model.Importance,
		model.DecayRate,
		model.ContentHash,
		model.CreatedAt,
		model.AccessCount,
		model.LastAccessedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct memory record: %w", err)
	}

	return record, nil
}
