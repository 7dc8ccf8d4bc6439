package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sectorwars/aria-core/internal/domain/exploration"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GormVisitRepository implements exploration.VisitRepository using GORM
type GormVisitRepository struct {
	db *gorm.DB
}

// NewGormVisitRepository creates a new GORM visit repository
func NewGormVisitRepository(db *gorm.DB) *GormVisitRepository {
	return &GormVisitRepository{db: db}
}

// FindByPort retrieves the visit record for a port, or nil when the player
// has never been there
func (r *GormVisitRepository) FindByPort(
	ctx context.Context,
	playerID shared.PlayerID,
	portID string,
) (*exploration.VisitRecord, error) {
	var model ExplorationVisitModel
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND port_id = ?", playerID.Value(), portID).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find visit record: %w", result.Error)
	}

	return r.modelToVisit(&model)
}

// Save persists a new or updated visit record
func (r *GormVisitRepository) Save(ctx context.Context, visit *exploration.VisitRecord) error {
	model := &ExplorationVisitModel{
		ID:             visit.ID(),
		PlayerID:       visit.PlayerID().Value(),
		PortID:         visit.PortID(),
		SectorID:       visit.SectorID(),
		PortClass:      visit.PortClass(),
		FirstVisitedAt: visit.FirstVisitedAt(),
		LastVisitedAt:  visit.LastVisitedAt(),
		VisitCount:     visit.VisitCount(),
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "port_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sector_id", "port_class", "last_visited_at", "visit_count",
		}),
	}).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save visit record: %w", result.Error)
	}

	return nil
}

// ListByPlayer retrieves every port the player has visited
func (r *GormVisitRepository) ListByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*exploration.VisitRecord, error) {
	var models []ExplorationVisitModel
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Order("first_visited_at, id").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list visit records: %w", result.Error)
	}

	visits := make([]*exploration.VisitRecord, 0, len(models))
	for i := range models {
		visit, err := r.modelToVisit(&models[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert visit model: %w", err)
		}
		visits = append(visits, visit)
	}

	return visits, nil
}

// CountByPlayer returns how many distinct ports the player has visited
func (r *GormVisitRepository) CountByPlayer(ctx context.Context, playerID shared.PlayerID) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&ExplorationVisitModel{}).
		Where("player_id = ?", playerID.Value()).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count visit records: %w", result.Error)
	}

	return count, nil
}

// DeleteByPlayer removes the player's exploration map
func (r *GormVisitRepository) DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error {
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Delete(&ExplorationVisitModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete player visits: %w", result.Error)
	}

	return nil
}

// modelToVisit converts a GORM model to a domain entity
func (r *GormVisitRepository) modelToVisit(model *ExplorationVisitModel) (*exploration.VisitRecord, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID: %w", err)
	}

	visit, err := exploration.ReconstructVisitRecord(
		model.ID,
		playerID,
		model.SectorID,
		model.PortID,
		model.PortClass,
		model.FirstVisitedAt,
		model.LastVisitedAt,
		model.VisitCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct visit record: %w", err)
	}

	return visit, nil
}
