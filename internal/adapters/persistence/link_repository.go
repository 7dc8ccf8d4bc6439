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

// GormLinkRepository implements exploration.LinkRepository using GORM
type GormLinkRepository struct {
	db *gorm.DB
}

// NewGormLinkRepository creates a new GORM link repository
func NewGormLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// Find retrieves the directed link between two ports, or nil when the player
// has never traveled it
func (r *GormLinkRepository) Find(
	ctx context.Context,
	playerID shared.PlayerID,
	fromPortID, toPortID string,
) (*exploration.TravelLink, error) {
	var model TravelLinkModel
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND from_port_id = ? AND to_port_id = ?", playerID.Value(), fromPortID, toPortID).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find travel link: %w", result.Error)
	}

	return r.modelToLink(&model)
}

// Save persists a new or updated link
func (r *GormLinkRepository) Save(ctx context.Context, link *exploration.TravelLink) error {
	model := &TravelLinkModel{
		ID:              link.ID(),
		PlayerID:        link.PlayerID().Value(),
		FromPortID:      link.FromPortID(),
		ToPortID:        link.ToPortID(),
		FirstTraveledAt: link.FirstTraveledAt(),
		TravelCount:     link.TravelCount(),
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}, {Name: "from_port_id"}, {Name: "to_port_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"travel_count"}),
	}).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save travel link: %w", result.Error)
	}

	return nil
}

// ListByPlayer retrieves every known link for a player
func (r *GormLinkRepository) ListByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*exploration.TravelLink, error) {
	var models []TravelLinkModel
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Order("from_port_id, to_port_id").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list travel links: %w", result.Error)
	}

	links := make([]*exploration.TravelLink, 0, len(models))
	for i := range models {
		link, err := r.modelToLink(&models[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert link model: %w", err)
		}
		links = append(links, link)
	}

	return links, nil
}

// DeleteByPlayer removes the player's links
func (r *GormLinkRepository) DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error {
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Delete(&TravelLinkModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete player links: %w", result.Error)
	}

	return nil
}

// modelToLink converts a GORM model to a domain entity
func (r *GormLinkRepository) modelToLink(model *TravelLinkModel) (*exploration.TravelLink, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID: %w", err)
	}

	link, err := exploration.ReconstructTravelLink(
		model.ID,
		playerID,
		model.FromPortID,
		model.ToPortID,
		model.FirstTraveledAt,
		model.TravelCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct travel link: %w", err)
	}

	return link, nil
}
