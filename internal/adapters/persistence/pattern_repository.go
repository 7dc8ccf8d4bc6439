package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GormPatternRepository implements intel.PatternRepository using GORM.
// One row per (player, port, commodity); upserts fully replace the prior
// pattern.
type GormPatternRepository struct {
	db *gorm.DB
}

// NewGormPatternRepository creates a new GORM pattern repository
func NewGormPatternRepository(db *gorm.DB) *GormPatternRepository {
	return &GormPatternRepository{db: db}
}

// Upsert stores the pattern, replacing any existing one for the same triple
func (r *GormPatternRepository) Upsert(ctx context.Context, pattern *intel.PricePattern) error {
	model := r.patternToModel(pattern)

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "port_id"}, {Name: "commodity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kind", "confidence", "window_size", "volatility",
			"predicted_value", "prediction_confidence", "computed_at",
		}),
	}).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert pattern: %w", result.Error)
	}

	return nil
}

// Find retrieves the latest pattern for the triple
func (r *GormPatternRepository) Find(
	ctx context.Context,
	playerID shared.PlayerID,
	portID, commodityID string,
) (*intel.PricePattern, error) {
	var model PricePatternModel
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND port_id = ? AND commodity_id = ?", playerID.Value(), portID, commodityID).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, intel.ErrInsufficientData
		}
		return nil, fmt.Errorf("failed to find pattern: %w", result.Error)
	}

	return r.modelToPattern(&model)
}

// ListByPlayer retrieves all current patterns for a player
func (r *GormPatternRepository) ListByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*intel.PricePattern, error) {
	var models []PricePatternModel
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Order("port_id, commodity_id").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", result.Error)
	}

	patterns := make([]*intel.PricePattern, 0, len(models))
	for i := range models {
		pattern, err := r.modelToPattern(&models[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert pattern model: %w", err)
		}
		patterns = append(patterns, pattern)
	}

	return patterns, nil
}

// DeleteByPlayer removes every pattern for a player
func (r *GormPatternRepository) DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error {
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Delete(&PricePatternModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete player patterns: %w", result.Error)
	}

	return nil
}

// patternToModel converts a domain entity to a GORM model
func (r *GormPatternRepository) patternToModel(pattern *intel.PricePattern) *PricePatternModel {
	return &PricePatternModel{
		PlayerID:             pattern.PlayerID().Value(),
		PortID:               pattern.PortID(),
		CommodityID:          pattern.CommodityID(),
		Kind:                 string(pattern.Kind()),
		Confidence:           pattern.Confidence(),
		WindowSize:           pattern.WindowSize(),
		Volatility:           pattern.Volatility(),
		PredictedValue:       pattern.PredictedValue(),
		PredictionConfidence: pattern.PredictionConfidence(),
		ComputedAt:           pattern.ComputedAt(),
	}
}

// modelToPattern converts a GORM model to a domain entity
func (r *GormPatternRepository) modelToPattern(model *PricePatternModel) (*intel.PricePattern, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID: %w", err)
	}

	pattern, err := intel.NewPricePattern(
		playerID,
		model.PortID,
		model.CommodityID,
		intel.PatternKind(model.Kind),
		model.Confidence,
		model.WindowSize,
		model.Volatility,
		model.PredictedValue,
		model.PredictionConfidence,
		model.ComputedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct pattern: %w", err)
	}

	return pattern, nil
}
