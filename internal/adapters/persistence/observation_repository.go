package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sectorwars/aria-core/internal/domain/market"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GormObservationRepository implements market.ObservationRepository using
// GORM. The ledger is append-only; nothing here updates a stored row.
type GormObservationRepository struct {
	db *gorm.DB
}

// NewGormObservationRepository creates a new GORM observation repository
func NewGormObservationRepository(db *gorm.DB) *GormObservationRepository {
	return &GormObservationRepository{db: db}
}

// Append persists one observation at the end of its ledger
func (r *GormObservationRepository) Append(ctx context.Context, obs *market.PriceObservation) error {
	model := &PriceObservationModel{
		PlayerID:    obs.PlayerID().Value(),
		PortID:      obs.PortID(),
		CommodityID: obs.CommodityID(),
		BuyPrice:    obs.BuyPrice(),
		SellPrice:   obs.SellPrice(),
		ObservedAt:  obs.ObservedAt(),
	}

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to append observation: %w", result.Error)
	}

	obs.AssignID(model.ID)
	return nil
}

// History returns observations for one ledger in chronological order, most
// recent last. A non-positive limit returns the full ledger.
func (r *GormObservationRepository) History(
	ctx context.Context,
	playerID shared.PlayerID,
	portID, commodityID string,
	limit int,
) ([]*market.PriceObservation, error) {
	query := r.db.WithContext(ctx).
		Where("player_id = ? AND port_id = ? AND commodity_id = ?", playerID.Value(), portID, commodityID).
		Order("observed_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []PriceObservationModel
	result := query.Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load observation history: %w", result.Error)
	}

	// Reverse into chronological order, oldest first
	observations := make([]*market.PriceObservation, len(models))
	for i, model := range models {
		obs, err := r.modelToObservation(&model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert observation model: %w", err)
		}
		observations[len(models)-1-i] = obs
	}

	return observations, nil
}

// LatestObservedAt returns the timestamp of the newest observation for the
// ledger, or the zero time when the ledger is empty
func (r *GormObservationRepository) LatestObservedAt(
	ctx context.Context,
	playerID shared.PlayerID,
	portID, commodityID string,
) (time.Time, error) {
	var model PriceObservationModel
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND port_id = ? AND commodity_id = ?", playerID.Value(), portID, commodityID).
		Order("observed_at DESC, id DESC").
		Limit(1).
		Find(&model)

	if result.Error != nil {
		return time.Time{}, fmt.Errorf("failed to load latest observation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return time.Time{}, nil
	}

	return model.ObservedAt, nil
}

// CountSince returns how many observations landed on one ledger since the
// given time
func (r *GormObservationRepository) CountSince(
	ctx context.Context,
	playerID shared.PlayerID,
	portID, commodityID string,
	since time.Time,
) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&PriceObservationModel{}).
		Where("player_id = ? AND port_id = ? AND commodity_id = ? AND observed_at >= ?",
			playerID.Value(), portID, commodityID, since).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count observations: %w", result.Error)
	}

	return count, nil
}

// CommoditiesAt lists the distinct commodities the player has observed at a
// port
func (r *GormObservationRepository) CommoditiesAt(
	ctx context.Context,
	playerID shared.PlayerID,
	portID string,
) ([]string, error) {
	var commodities []string
	result := r.db.WithContext(ctx).
		Model(&PriceObservationModel{}).
		Where("player_id = ? AND port_id = ?", playerID.Value(), portID).
		Distinct("commodity_id").
		Order("commodity_id").
		Pluck("commodity_id", &commodities)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list commodities: %w", result.Error)
	}

	return commodities, nil
}

// DeleteByPlayer removes every observation for a player
func (r *GormObservationRepository) DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error {
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Delete(&PriceObservationModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete player observations: %w", result.Error)
	}

	return nil
}

// modelToObservation converts a GORM model to a domain entity
func (r *GormObservationRepository) modelToObservation(model *PriceObservationModel) (*market.PriceObservation, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID: %w", err)
	}

	obs, err := market.ReconstructPriceObservation(
		model.ID,
		playerID,
		model.PortID,
		model.CommodityID,
		model.BuyPrice,
		model.SellPrice,
		model.ObservedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct observation: %w", err)
	}

	return obs, nil
}
