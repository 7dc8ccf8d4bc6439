package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GormHeuristicRepository implements evolution.Repository using GORM. Genes
// are stored as a JSON column; generation turnover replaces the whole
// population inside one transaction.
type GormHeuristicRepository struct {
	db *gorm.DB
}

// NewGormHeuristicRepository creates a new GORM heuristic repository
func NewGormHeuristicRepository(db *gorm.DB) *GormHeuristicRepository {
	return &GormHeuristicRepository{db: db}
}

// FindByPlayer retrieves the player's current population
func (r *GormHeuristicRepository) FindByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*evolution.Heuristic, error) {
	var models []TradingHeuristicModel
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Order("created_at, id").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load population: %w", result.Error)
	}

	population := make([]*evolution.Heuristic, 0, len(models))
	for i := range models {
		h, err := r.modelToHeuristic(&models[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert heuristic model: %w", err)
		}
		population = append(population, h)
	}

	return population, nil
}

// FindByID retrieves one heuristic, scoped to the player
func (r *GormHeuristicRepository) FindByID(
	ctx context.Context,
	playerID shared.PlayerID,
	heuristicID string,
) (*evolution.Heuristic, error) {
	var model TradingHeuristicModel
	result := r.db.WithContext(ctx).
		Where("id = ? AND player_id = ?", heuristicID, playerID.Value()).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &evolution.ErrHeuristicNotFound{HeuristicID: heuristicID, PlayerID: playerID.Value()}
		}
		return nil, fmt.Errorf("failed to find heuristic: %w", result.Error)
	}

	return r.modelToHeuristic(&model)
}

// Save persists updated performance evidence for one heuristic
func (r *GormHeuristicRepository) Save(ctx context.Context, heuristic *evolution.Heuristic) error {
	model, err := r.heuristicToModel(heuristic)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save heuristic: %w", result.Error)
	}

	return nil
}

// ReplacePopulation atomically swaps the player's population for the next
// generation
func (r *GormHeuristicRepository) ReplacePopulation(
	ctx context.Context,
	playerID shared.PlayerID,
	population []*evolution.Heuristic,
) error {
	models := make([]TradingHeuristicModel, 0, len(population))
	for _, h := range population {
		model, err := r.heuristicToModel(h)
		if err != nil {
			return err
		}
		models = append(models, *model)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("player_id = ?", playerID.Value()).
			Delete(&TradingHeuristicModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear prior population: %w", err)
		}
		if len(models) == 0 {
			return nil
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("failed to store new population: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace population: %w", err)
	}

	return nil
}

// DeleteByPlayer removes the player's entire population
func (r *GormHeuristicRepository) DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error {
	result := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Delete(&TradingHeuristicModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete player population: %w", result.Error)
	}

	return nil
}

// heuristicToModel converts a domain entity to a GORM model
func (r *GormHeuristicRepository) heuristicToModel(h *evolution.Heuristic) (*TradingHeuristicModel, error) {
	genesJSON, err := json.Marshal(h.Genes())
	if err != nil {
		return nil, fmt.Errorf("failed to encode genes: %w", err)
	}

	return &TradingHeuristicModel{
		ID:           h.ID(),
		PlayerID:     h.PlayerID().Value(),
		Name:         h.Name(),
		Generation:   h.Generation(),
		ParentID:     h.ParentID(),
		GenesJSON:    string(genesJSON),
		SuccessRate:  h.SuccessRate(),
		AvgProfit:    h.AvgProfit(),
		ProfitM2:     h.ProfitM2(),
		OutcomeCount: h.OutcomeCount(),
		Fitness:      h.Fitness(),
		CreatedAt:    h.CreatedAt(),
	}, nil
}

// modelToHeuristic converts a GORM model to a domain entity
func (r *GormHeuristicRepository) modelToHeuristic(model *TradingHeuristicModel) (*evolution.Heuristic, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID: %w", err)
	}

	var genes evolution.Genes
	if err := json.Unmarshal([]byte(model.GenesJSON), &genes); err != nil {
		return nil, fmt.Errorf("failed to decode genes: %w", err)
	}

	h, err := evolution.ReconstructHeuristic(
		model.ID,
		playerID,
		model.Name,
		model.Generation,
		model.ParentID,
		genes,
		model.SuccessRate,
		model.AvgProfit,
		model.ProfitM2,
		model.OutcomeCount,
		model.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct heuristic: %w", err)
	}

	return h, nil
}
