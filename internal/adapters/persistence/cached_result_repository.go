package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sectorwars/aria-core/internal/application/intelligence/ports"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// GormResultCache implements ports.ResultCache on the database. Keeping the
// cache next to the data it derives from means a purge transaction can clear
// both in one place.
type GormResultCache struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormResultCache creates a new database-backed result cache
func NewGormResultCache(db *gorm.DB, clock shared.Clock) *GormResultCache {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormResultCache{db: db, clock: clock}
}

// GetOrCompute returns the live cached payload for the key, or runs compute,
// stores the result, and returns it. Expired entries are replaced, not
// refreshed; a hit bumps the counter without extending the TTL.
func (c *GormResultCache) GetOrCompute(
	ctx context.Context,
	playerID shared.PlayerID,
	key string,
	ttl time.Duration,
	compute ports.ComputeFunc,
) (*ports.CachedResult, error) {
	now := c.clock.Now()

	var model CachedResultModel
	result := c.db.WithContext(ctx).
		Where("player_id = ? AND cache_key = ? AND expires_at > ?", playerID.Value(), key, now).
		First(&model)

	if result.Error == nil {
		if err := c.db.WithContext(ctx).
			Model(&CachedResultModel{}).
			Where("id = ?", model.ID).
			UpdateColumn("hit_count", gorm.Expr("hit_count + 1")).Error; err != nil {
			return nil, fmt.Errorf("failed to count cache hit: %w", err)
		}
		return &ports.CachedResult{
			Payload:    []byte(model.Payload),
			Hit:        true,
			ComputedAt: model.ComputedAt,
		}, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to read cache: %w", result.Error)
	}

	payload, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	fresh := &CachedResultModel{
		PlayerID:   playerID.Value(),
		CacheKey:   key,
		Payload:    string(payload),
		ComputedAt: now,
		ExpiresAt:  now.Add(ttl),
		HitCount:   0,
	}

	// An expired row for the same key may still exist; replace it in place
	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"payload", "computed_at", "expires_at", "hit_count",
		}),
	}).Create(fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to store cache entry: %w", err)
	}

	return &ports.CachedResult{
		Payload:    payload,
		Hit:        false,
		ComputedAt: now,
	}, nil
}

// InvalidateFor deletes the player's entries whose key starts with the given
// prefix, returning how many were dropped
func (c *GormResultCache) InvalidateFor(
	ctx context.Context,
	playerID shared.PlayerID,
	keyPrefix string,
) (int64, error) {
	result := c.db.WithContext(ctx).
		Where("player_id = ? AND cache_key LIKE ?", playerID.Value(), keyPrefix+"%").
		Delete(&CachedResultModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to invalidate cache entries: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteByPlayer removes every cached result for a player
func (c *GormResultCache) DeleteByPlayer(ctx context.Context, playerID shared.PlayerID) error {
	result := c.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Delete(&CachedResultModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete player cache entries: %w", result.Error)
	}

	return nil
}
