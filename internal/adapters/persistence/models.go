package persistence

import (
	"time"
)

// PersonalMemoryModel represents the personal_memories table.
// Payloads are stored encrypted; the content hash enforces per-player
// deduplication at the schema level.
type PersonalMemoryModel struct {
	ID             string     `gorm:"column:id;primaryKey;not null"`
	PlayerID       string     `gorm:"column:player_id;not null;uniqueIndex:idx_memory_player_hash;index:idx_memory_player_kind"`
	Kind           string     `gorm:"column:kind;not null;index:idx_memory_player_kind"`
	Ciphertext     []byte     `gorm:"column:ciphertext;not null"`
	Importance     float64    `gorm:"column:importance;not null"`
	DecayRate      float64    `gorm:"column:decay_rate;not null"`
	ContentHash    string     `gorm:"column:content_hash;not null;uniqueIndex:idx_memory_player_hash"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null"`
	AccessCount    int        `gorm:"column:access_count;not null;default:0"`
	LastAccessedAt *time.Time `gorm:"column:last_accessed_at"`
}

func (PersonalMemoryModel) TableName() string {
	return "personal_memories"
}

// PriceObservationModel represents the price_observations table.
// Append-only: rows are inserted and deleted (purge), never updated.
type PriceObservationModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID    string    `gorm:"column:player_id;not null;index:idx_obs_ledger"`
	PortID      string    `gorm:"column:port_id;not null;index:idx_obs_ledger"`
	CommodityID string    `gorm:"column:commodity_id;not null;index:idx_obs_ledger"`
	BuyPrice    int       `gorm:"column:buy_price;not null"`
	SellPrice   int       `gorm:"column:sell_price;not null"`
	ObservedAt  time.Time `gorm:"column:observed_at;not null;index:idx_obs_ledger"`
}

func (PriceObservationModel) TableName() string {
	return "price_observations"
}

// PricePatternModel represents the price_patterns table.
// One row per (player, port, commodity); each refresh replaces it whole.
type PricePatternModel struct {
	PlayerID             string    `gorm:"column:player_id;primaryKey;not null"`
	PortID               string    `gorm:"column:port_id;primaryKey;not null"`
	CommodityID          string    `gorm:"column:commodity_id;primaryKey;not null"`
	Kind                 string    `gorm:"column:kind;not null"`
	Confidence           float64   `gorm:"column:confidence;not null"`
	WindowSize           int       `gorm:"column:window_size;not null"`
	Volatility           float64   `gorm:"column:volatility;not null"`
	PredictedValue       int       `gorm:"column:predicted_value;not null"`
	PredictionConfidence float64   `gorm:"column:prediction_confidence;not null"`
	ComputedAt           time.Time `gorm:"column:computed_at;not null"`
}

func (PricePatternModel) TableName() string {
	return "price_patterns"
}

// TradingHeuristicModel represents the trading_heuristics table.
// Genes are stored as JSON text so gene shape changes do not need schema
// migrations.
type TradingHeuristicModel struct {
	ID           string    `gorm:"column:id;primaryKey;not null"`
	PlayerID     string    `gorm:"column:player_id;not null;index:idx_heuristic_player"`
	Name         string    `gorm:"column:name;not null"`
	Generation   int       `gorm:"column:generation;not null"`
	ParentID     *string   `gorm:"column:parent_id"`
	GenesJSON    string    `gorm:"column:genes_json;type:text;not null"`
	SuccessRate  float64   `gorm:"column:success_rate;not null;default:0"`
	AvgProfit    float64   `gorm:"column:avg_profit;not null;default:0"`
	ProfitM2     float64   `gorm:"column:profit_m2;not null;default:0"`
	OutcomeCount int       `gorm:"column:outcome_count;not null;default:0"`
	Fitness      float64   `gorm:"column:fitness;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (TradingHeuristicModel) TableName() string {
	return "trading_heuristics"
}

// ExplorationVisitModel represents the exploration_visits table
type ExplorationVisitModel struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID       string    `gorm:"column:player_id;not null;uniqueIndex:idx_visit_player_port"`
	PortID         string    `gorm:"column:port_id;not null;uniqueIndex:idx_visit_player_port"`
	SectorID       string    `gorm:"column:sector_id;not null"`
	PortClass      string    `gorm:"column:port_class"`
	FirstVisitedAt time.Time `gorm:"column:first_visited_at;not null"`
	LastVisitedAt  time.Time `gorm:"column:last_visited_at;not null"`
	VisitCount     int       `gorm:"column:visit_count;not null;default:1"`
}

func (ExplorationVisitModel) TableName() string {
	return "exploration_visits"
}

// TravelLinkModel represents the travel_links table. Links are directed;
// the reverse direction is a separate row.
type TravelLinkModel struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID        string    `gorm:"column:player_id;not null;uniqueIndex:idx_link_player_route"`
	FromPortID      string    `gorm:"column:from_port_id;not null;uniqueIndex:idx_link_player_route"`
	ToPortID        string    `gorm:"column:to_port_id;not null;uniqueIndex:idx_link_player_route"`
	FirstTraveledAt time.Time `gorm:"column:first_traveled_at;not null"`
	TravelCount     int       `gorm:"column:travel_count;not null;default:1"`
}

func (TravelLinkModel) TableName() string {
	return "travel_links"
}

// CachedResultModel represents the cached_results table. Entries are never
// updated in place except for the hit counter; a recompute inserts a fresh
// row after deleting the expired one.
type CachedResultModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID   string    `gorm:"column:player_id;not null;uniqueIndex:idx_cache_player_key"`
	CacheKey   string    `gorm:"column:cache_key;not null;uniqueIndex:idx_cache_player_key"`
	Payload    string    `gorm:"column:payload;type:text;not null"`
	ComputedAt time.Time `gorm:"column:computed_at;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index"`
	HitCount   int       `gorm:"column:hit_count;not null;default:0"`
}

func (CachedResultModel) TableName() string {
	return "cached_results"
}

// SecurityAuditModel represents the security_audit_log table. IDs come from
// a process-wide snowflake node so entries stay totally ordered even when
// several land in the same millisecond. Rows are never deleted.
type SecurityAuditModel struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	PlayerID     string    `gorm:"column:player_id;not null;index:idx_audit_player_time"`
	Action       string    `gorm:"column:action;not null;index:idx_audit_action"`
	Resource     string    `gorm:"column:resource"`
	Outcome      string    `gorm:"column:outcome;not null"`
	Detail       string    `gorm:"column:detail;type:text"`
	AnomalyScore float64   `gorm:"column:anomaly_score;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index:idx_audit_player_time"`
}

func (SecurityAuditModel) TableName() string {
	return "security_audit_log"
}
