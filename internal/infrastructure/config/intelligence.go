package config

import "time"

// IntelligenceConfig holds the tuning knobs for the intelligence engine
type IntelligenceConfig struct {
	// Hex-encoded 32-byte AES key for memory payloads. Empty stores
	// payloads unencrypted (development only).
	EncryptionKey string `mapstructure:"encryption_key" validate:"omitempty,len=64,hexadecimal"`

	// Daily strength decay applied to memories
	MemoryDecayRate float64 `mapstructure:"memory_decay_rate" validate:"omitempty,gt=0,lt=1"`

	// Observations required before a pattern is derived for a ledger.
	// May not go below the recognizer's hard floor of 3.
	MinObservations int `mapstructure:"min_observations" validate:"omitempty,min=3"`

	// Heuristic population size held across generations
	PopulationSize int `mapstructure:"population_size" validate:"omitempty,min=2"`

	// How long cached predictions and route plans stay live
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// Observations within one TTL window that force cache invalidation
	CacheStaleThreshold int `mapstructure:"cache_stale_threshold" validate:"omitempty,min=1"`

	// Intelligence queries allowed per player per minute
	QueryRateLimit int `mapstructure:"query_rate_limit" validate:"omitempty,min=1"`
}
