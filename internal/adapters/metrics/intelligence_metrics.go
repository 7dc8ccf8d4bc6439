package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// IntelligenceMetricsCollector polls the intelligence tables and exposes the
// engine's state per player: memory counts, ledger sizes, pattern coverage,
// population fitness, cache effectiveness, and audit outcomes.
type IntelligenceMetricsCollector struct {
	// Dependencies
	db *gorm.DB

	// Memory store metrics
	memoriesStored *prometheus.GaugeVec

	// Market ledger metrics
	observationsTotal *prometheus.GaugeVec
	patternsByKind    *prometheus.GaugeVec

	// Evolution metrics
	populationSize      *prometheus.GaugeVec
	populationBestFit   *prometheus.GaugeVec
	populationAvgFit    *prometheus.GaugeVec
	populationGen       *prometheus.GaugeVec

	// Exploration metrics
	portsVisited *prometheus.GaugeVec
	linksKnown   *prometheus.GaugeVec

	// Cache metrics
	cacheEntriesLive *prometheus.GaugeVec
	cacheHitsTotal   *prometheus.GaugeVec

	// Audit metrics
	auditEntriesByOutcome *prometheus.GaugeVec

	// Lifecycle
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	// Configuration
	pollInterval time.Duration
}

// NewIntelligenceMetricsCollector creates a new intelligence metrics collector
func NewIntelligenceMetricsCollector(db *gorm.DB) *IntelligenceMetricsCollector {
	return &IntelligenceMetricsCollector{
		db: db,

		memoriesStored: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "memories_stored",
				Help:      "Number of stored memory records per player and kind",
			},
			[]string{"player_id", "kind"},
		),

		observationsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "price_observations_total",
				Help:      "Size of the price observation ledger per player",
			},
			[]string{"player_id"},
		),

		patternsByKind: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "price_patterns",
				Help:      "Number of current price patterns per player and kind",
			},
			[]string{"player_id", "kind"},
		),

		populationSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "heuristic_population_size",
				Help:      "Current heuristic population size per player",
			},
			[]string{"player_id"},
		),

		populationBestFit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "heuristic_best_fitness",
				Help:      "Fitness of the best heuristic per player",
			},
			[]string{"player_id"},
		),

		populationAvgFit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "heuristic_avg_fitness",
				Help:      "Mean fitness across the player's population",
			},
			[]string{"player_id"},
		),

		populationGen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "heuristic_generation",
				Help:      "Highest generation reached per player",
			},
			[]string{"player_id"},
		),

		portsVisited: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ports_visited",
				Help:      "Distinct ports on the player's exploration map",
			},
			[]string{"player_id"},
		),

		linksKnown: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "travel_links_known",
				Help:      "Directed travel links on the player's map",
			},
			[]string{"player_id"},
		),

		cacheEntriesLive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_entries_live",
				Help:      "Unexpired cached query results per player",
			},
			[]string{"player_id"},
		),

		cacheHitsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Accumulated cache hits across live entries per player",
			},
			[]string{"player_id"},
		),

		auditEntriesByOutcome: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "audit_entries",
				Help:      "Audit log entries per player and outcome",
			},
			[]string{"player_id", "outcome"},
		),

		pollInterval: 60 * time.Second,
	}
}

// Register registers all intelligence metrics with the Prometheus registry
func (c *IntelligenceMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	metrics := []prometheus.Collector{
		c.memoriesStored,
		c.observationsTotal,
		c.patternsByKind,
		c.populationSize,
		c.populationBestFit,
		c.populationAvgFit,
		c.populationGen,
		c.portsVisited,
		c.linksKnown,
		c.cacheEntriesLive,
		c.cacheHitsTotal,
		c.auditEntriesByOutcome,
	}

	for _, metric := range metrics {
		if err := Registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

// Start begins the polling goroutine for aggregate metrics
func (c *IntelligenceMetricsCollector) Start(ctx context.Context) {
	c.ctx, c.cancelFunc = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.pollMetrics(c.pollInterval)
}

// Stop gracefully stops the collector
func (c *IntelligenceMetricsCollector) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

// pollMetrics polls intelligence data periodically
func (c *IntelligenceMetricsCollector) pollMetrics(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Do initial poll immediately
	c.updateAllMetrics()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.updateAllMetrics()
		}
	}
}

// updateAllMetrics updates all polling-based metrics
func (c *IntelligenceMetricsCollector) updateAllMetrics() {
	if c.db == nil {
		return
	}

	c.updateMemoryMetrics()
	c.updateMarketMetrics()
	c.updateEvolutionMetrics()
	c.updateExplorationMetrics()
	c.updateCacheMetrics()
	c.updateAuditMetrics()
}

func (c *IntelligenceMetricsCollector) updateMemoryMetrics() {
	var rows []struct {
		PlayerID string
		Kind     string
		Count    int64
	}

	err := c.db.Table("personal_memories").
		Select("player_id, kind, COUNT(*) as count").
		Group("player_id, kind").
		Scan(&rows).Error
	if err != nil {
		log.Printf("Failed to poll memory metrics: %v", err)
		return
	}

	for _, row := range rows {
		c.memoriesStored.WithLabelValues(row.PlayerID, row.Kind).Set(float64(row.Count))
	}
}

func (c *IntelligenceMetricsCollector) updateMarketMetrics() {
	var obsRows []struct {
		PlayerID string
		Count    int64
	}

	err := c.db.Table("price_observations").
		Select("player_id, COUNT(*) as count").
		Group("player_id").
		Scan(&obsRows).Error
	if err != nil {
		log.Printf("Failed to poll observation metrics: %v", err)
	} else {
		for _, row := range obsRows {
			c.observationsTotal.WithLabelValues(row.PlayerID).Set(float64(row.Count))
		}
	}

	var patternRows []struct {
		PlayerID string
		Kind     string
		Count    int64
	}

	err = c.db.Table("price_patterns").
		Select("player_id, kind, COUNT(*) as count").
		Group("player_id, kind").
		Scan(&patternRows).Error
	if err != nil {
		log.Printf("Failed to poll pattern metrics: %v", err)
		return
	}

	for _, row := range patternRows {
		c.patternsByKind.WithLabelValues(row.PlayerID, row.Kind).Set(float64(row.Count))
	}
}

func (c *IntelligenceMetricsCollector) updateEvolutionMetrics() {
	var rows []struct {
		PlayerID      string
		Count         int64
		BestFitness   float64
		AvgFitness    float64
		MaxGeneration int
	}

	err := c.db.Table("trading_heuristics").
		Select("player_id, COUNT(*) as count, MAX(fitness) as best_fitness, AVG(fitness) as avg_fitness, MAX(generation) as max_generation").
		Group("player_id").
		Scan(&rows).Error
	if err != nil {
		log.Printf("Failed to poll evolution metrics: %v", err)
		return
	}

	for _, row := range rows {
		c.populationSize.WithLabelValues(row.PlayerID).Set(float64(row.Count))
		c.populationBestFit.WithLabelValues(row.PlayerID).Set(row.BestFitness)
		c.populationAvgFit.WithLabelValues(row.PlayerID).Set(row.AvgFitness)
		c.populationGen.WithLabelValues(row.PlayerID).Set(float64(row.MaxGeneration))
	}
}

func (c *IntelligenceMetricsCollector) updateExplorationMetrics() {
	var visitRows []struct {
		PlayerID string
		Count    int64
	}

	err := c.db.Table("exploration_visits").
		Select("player_id, COUNT(*) as count").
		Group("player_id").
		Scan(&visitRows).Error
	if err != nil {
		log.Printf("Failed to poll visit metrics: %v", err)
	} else {
		for _, row := range visitRows {
			c.portsVisited.WithLabelValues(row.PlayerID).Set(float64(row.Count))
		}
	}

	var linkRows []struct {
		PlayerID string
		Count    int64
	}

	err = c.db.Table("travel_links").
		Select("player_id, COUNT(*) as count").
		Group("player_id").
		Scan(&linkRows).Error
	if err != nil {
		log.Printf("Failed to poll link metrics: %v", err)
		return
	}

	for _, row := range linkRows {
		c.linksKnown.WithLabelValues(row.PlayerID).Set(float64(row.Count))
	}
}

func (c *IntelligenceMetricsCollector) updateCacheMetrics() {
	var rows []struct {
		PlayerID string
		Count    int64
		Hits     int64
	}

	err := c.db.Table("cached_results").
		Select("player_id, COUNT(*) as count, COALESCE(SUM(hit_count), 0) as hits").
		Where("expires_at > ?", time.Now().UTC()).
		Group("player_id").
		Scan(&rows).Error
	if err != nil {
		log.Printf("Failed to poll cache metrics: %v", err)
		return
	}

	for _, row := range rows {
		c.cacheEntriesLive.WithLabelValues(row.PlayerID).Set(float64(row.Count))
		c.cacheHitsTotal.WithLabelValues(row.PlayerID).Set(float64(row.Hits))
	}
}

func (c *IntelligenceMetricsCollector) updateAuditMetrics() {
	var rows []struct {
		PlayerID string
		Outcome  string
		Count    int64
	}

	err := c.db.Table("security_audit_log").
		Select("player_id, outcome, COUNT(*) as count").
		Group("player_id, outcome").
		Scan(&rows).Error
	if err != nil {
		log.Printf("Failed to poll audit metrics: %v", err)
		return
	}

	for _, row := range rows {
		c.auditEntriesByOutcome.WithLabelValues(row.PlayerID, row.Outcome).Set(float64(row.Count))
	}
}
