package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sectorwars/aria-core/internal/adapters/crypto"
	"github.com/sectorwars/aria-core/internal/adapters/httpapi"
	"github.com/sectorwars/aria-core/internal/adapters/metrics"
	"github.com/sectorwars/aria-core/internal/adapters/persistence"
	"github.com/sectorwars/aria-core/internal/application/auth"
	"github.com/sectorwars/aria-core/internal/application/common"
	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/intelligence/queries"
	"github.com/sectorwars/aria-core/internal/application/intelligence/services"
	"github.com/sectorwars/aria-core/internal/application/logging"
	"github.com/sectorwars/aria-core/internal/application/mediator"
	"github.com/sectorwars/aria-core/internal/domain/evolution"
	"github.com/sectorwars/aria-core/internal/domain/intel"
	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/routing"
	"github.com/sectorwars/aria-core/internal/infrastructure/config"
	"github.com/sectorwars/aria-core/internal/infrastructure/database"
	"github.com/sectorwars/aria-core/internal/infrastructure/pidfile"

	"github.com/bwmarrin/snowflake"
)

func main() {
	forceFlag := flag.Bool("force", false, "Kill any existing daemon and start a new one")
	flag.Parse()

	fmt.Println("ARIA Daemon v0.1.0")
	fmt.Println("==================")

	fmt.Println("Loading configuration...")
	cfg := config.MustLoadConfig("") // Empty string = search default paths

	fmt.Printf("Acquiring PID file lock: %s\n", cfg.Daemon.PIDFile)
	lock := pidfile.New(cfg.Daemon.PIDFile)

	if err := lock.Acquire(); err != nil {
		if !*forceFlag {
			log.Fatalf("Failed to acquire PID file lock: %v\nUse --force to kill the existing daemon", err)
		}

		fmt.Println("Force mode enabled - attempting to kill existing daemon...")
		if killErr := lock.KillExisting(); killErr != nil {
			log.Fatalf("Failed to kill existing daemon: %v", killErr)
		}
		if err := lock.Acquire(); err != nil {
			log.Fatalf("Failed to acquire PID file lock after killing existing daemon: %v", err)
		}
	}

	defer func() {
		if err := lock.Release(); err != nil {
			log.Printf("Warning: failed to release PID file: %v", err)
		}
	}()
	fmt.Println("PID file lock acquired")

	if err := run(cfg); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(cfg *config.Config) error {
	// 1. Setup database connection
	fmt.Printf("Connecting to %s database...\n", cfg.Database.Type)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	fmt.Println("Database connected")

	// 2. Memory payload codec
	var codec memory.PayloadCodec
	if cfg.Intelligence.EncryptionKey != "" {
		codec, err = crypto.NewAESCodec(cfg.Intelligence.EncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to initialize payload encryption: %w", err)
		}
		fmt.Println("Memory payloads encrypted (AES-256-GCM)")
	} else {
		codec = crypto.NewPlainCodec()
		fmt.Println("WARNING: no encryption key configured, memory payloads stored in plaintext")
	}

	// 3. Audit log sequencer
	node, err := snowflake.NewNode(1)
	if err != nil {
		return fmt.Errorf("failed to create snowflake node: %w", err)
	}

	// 4. Repositories
	memoryRepo := persistence.NewGormMemoryRepository(db)
	observationRepo := persistence.NewGormObservationRepository(db)
	patternRepo := persistence.NewGormPatternRepository(db)
	heuristicRepo := persistence.NewGormHeuristicRepository(db)
	visitRepo := persistence.NewGormVisitRepository(db)
	linkRepo := persistence.NewGormLinkRepository(db)
	auditRepo := persistence.NewGormAuditRepository(db, node)
	cache := persistence.NewGormResultCache(db, nil) // nil = use RealClock in production

	// 5. Shared application services
	audit := services.NewAuditTrail(auditRepo, nil)
	memoryWriter := services.NewMemoryWriter(memoryRepo, audit, codec, nil, cfg.Intelligence.MemoryDecayRate)
	locks := common.NewPlayerLocks()
	limiter := common.NewQueryRateLimiter(cfg.Intelligence.QueryRateLimit)

	// 6. Domain services
	recognizer := intel.NewRecognizer(cfg.Intelligence.MinObservations)
	evolver := evolution.NewEvolver(cfg.Intelligence.PopulationSize)
	planner := routing.NewPlanner()

	// 7. Mediator (CQRS dispatcher) and middleware. Scope enforcement runs
	// outermost so nothing is rate-counted or measured before it is allowed.
	med := mediator.NewMediator()
	med.RegisterMiddleware(auth.PlayerScopeMiddleware(auditRepo, nil))
	med.RegisterMiddleware(common.RateLimitMiddleware(limiter, auditRepo, nil))

	var commandMetrics *metrics.CommandMetricsCollector
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		commandMetrics = metrics.NewCommandMetricsCollector()
		if err := commandMetrics.Register(); err != nil {
			return fmt.Errorf("failed to register command metrics: %w", err)
		}
		med.RegisterMiddleware(metrics.PrometheusMiddleware(commandMetrics))
	}

	// 8. Register command handlers
	if err := mediator.RegisterHandler[*commands.RecordVisitCommand](med,
		commands.NewRecordVisitHandler(visitRepo, linkRepo, memoryWriter, locks, nil)); err != nil {
		return fmt.Errorf("failed to register RecordVisit handler: %w", err)
	}

	if err := mediator.RegisterHandler[*commands.RecordObservationCommand](med,
		commands.NewRecordObservationHandler(observationRepo, patternRepo, recognizer, memoryWriter, cache,
			locks, nil, cfg.Intelligence.CacheTTL, int64(cfg.Intelligence.CacheStaleThreshold))); err != nil {
		return fmt.Errorf("failed to register RecordObservation handler: %w", err)
	}

	if err := mediator.RegisterHandler[*commands.RecordOutcomeCommand](med,
		commands.NewRecordOutcomeHandler(heuristicRepo, memoryWriter, locks, nil)); err != nil {
		return fmt.Errorf("failed to register RecordOutcome handler: %w", err)
	}

	if err := mediator.RegisterHandler[*commands.SeedPopulationCommand](med,
		commands.NewSeedPopulationHandler(heuristicRepo, evolver, audit, locks, nil)); err != nil {
		return fmt.Errorf("failed to register SeedPopulation handler: %w", err)
	}

	if err := mediator.RegisterHandler[*commands.EvolvePatternsCommand](med,
		commands.NewEvolvePatternsHandler(heuristicRepo, evolver, audit, locks, nil)); err != nil {
		return fmt.Errorf("failed to register EvolvePatterns handler: %w", err)
	}

	if err := mediator.RegisterHandler[*commands.ForgetMemoryCommand](med,
		commands.NewForgetMemoryHandler(memoryRepo, audit, locks)); err != nil {
		return fmt.Errorf("failed to register ForgetMemory handler: %w", err)
	}

	if err := mediator.RegisterHandler[*commands.PurgePlayerDataCommand](med,
		commands.NewPurgePlayerDataHandler(memoryRepo, observationRepo, patternRepo, heuristicRepo,
			visitRepo, linkRepo, cache, audit, locks)); err != nil {
		return fmt.Errorf("failed to register PurgePlayerData handler: %w", err)
	}

	// 9. Register query handlers
	if err := mediator.RegisterHandler[*queries.GetPredictionQuery](med,
		queries.NewGetPredictionHandler(patternRepo, cache, cfg.Intelligence.CacheTTL)); err != nil {
		return fmt.Errorf("failed to register GetPrediction handler: %w", err)
	}

	if err := mediator.RegisterHandler[*queries.GetRecommendedHeuristicsQuery](med,
		queries.NewGetRecommendedHeuristicsHandler(heuristicRepo)); err != nil {
		return fmt.Errorf("failed to register GetRecommendedHeuristics handler: %w", err)
	}

	if err := mediator.RegisterHandler[*queries.GetRoutePlanQuery](med,
		queries.NewGetRoutePlanHandler(visitRepo, linkRepo, patternRepo, heuristicRepo, planner,
			cache, cfg.Intelligence.CacheTTL)); err != nil {
		return fmt.Errorf("failed to register GetRoutePlan handler: %w", err)
	}

	if err := mediator.RegisterHandler[*queries.GetMemoriesQuery](med,
		queries.NewGetMemoriesHandler(memoryRepo, codec, audit, nil)); err != nil {
		return fmt.Errorf("failed to register GetMemories handler: %w", err)
	}

	if err := mediator.RegisterHandler[*queries.GetExplorationSummaryQuery](med,
		queries.NewGetExplorationSummaryHandler(visitRepo, linkRepo)); err != nil {
		return fmt.Errorf("failed to register GetExplorationSummary handler: %w", err)
	}

	if err := mediator.RegisterHandler[*queries.GetMarketHistoryQuery](med,
		queries.NewGetMarketHistoryHandler(observationRepo, nil)); err != nil {
		return fmt.Errorf("failed to register GetMarketHistory handler: %w", err)
	}

	// 10. Serve
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(&cfg.Logging)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		intelligenceMetrics := metrics.NewIntelligenceMetricsCollector(db)
		if err := intelligenceMetrics.Register(); err != nil {
			return fmt.Errorf("failed to register intelligence metrics: %w", err)
		}
		intelligenceMetrics.Start(ctx)
		defer intelligenceMetrics.Stop()

		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port),
			Handler: mux,
		}

		go func() {
			fmt.Printf("Metrics available at http://%s%s\n", metricsServer.Addr, cfg.Metrics.Path)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	apiServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpapi.NewRouter(med, db, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("\n✓ Daemon listening on http://%s\n", apiServer.Addr)
		fmt.Println("Press Ctrl+C to stop")
		serverErr <- apiServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		fmt.Println("\nShutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Daemon.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: failed to shut down metrics server: %v", err)
		}
	}

	fmt.Println("Daemon stopped")
	return nil
}

func newLogger(cfg *config.LoggingConfig) logging.Logger {
	out := os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}
	return logging.NewStdLogger(log.New(out, "", log.LstdFlags|log.LUTC))
}
