package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"portfolio_tracker/internal/classifier"
	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/database"
	"portfolio_tracker/internal/demo"
	"portfolio_tracker/internal/handlers"
	"portfolio_tracker/internal/ingest"
	"portfolio_tracker/internal/logger"
	"portfolio_tracker/internal/middleware"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/scheduler"
	"portfolio_tracker/internal/services"
)

// demoHistoryMonths is how much synthetic history a demo deployment gets.
const demoHistoryMonths = 12

// App holds the application dependencies.
type App struct {
	config    *config.Config
	db        *database.DB
	log       zerolog.Logger
	router    http.Handler
	scheduler *scheduler.Scheduler
}

func main() {
	// Load configuration
	cfg := config.New()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize database
	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Str("path", cfg.DBPath).Msg("Database migrations completed")

	ctx := context.Background()

	// Seed the known clients, and demo history when asked
	seeder := demo.NewSeeder(db, log)
	if err := seeder.SeedIfEmpty(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed clients")
	}
	if cfg.SeedDemo {
		if err := seeder.SeedHistory(ctx, demoHistoryMonths, time.Now()); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed demo history")
		}
	}

	app, err := newApp(ctx, cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // uploads ingest synchronously
		IdleTimeout:  60 * time.Second,
	}

	if app.scheduler != nil {
		app.scheduler.Start()
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// newApp wires repositories, services and handlers, restores the
// classification state and registers the inbox job.
func newApp(ctx context.Context, cfg *config.Config, db *database.DB, log zerolog.Logger) (*App, error) {
	// Classification state: override file first, then stored corrections
	registry := classifier.NewRegistry()
	loaded, err := registry.LoadOverrides(cfg.MappingsFile)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("categories", loaded.Categories).
		Int("tickers", loaded.Tickers).
		Int("sectors", loaded.Sectors).
		Msg("Mapping overrides loaded")

	// Create repositories
	snapshotRepo := repository.NewSnapshotRepository(db)
	detailRepo := repository.NewDetailRepository(db)
	clientRepo := repository.NewClientRepository(db)
	retryLogRepo := repository.NewRetryLogRepository(db)

	writer := repository.NewThrottledWriter(retryLogRepo, repository.WriterConfig{
		Interval:   cfg.WriteInterval,
		Backoff:    cfg.RetryBackoff,
		MaxRetries: cfg.MaxRetries,
	}, log)

	// Create services
	ingestService := services.NewIngestService(
		ingest.NewParser(registry, cfg.DefaultFXRate, log),
		registry,
		writer,
		services.IngestStores{
			Snapshots:  snapshotRepo,
			Details:    detailRepo,
			Clients:    clientRepo,
			Runs:       repository.NewIngestRunRepository(db),
			Mappings:   repository.NewMappingRepository(db),
			Categories: repository.NewCategoryRepository(db),
		},
		cfg.RateLimitCooldown,
		log,
	)
	if _, err := ingestService.LoadPersistedMappings(ctx); err != nil {
		return nil, err
	}

	allocationService := services.NewAllocationService(registry, clientRepo,
		repository.NewProfileRepository(db), repository.NewAllocationTargetRepository(db),
		detailRepo, snapshotRepo)

	if cfg.AdminTokenHash == "" {
		log.Warn().Msg("ADMIN_TOKEN_HASH not set, admin endpoints are disabled")
	}

	deps := handlers.NewDependencies().
		WithDB(db).
		WithLogger(log).
		WithDetailRepo(detailRepo).
		WithRetryLogRepo(retryLogRepo).
		WithRegistry(registry).
		WithAllocationService(allocationService).
		WithTrackerService(services.NewTrackerService(snapshotRepo)).
		WithIngestService(ingestService).
		WithAuditService(services.NewAuditService(db, log)).
		WithCurrencyService(services.NewCurrencyService(detailRepo, cfg.DefaultFXRate)).
		WithAdminGuard(middleware.NewAdminGuard(cfg.AdminTokenHash)).
		WithDirs(cfg.InboxDir, cfg.ProcessedDir)

	app := &App{
		config: cfg,
		db:     db,
		log:    log,
		router: handlers.NewRouter(deps),
	}

	if cfg.InboxSchedule != "" {
		app.scheduler = scheduler.New(log)
		job := scheduler.NewInboxJob(ingestService, cfg.InboxDir, cfg.ProcessedDir, log)
		if err := app.scheduler.AddJob(cfg.InboxSchedule, job); err != nil {
			return nil, err
		}
		log.Info().Str("schedule", cfg.InboxSchedule).Str("inbox", cfg.InboxDir).Msg("Inbox job scheduled")
	}

	return app, nil
}
