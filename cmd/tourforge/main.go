// TourForge Core - Virtual Tour Generation Platform
//
// This is the main entry point for the TourForge Core application.
// TourForge turns a single floor-plan image into a navigable 360° tour:
//   - AI floor-plan analysis into a spatial room graph
//   - Per-room panorama generation with navigation hotspots
//   - Execution history, result caching, and live progress over WebSocket
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/tourforge-core/migrations"

	"github.com/nerrad567/tourforge-core/internal/api"
	"github.com/nerrad567/tourforge-core/internal/floorplan"
	"github.com/nerrad567/tourforge-core/internal/genservice"
	"github.com/nerrad567/tourforge-core/internal/infrastructure/cache"
	"github.com/nerrad567/tourforge-core/internal/infrastructure/config"
	"github.com/nerrad567/tourforge-core/internal/infrastructure/database"
	"github.com/nerrad567/tourforge-core/internal/infrastructure/logging"
	"github.com/nerrad567/tourforge-core/internal/infrastructure/telemetry"
	"github.com/nerrad567/tourforge-core/internal/pipeline"
	"github.com/nerrad567/tourforge-core/internal/tour"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting TourForge Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Result cache: Redis when configured, in-memory otherwise
	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		redisStore, redisErr := cache.NewRedisStore(ctx, cfg.Cache.Redis)
		if redisErr != nil {
			return fmt.Errorf("connecting to redis: %w", redisErr)
		}
		store = redisStore
		log.Info("redis cache connected", "addr", cfg.Cache.Redis.Addr)
	default:
		store = cache.NewMemoryStore()
		log.Info("using in-memory cache")
	}
	defer func() {
		log.Info("closing cache")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing cache", "error", closeErr)
		}
	}()

	// Connect to InfluxDB telemetry (optional)
	telemetryClient, err := telemetry.Connect(cfg.Telemetry)
	if err != nil && !errors.Is(err, telemetry.ErrDisabled) {
		return fmt.Errorf("connecting to telemetry: %w", err)
	}
	if telemetryClient != nil {
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		telemetryClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled")
	}

	// Generation service client plus the domain components built on it
	genClient := genservice.NewClient(cfg.GenService, log)
	builder := floorplan.NewBuilder(log)
	retryPolicy := genservice.PolicyFromConfig(cfg.GenService.Retry)
	generator := tour.NewGenerator(genClient, cfg.GenService.ViewpointModel, retryPolicy, log)
	repo := pipeline.NewSQLiteRepository(db.DB)

	// WebSocket hub is shared between the engine (progress broadcasts)
	// and the API server (client subscriptions)
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	engineDeps := pipeline.Deps{
		Jobs:        genClient,
		Generator:   generator,
		Builder:     builder,
		Repo:        repo,
		Cache:       store,
		IsCacheMiss: func(err error) bool { return errors.Is(err, cache.ErrMiss) },
		Hub:         hub,
		GenService:  cfg.GenService,
		Pipeline:    cfg.Pipeline,
		CacheTTL:    cfg.GetCacheTTL(),
		Logger:      log,
		BaseCtx:     ctx,
	}
	if telemetryClient != nil {
		engineDeps.Telemetry = telemetryClient
	}
	engine := pipeline.NewEngine(engineDeps)

	// Start the API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Engine:      engine,
		Repo:        repo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, server, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Telemetry (if enabled)
	// 3. Cache
	// 4. Database

	log.Info("TourForge Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TOURFORGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TOURFORGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - server: API server to check
//   - telemetryClient: Telemetry client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, server *api.Server, telemetryClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}
