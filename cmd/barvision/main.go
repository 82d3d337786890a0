// BarVision Core - Schedule & Device Orchestration for Sports Bars
//
// This is the main entry point for the BarVision Core application.
// BarVision drives a venue's AV estate from a single box:
//   - Time-driven schedules (open, game day, close) in the venue's timezone
//   - Strictly sequential device command execution with per-step pacing
//   - Live game discovery with automatic channel allocation
//   - Usage-ranked channel presets for bar-top panels
//
// For architecture details, see: docs/architecture/system-overview.md
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/barvision/barvision-core/migrations"

	"github.com/barvision/barvision-core/internal/adapter"
	"github.com/barvision/barvision-core/internal/api"
	"github.com/barvision/barvision-core/internal/infrastructure/config"
	"github.com/barvision/barvision-core/internal/infrastructure/database"
	"github.com/barvision/barvision-core/internal/infrastructure/influxdb"
	"github.com/barvision/barvision-core/internal/infrastructure/logging"
	"github.com/barvision/barvision-core/internal/infrastructure/mqtt"
	"github.com/barvision/barvision-core/internal/preset"
	"github.com/barvision/barvision-core/internal/schedule"
	"github.com/barvision/barvision-core/internal/sequencer"
	"github.com/barvision/barvision-core/internal/sports"
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
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
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
	log.Info("starting BarVision Core",
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

	// Resolve the venue timezone. All schedule fire times are computed
	// in this location, never in server-local time.
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolving venue timezone: %w", err)
	}
	log.Info("venue timezone resolved", "timezone", cfg.Venue.Timezone)

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

	// Channel presets: repository plus the usage ranker that orders
	// them for panels and game allocation.
	presetRepo := preset.NewSQLiteRepository(db.DB)
	ranker := preset.NewRanker(presetRepo, log)

	// Initialise schedule registry
	scheduleRepo := schedule.NewSQLiteRepository(db.DB)
	scheduleRegistry := schedule.NewRegistry(scheduleRepo, loc)
	scheduleRegistry.SetLogger(log)

	if refreshErr := scheduleRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading schedule registry: %w", refreshErr)
	}
	log.Info("schedule registry initialised", "schedules", scheduleRegistry.Count())

	// Connect to MQTT broker (optional — lifecycle events only, the
	// engine runs fine without a broker)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		// Set up MQTT logging callbacks
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the device estate registry (matrix switcher, displays,
	// tuners). Device command failures surface per-step, not here.
	devices := adapter.NewRegistry(cfg.Devices, cfg.Matrix, log)
	defer func() {
		log.Info("closing device connections")
		if closeErr := devices.Close(); closeErr != nil {
			log.Error("error closing device connections", "error", closeErr)
		}
	}()
	log.Info("device registry initialised",
		"outputs", len(devices.Outputs()),
		"tuner_families", len(devices.TunerInputs()),
	)

	// Command sequencer: strictly sequential device execution. A nil
	// interface must stay nil, so only assign telemetry when InfluxDB
	// is actually connected.
	var stepTelemetry sequencer.Telemetry
	if influxClient != nil {
		stepTelemetry = influxClient
	}
	seq := sequencer.New(
		devices,
		time.Duration(cfg.Scheduler.PowerOnSettleMS)*time.Millisecond,
		log,
		stepTelemetry,
	)

	// Live game discovery (optional)
	var allocator *sports.Allocator
	if cfg.Sports.Enabled {
		sportsClient := sports.NewClient(cfg.Sports)
		allocator = sports.NewAllocator(sportsClient, ranker, cfg.Sports.PreferredProviders, log)
		log.Info("game discovery enabled",
			"leagues", cfg.Sports.Leagues,
			"preferred_providers", cfg.Sports.PreferredProviders,
		)
	} else {
		log.Info("game discovery disabled; schedules use static channels")
	}

	// WebSocket hub is shared between the engine (broadcasts) and the
	// API server (client connections), so it is created here.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Assemble the schedule engine
	engineDeps := schedule.Deps{
		Registry:  scheduleRegistry,
		Repo:      scheduleRepo,
		Sequencer: seq,
		Tuners:    devices,
		Presets:   presetRepo,
		Ranker:    ranker,
		Hub:       hub,
		Logger:    log,
	}
	if allocator != nil {
		engineDeps.Allocator = allocator
	}
	if mqttClient != nil {
		engineDeps.Events = mqttClient
	}
	if influxClient != nil {
		engineDeps.Telemetry = influxClient
	}

	engine := schedule.NewEngine(engineDeps, loc, cfg.GetTickInterval(), cfg.GetGameLookahead())
	go engine.Run(ctx)
	log.Info("schedule engine started",
		"tick_interval", cfg.GetTickInterval(),
		"game_lookahead", cfg.GetGameLookahead(),
	)

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Engine:      engine,
		Schedules:   scheduleRegistry,
		Presets:     presetRepo,
		Ranker:      ranker,
		Devices:     devices,
		MQTT:        mqttClient,
		DB:          db,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Device connections
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("BarVision Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BARVISION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BARVISION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if enabled)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Device estate health is advisory: an unreachable matrix is
	// reported per-step at execution time, not treated as fatal here.

	return nil
}
