// Region Core - local transit region store
//
// This is the main entry point for the Region Core daemon. It serves a
// URI-addressed SQLite store of transit regions and their coverage bounds
// over a REST and WebSocket API, keeps the store synchronised with an
// upstream regions catalog, and fans committed mutations out to optional
// MQTT and InfluxDB consumers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/opentransit/regioncore/migrations"

	"github.com/opentransit/regioncore/internal/api"
	"github.com/opentransit/regioncore/internal/bridge"
	"github.com/opentransit/regioncore/internal/bus"
	"github.com/opentransit/regioncore/internal/catalog"
	"github.com/opentransit/regioncore/internal/infrastructure/config"
	"github.com/opentransit/regioncore/internal/infrastructure/database"
	"github.com/opentransit/regioncore/internal/infrastructure/influxdb"
	"github.com/opentransit/regioncore/internal/infrastructure/logging"
	"github.com/opentransit/regioncore/internal/infrastructure/mqtt"
	"github.com/opentransit/regioncore/internal/prefs"
	"github.com/opentransit/regioncore/internal/region"
	"github.com/opentransit/regioncore/internal/store"
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
	log.Info("starting Region Core",
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

	// The fixed projections are part of the external contract; refuse to
	// start against a schema that no longer satisfies them.
	if checkErr := store.CheckProjections(ctx, db); checkErr != nil {
		return fmt.Errorf("verifying projections: %w", checkErr)
	}

	// Change event bus and resource store
	eventBus := bus.New()
	eventBus.SetLogger(log)
	resourceStore := store.New(db, eventBus)
	resourceStore.SetLogger(log)

	// Region registry over the store
	regionRepo := region.NewRepository(resourceStore)
	registry := region.NewRegistry(regionRepo)
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading region registry: %w", refreshErr)
	}
	log.Info("region registry initialised", "regions", registry.GetRegionCount())

	// Preferences
	prefsRepo := prefs.NewRepository(db)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var mqttBridge *bridge.MQTTBridge
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		// Fan change events out to MQTT topics
		mqttBridge = bridge.NewMQTTBridge(eventBus, mqttClient)
		mqttBridge.SetLogger(log)
		mqttBridge.Start()
		defer func() {
			log.Info("stopping MQTT bridge")
			mqttBridge.Stop()
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var influxBridge *bridge.InfluxBridge
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

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		// Archive change events as time series
		influxBridge = bridge.NewInfluxBridge(eventBus, influxClient)
		influxBridge.Start()
		defer func() {
			log.Info("stopping InfluxDB bridge")
			influxBridge.Stop()
		}()
	} else {
		log.Info("InfluxDB disabled")
	}

	// Periodic catalog sync (optional)
	var syncer *catalog.Syncer
	if cfg.Catalog.URL != "" {
		syncer = startCatalogSync(ctx, cfg, regionRepo, influxClient, log)
	} else {
		log.Info("catalog sync disabled")
	}

	// Start API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Registry: registry,
		Store:    resourceStore,
		Prefs:    prefsRepo,
		Syncer:   syncer,
		Bus:      eventBus,
		DB:       db,
		Version:  version,
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
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

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
	// 2. InfluxDB bridge and client (if enabled)
	// 3. MQTT bridge and client (if enabled)
	// 4. Database

	log.Info("Region Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses REGIONCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("REGIONCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startCatalogSync builds the catalog syncer and launches its periodic loop.
// Sync outcomes are archived to InfluxDB when a client is connected.
func startCatalogSync(ctx context.Context, cfg *config.Config, repo *region.Repository, influxClient *influxdb.Client, log *logging.Logger) *catalog.Syncer {
	timeout := time.Duration(cfg.Catalog.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := time.Duration(cfg.Catalog.RefreshInterval) * time.Minute

	loader := catalog.NewLoader(cfg.Catalog.URL, timeout)
	syncer := catalog.NewSyncer(loader, repo)
	syncer.SetLogger(log)

	// Archive each completed sync cycle
	if influxClient != nil {
		syncer.SetOnResult(func(res catalog.Result, took time.Duration) {
			influxClient.WriteCatalogSync(res.Fetched, res.Upserted, res.Skipped, took)
		})
	}

	go syncer.Run(ctx, interval)
	log.Info("catalog sync scheduled",
		"url", cfg.Catalog.URL,
		"interval_minutes", cfg.Catalog.RefreshInterval,
	)

	return syncer
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

	return nil
}
