// Storm Bridge - Audio Processor MQTT Bridge
//
// This is the main entry point for the Storm Bridge application.
// Storm Bridge connects a networked AV processor to an MQTT broker:
//   - Maintains the processor session with indefinite reconnect
//   - Publishes entity state and health over MQTT
//   - Executes controller commands against the processor
//   - Serves a REST/WebSocket API for user interfaces
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/openav/stormbridge/migrations"

	"github.com/openav/stormbridge/internal/api"
	"github.com/openav/stormbridge/internal/bridge"
	"github.com/openav/stormbridge/internal/history"
	"github.com/openav/stormbridge/internal/infrastructure/config"
	"github.com/openav/stormbridge/internal/infrastructure/database"
	"github.com/openav/stormbridge/internal/infrastructure/influxdb"
	"github.com/openav/stormbridge/internal/infrastructure/logging"
	"github.com/openav/stormbridge/internal/infrastructure/mqtt"
	"github.com/openav/stormbridge/internal/processor"
	"github.com/openav/stormbridge/internal/processor/sim"
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

// bridgeStartRetryDelay is the pause before retrying bridge startup when
// the processor has not reported its identity yet.
const bridgeStartRetryDelay = 2 * time.Second

// State history retention. Entries older than the retention window are
// pruned once a day.
const (
	historyRetention     = 30 * 24 * time.Hour
	historyPruneInterval = 24 * time.Hour
)

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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Storm Bridge",
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

	// State history repository with daily retention pruning
	historyRepo := history.NewSQLiteRepository(db.DB)
	go pruneHistoryLoop(ctx, historyRepo, log)

	// Connect to MQTT broker with the bridge health topic as the session's
	// last will, so controllers see the bridge go offline after a crash
	willTopic, willPayload, err := bridge.LWT()
	if err != nil {
		return fmt.Errorf("building MQTT will: %w", err)
	}
	mqttClient, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{Topic: willTopic, Payload: willPayload})
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

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the processor coordinator
	coordinator, err := startCoordinator(cfg, log)
	if err != nil {
		return fmt.Errorf("starting processor coordinator: %w", err)
	}
	defer func() {
		log.Info("stopping processor coordinator")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if stopErr := coordinator.Stop(stopCtx); stopErr != nil {
			log.Error("error stopping coordinator", "error", stopErr)
		}
	}()

	// Start the MQTT bridge
	procBridge, err := startBridge(ctx, cfg, coordinator, mqttClient, historyRepo, influxClient, log)
	if err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		procBridge.Stop()
	}()

	// Start the HTTP API server
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Bridge:  procBridge,
		History: historyRepo,
		MQTT:    mqttClient,
		Version: version,
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
			log.Error("error closing API server", "error", closeErr)
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
	// 2. Bridge
	// 3. Coordinator
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("Storm Bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses STORMBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("STORMBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// pruneHistoryLoop deletes state history entries older than the retention
// window, once a day, until the context is cancelled.
func pruneHistoryLoop(ctx context.Context, repo *history.SQLiteRepository, log *logging.Logger) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.Prune(ctx, historyRetention)
			if err != nil {
				log.Warn("history prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("history pruned", "deleted", deleted)
			}
		}
	}
}

// startCoordinator builds the transport named in the configuration and
// starts the connection coordinator on it.
//
// The coordinator keeps retrying the processor connection in the
// background, so this returns as soon as the retry loop is running.
func startCoordinator(cfg *config.Config, log *logging.Logger) (*processor.Coordinator, error) {
	var transport processor.Transport
	switch cfg.Processor.Transport {
	case "sim":
		transport = sim.New(sim.Config{})
		log.Info("using simulated processor transport")
	default:
		return nil, fmt.Errorf("unsupported processor transport %q", cfg.Processor.Transport)
	}

	coordinator, err := processor.NewCoordinator(processor.Options{
		Transport:         transport,
		ReconnectInterval: cfg.GetReconnectInterval(),
		ReadyPollInterval: cfg.GetReadyPollInterval(),
		ReadyTimeout:      cfg.GetReadyTimeout(),
		Logger:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating coordinator: %w", err)
	}

	coordinator.Start()
	log.Info("processor coordinator started",
		"transport", cfg.Processor.Transport,
		"host", cfg.Processor.Host,
		"port", cfg.Processor.Port,
	)

	return coordinator, nil
}

// startBridge creates and starts the MQTT bridge, retrying while the
// processor has not reported its identity yet. The coordinator keeps
// reconnecting in the background, so readiness is a matter of time.
func startBridge(
	ctx context.Context,
	cfg *config.Config,
	coordinator *processor.Coordinator,
	mqttClient *mqtt.Client,
	historyRepo history.Repository,
	influxClient *influxdb.Client,
	log *logging.Logger,
) (*bridge.Bridge, error) {
	// Adapt the infrastructure MQTT client to the bridge interface
	mqttAdapter := &mqttBridgeAdapter{client: mqttClient, log: log}

	opts := bridge.Options{
		MQTTClient: mqttAdapter,
		Processor:  coordinator,
		History:    historyRepo,
		Version:    version,
		Logger:     log,
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	procBridge, err := bridge.New(opts)
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	for {
		err = procBridge.Start(ctx)
		if err == nil {
			log.Info("bridge started")
			return procBridge, nil
		}
		if !errors.Is(err, processor.ErrNotReady) {
			return nil, err
		}

		log.Warn("processor not ready, retrying bridge startup", "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bridgeStartRetryDelay):
		}
	}
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The primary difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic string, payload []byte) error
// - Bridge expects: func(topic string, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
	log    *logging.Logger
}

// Publish implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (bridge handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// Disconnect implements bridge.MQTTClient.
// No-op: MQTT client lifecycle is managed by run's defer chain.
func (a *mqttBridgeAdapter) Disconnect(_ uint) {
}
