// DeviceLab Controller
//
// This is the entry point for a DeviceLab node. A node keeps every Android
// device attached to it showing the lab's shared target URL, reports its
// own liveness to the remote state tree, and reboots itself when the
// target stops changing or the remote channel is lost.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/devicelab-core/internal/adb"
	"github.com/nerrad567/devicelab-core/internal/api"
	"github.com/nerrad567/devicelab-core/internal/controller"
	"github.com/nerrad567/devicelab-core/internal/infrastructure/config"
	"github.com/nerrad567/devicelab-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/devicelab-core/internal/infrastructure/logging"
	"github.com/nerrad567/devicelab-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/devicelab-core/internal/process"
	"github.com/nerrad567/devicelab-core/internal/remote"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	healthCheckTimeout = 5 * time.Second
)

func main() {
	// Cancel on Ctrl+C and SIGTERM for a graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default(version)
	log.Info("starting DeviceLab controller",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, cfg.Node.Name, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Remote State Channel. Authentication failure is fatal: there is no
	// other path by which this node could be observed or recovered.
	mqttClient, err := mqtt.Connect(cfg.Remote, cfg.Node.Name)
	if err != nil {
		return fmt.Errorf("connecting to remote: %w", err)
	}
	defer func() {
		log.Info("disconnecting from remote")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing remote", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	log.Info("remote connected",
		"endpoint", cfg.Remote.Endpoint,
		"client_id", cfg.Remote.ClientID,
		"prefix", cfg.Remote.Prefix,
	)

	store := remote.New(mqttClient)
	store.SetLogger(log.Component("remote"))

	// Telemetry is best-effort: the node runs without it.
	influxClient := connectInfluxDB(ctx, cfg, log)
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	// Device Monitor and Device Command Sink. An unreachable adb server is
	// handed to the controller as a failed monitor, which reboots the node.
	var tracker *adb.Tracker
	adbClient, err := adb.Connect(cfg.ADB)
	if err != nil {
		log.Error("adb server unavailable", "error", err)
		tracker = adb.FailedTracker(err)
	} else {
		tracker = adb.NewTracker(adbClient)
		log.Info("device monitor started", "adb", fmt.Sprintf("%s:%d", cfg.ADB.Host, cfg.ADB.Port))
	}
	tracker.SetLogger(log.Component("adb"))
	defer func() {
		log.Info("stopping device monitor")
		tracker.Close()
	}()

	launcher := process.NewLauncher()
	launcher.SetLogger(log.Component("process"))
	rebooter := process.NewRebooter(launcher, cfg.Recovery)
	rebooter.SetLogger(log.Component("recovery"))
	if cfg.Recovery.DryRun {
		log.Warn("recovery dry run enabled: reboots will only be logged")
	}

	ctrl, err := controller.New(controller.Config{
		Node:              cfg.Node.Name,
		Version:           version,
		MaxStale:          cfg.MaxStale(),
		CheckInterval:     cfg.Watchdog.CheckInterval,
		HeartbeatInterval: cfg.Heartbeat.Interval,
		HomeURL:           cfg.Navigate.HomeURL,
		Store:             store,
		Monitor:           tracker,
		Navigator:         adb.NewNavigator(adbClient, cfg.Navigate),
		Rebooter:          rebooter,
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}
	ctrl.SetLogger(log.Component("controller"))
	if influxClient != nil {
		ctrl.SetMetrics(influxClient)
	}

	// Node-local status API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log.Component("api"),
			Status:  ctrl,
			Remote:  mqttClient,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		ctrl.SetOnStatus(apiServer.PublishStatus)
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("status API disabled")
	}

	healthCtx, healthCancel := context.WithTimeout(ctx, healthCheckTimeout)
	err = healthCheck(healthCtx, mqttClient, influxClient, log)
	healthCancel()
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("starting controller: %w", err)
	}

	// Peer cleanup runs alongside the controller and never blocks it.
	if cfg.Remote.ObservePeers {
		observer := remote.NewObserver(mqttClient)
		observer.SetLogger(log.Component("observer"))
		if obsErr := observer.Start(); obsErr != nil {
			log.Warn("peer observer not started", "error", obsErr)
		} else {
			defer func() {
				if stopErr := observer.Stop(); stopErr != nil {
					log.Warn("error stopping peer observer", "error", stopErr)
				}
			}()
		}
	}

	log.Info("DeviceLab controller started",
		"max_stale", cfg.MaxStale(),
		"check_interval", cfg.Watchdog.CheckInterval,
		"heartbeat_interval", cfg.Heartbeat.Interval,
	)

	if err := ctrl.Run(ctx); err != nil {
		return fmt.Errorf("running controller: %w", err)
	}

	log.Info("shutdown signal received, stopping...")

	log.Info("DeviceLab controller stopped")
	return nil
}

// connectInfluxDB returns a telemetry client, or nil when InfluxDB is
// disabled or unreachable.
func connectInfluxDB(ctx context.Context, cfg *config.Config, log *logging.Logger) *influxdb.Client {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil
	}

	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Node.Name)
	if err != nil {
		log.Warn("InfluxDB unavailable, continuing without telemetry",
			"url", cfg.InfluxDB.URL,
			"error", err,
		)
		return nil
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}

// getConfigPath returns the configuration file path.
// Checks DEVICELAB_CONFIG environment variable first, then falls back to default.
func getConfigPath() string {
	if path := os.Getenv("DEVICELAB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections before the
// controller publishes anything.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: Remote channel client to check
//   - influxClient: InfluxDB client to check (nil if disabled)
//   - log: Receives the telemetry warning
//
// Returns:
//   - error: nil if the remote channel is healthy. An unhealthy InfluxDB
//     is only logged.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			log.Warn("InfluxDB health check failed, telemetry may be lost", "error", err)
		}
	}

	return nil
}
