// servo-switch drives a two-servo power switch and reads a DHT11 sensor on
// a Raspberry Pi, exposing both over a small token-protected HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/servo-switch/migrations"

	"github.com/nerrad567/servo-switch/internal/api"
	"github.com/nerrad567/servo-switch/internal/audit"
	"github.com/nerrad567/servo-switch/internal/device"
	"github.com/nerrad567/servo-switch/internal/dht"
	"github.com/nerrad567/servo-switch/internal/infrastructure/config"
	"github.com/nerrad567/servo-switch/internal/infrastructure/database"
	"github.com/nerrad567/servo-switch/internal/infrastructure/influxdb"
	"github.com/nerrad567/servo-switch/internal/infrastructure/logging"
	"github.com/nerrad567/servo-switch/internal/infrastructure/mqtt"
	"github.com/nerrad567/servo-switch/internal/pigpio"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when SERVOSWITCH_CONFIG is unset and the file exists.
const defaultConfigPath = "configs/config.yaml"

// sourceStartup marks the forced power-off done at boot.
const sourceStartup = "startup"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and serves until ctx is cancelled.
// Deferred closes run in reverse order: API, InfluxDB, MQTT, database, pigpio.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting servo-switch",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)
	for _, w := range cfg.Warnings() {
		log.Warn("configuration warning", "warning", w.Error())
	}

	// Components reported by /api/health and checked once at startup.
	checks := make(map[string]api.HealthChecker)

	servos, sensor, daemon, err := openHardware(ctx, cfg.Hardware, log)
	if err != nil {
		return err
	}
	if daemon != nil {
		defer func() {
			log.Info("closing pigpiod connection")
			if closeErr := daemon.Close(); closeErr != nil {
				log.Error("error closing pigpiod connection", "error", closeErr)
			}
		}()
		checks["pigpio"] = daemon
	}

	ctrl, err := device.NewController(ctx, device.Config{
		MinPin: uint(cfg.Hardware.Servo.MinPin), //nolint:gosec // validated to [0, 31]
		MedPin: uint(cfg.Hardware.Servo.MedPin), //nolint:gosec // validated to [0, 31]
		Pulse: device.PulseRange{
			Min: uint(cfg.Hardware.Servo.PulseMin), //nolint:gosec // validated to [500, 2500]
			Max: uint(cfg.Hardware.Servo.PulseMax), //nolint:gosec // validated to [500, 2500]
		},
		SensorRetries: cfg.Hardware.Sensor.Retries,
	}, servos, sensor)
	if err != nil {
		return fmt.Errorf("initialising switch: %w", err)
	}
	ctrl.SetLogger(log.With("component", "device"))
	log.Info("switch initialised, power off",
		"min_pin", cfg.Hardware.Servo.MinPin,
		"med_pin", cfg.Hardware.Servo.MedPin,
	)

	// Optional sinks stay nil interfaces when disabled.
	var (
		auditRepo audit.Repository
		publisher api.StatePublisher
		telemetry api.TelemetryWriter
	)

	if cfg.Database.Enabled {
		db, dbErr := openDatabase(ctx, cfg.Database)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database ready", "path", cfg.Database.Path)
		checks["database"] = db

		repo := audit.NewSQLiteRepository(db.DB)
		if createErr := repo.Create(ctx, &audit.SwitchEvent{
			Action: audit.ActionReset,
			Value:  int(device.PowerOff),
			Source: sourceStartup,
		}); createErr != nil {
			log.Warn("recording startup reset failed", "error", createErr)
		}
		auditRepo = repo
	} else {
		log.Info("switch history disabled")
	}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			log.Warn("MQTT unavailable, state publishing disabled",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"error", mqttErr,
			)
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			mqttClient.SetLogger(log.With("component", "mqtt"))
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)
			if pubErr := mqttClient.PublishPower(int(device.PowerOff), sourceStartup); pubErr != nil {
				log.Warn("publishing startup power state failed", "error", pubErr)
			}
			publisher = mqttClient
			checks["mqtt"] = mqttClient
		}
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			log.Warn("InfluxDB unavailable, telemetry disabled", "url", cfg.InfluxDB.URL, "error", influxErr)
		} else {
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			log.Info("InfluxDB connected",
				"url", cfg.InfluxDB.URL,
				"org", cfg.InfluxDB.Org,
				"bucket", cfg.InfluxDB.Bucket,
			)
			influxClient.WritePowerState(int(device.PowerOff), sourceStartup)
			telemetry = influxClient
			checks["influxdb"] = influxClient
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	srv, err := api.New(api.Deps{
		Config:    cfg.API,
		AuthToken: cfg.Auth.Token,
		Logger:    log.With("component", "api"),
		Switch:    ctrl,
		MQTT:      publisher,
		Telemetry: telemetry,
		AuditRepo: auditRepo,
		Version:   version,

		HealthChecks: checks,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, srv, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed", "components", len(checks)+1)

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns SERVOSWITCH_CONFIG, else the default path if it
// exists, else "" to run on defaults and environment alone.
func getConfigPath() string {
	if path := os.Getenv("SERVOSWITCH_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// healthCheck verifies the API server and every enabled component.
func healthCheck(ctx context.Context, srv *api.Server, checks map[string]api.HealthChecker) error {
	if err := srv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	for name, check := range checks {
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// openHardware returns the servo driver and sensor, either backed by
// pigpiod or simulated. The pigpiod client is nil when simulating; the
// caller closes it.
func openHardware(ctx context.Context, cfg config.HardwareConfig, log *logging.Logger) (device.ServoDriver, device.EnvSensor, *pigpio.Client, error) {
	if cfg.Simulate {
		log.Warn("hardware simulation enabled, no servos will move")
		return device.NewSimulatedServos(), device.NewSimulatedSensor(21, 45), nil, nil
	}

	client, err := pigpio.Dial(ctx, pigpio.Config{
		Host:    cfg.Pigpio.Host,
		Port:    cfg.Pigpio.Port,
		Timeout: time.Duration(cfg.Pigpio.Timeout) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to pigpiod: %w", err)
	}

	if v, vErr := client.Version(ctx); vErr == nil {
		log.Info("pigpiod connected", "address", client.Addr(), "pigpio_version", v)
	}

	sensor := dht.New(client, dht.Config{
		Pin:           uint(cfg.Sensor.Pin), //nolint:gosec // validated to [0, 31]
		RetryInterval: time.Duration(cfg.Sensor.RetryInterval) * time.Millisecond,
	})
	log.Info("dht11 configured", "pin", sensor.Pin(), "retries", cfg.Sensor.Retries)

	return client, sensor, client, nil
}

// openDatabase opens the audit database and applies migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}
