// Ember Gateway - energy monitor telemetry gateway
//
// embergw sits between sensor node transports (serial links, the
// radio-to-serial bridge, TCP sockets, a 1-Wire temperature bus) and the
// local network: decoded readings go out over MQTT and optionally into
// InfluxDB, while listener settings arrive over MQTT and are persisted in
// SQLite for replay on the next start.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/emberwatt/ember-gateway/migrations"

	"github.com/emberwatt/ember-gateway/internal/gateway"
	"github.com/emberwatt/ember-gateway/internal/infrastructure/config"
	"github.com/emberwatt/ember-gateway/internal/infrastructure/database"
	"github.com/emberwatt/ember-gateway/internal/infrastructure/influxdb"
	"github.com/emberwatt/ember-gateway/internal/infrastructure/logging"
	"github.com/emberwatt/ember-gateway/internal/infrastructure/mqtt"
	"github.com/emberwatt/ember-gateway/internal/listener"
	"github.com/emberwatt/ember-gateway/internal/settings"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
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
	log.Info("starting Ember Gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "listeners", cfg.ListenerCount())

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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	store := settings.NewSQLiteStore(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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
	mqttClient.SetLogger(log)

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

	// Open the configured listener sources
	sources, err := buildSources(cfg, log)
	if err != nil {
		closeSources(sources, log)
		return fmt.Errorf("opening listeners: %w", err)
	}

	// Assemble the gateway
	var recorder gateway.Recorder
	if influxClient != nil {
		recorder = gateway.NewInfluxRecorder(influxClient)
	}
	gw, err := gateway.New(gateway.Config{
		Sources:   sources,
		Tick:      cfg.TickInterval(),
		Publisher: gateway.NewMQTTPublisher(mqttClient),
		Recorder:  recorder,
		Store:     store,
		Logger:    log,
	})
	if err != nil {
		closeSources(sources, log)
		return fmt.Errorf("assembling gateway: %w", err)
	}
	defer func() {
		log.Info("closing listeners")
		if closeErr := gw.Close(); closeErr != nil {
			log.Error("error closing listeners", "error", closeErr)
		}
	}()

	// Persisted settings reach the hardware before the first frame
	if replayErr := gw.ReplaySettings(ctx); replayErr != nil {
		return fmt.Errorf("replaying settings: %w", replayErr)
	}

	// Settings updates arrive on emberwatt/config/<listener>
	if subErr := subscribeSettings(ctx, mqttClient, gw, cfg, log); subErr != nil {
		return fmt.Errorf("subscribing to settings: %w", subErr)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, entering main loop")

	// Blocks until the signal context is cancelled
	if runErr := gw.Run(ctx); runErr != nil {
		return fmt.Errorf("gateway loop: %w", runErr)
	}

	log.Info("Ember Gateway stopped")
	return nil
}

// buildSources opens every listener declared in the configuration,
// applying declared initial settings. On failure the successfully opened
// sources are returned for cleanup alongside the error.
func buildSources(cfg *config.Config, log *logging.Logger) ([]listener.Source, error) {
	var sources []listener.Source

	for _, lc := range cfg.Listeners.Serial {
		s, err := listener.NewSerial(listener.SerialConfig{
			Name:   lc.Name,
			Device: lc.Device,
			Baud:   lc.Baud,
		}, log)
		if err != nil {
			return sources, fmt.Errorf("listener %s: %w", lc.Name, err)
		}
		sources = append(sources, s)
	}

	for _, lc := range cfg.Listeners.Radio {
		b, err := listener.NewRadioBridge(listener.RadioBridgeConfig{
			Name:   lc.Name,
			Device: lc.Device,
			Baud:   lc.Baud,
		}, log)
		if err != nil {
			return sources, fmt.Errorf("listener %s: %w", lc.Name, err)
		}
		b.Set(lc.Settings)
		sources = append(sources, b)
	}

	for _, lc := range cfg.Listeners.Socket {
		s, err := listener.NewSocket(listener.SocketConfig{
			Name: lc.Name,
			Port: lc.Port,
		}, log)
		if err != nil {
			return sources, fmt.Errorf("listener %s: %w", lc.Name, err)
		}
		sources = append(sources, s)
	}

	for _, lc := range cfg.Listeners.SensorBus {
		s, err := listener.NewSensorBus(listener.SensorBusConfig{
			Name:       lc.Name,
			Path:       lc.Path,
			Node:       lc.Node,
			Interval:   lc.Interval,
			Resolution: lc.Resolution,
		}, log)
		if err != nil {
			return sources, fmt.Errorf("listener %s: %w", lc.Name, err)
		}
		s.Set(lc.Settings)
		sources = append(sources, s)
	}

	for _, lc := range cfg.Listeners.Repeater {
		r, err := listener.NewRepeater(listener.RepeaterConfig{
			Name:   lc.Name,
			Device: lc.Device,
			Baud:   lc.Baud,
			Port:   lc.Port,
		}, log)
		if err != nil {
			return sources, fmt.Errorf("listener %s: %w", lc.Name, err)
		}
		r.Set(lc.Settings)
		sources = append(sources, r)
	}

	return sources, nil
}

// closeSources releases sources opened before a construction failure.
func closeSources(sources []listener.Source, log *logging.Logger) {
	for _, s := range sources {
		if err := s.Close(); err != nil {
			log.Warn("closing listener failed", "listener", s.Name(), "error", err)
		}
	}
}

// subscribeSettings routes emberwatt/config/<listener> messages into the
// gateway. Payloads are flat JSON objects of setting key/value strings.
func subscribeSettings(ctx context.Context, client *mqtt.Client, gw *gateway.Gateway, cfg *config.Config, log *logging.Logger) error {
	topic := mqtt.Topics{}.AllListenerConfigs()

	return client.Subscribe(topic, byte(cfg.MQTT.QoS), func(topic string, payload []byte) error {
		name, ok := mqtt.ListenerFromConfigTopic(topic)
		if !ok {
			log.Warn("settings message on unexpected topic", "topic", topic)
			return nil
		}

		var values map[string]string
		if err := json.Unmarshal(payload, &values); err != nil {
			log.Warn("invalid settings payload", "listener", name, "error", err)
			return nil
		}

		if err := gw.Apply(ctx, name, values); err != nil {
			if errors.Is(err, gateway.ErrUnknownListener) {
				log.Warn("settings for unknown listener", "listener", name)
				return nil
			}
			return err
		}
		return nil
	})
}

// getConfigPath returns the configuration file path.
// Uses EMBERWATT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("EMBERWATT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when disabled.
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
