// blinksync keeps a local mirror of a cloud video-security account.
//
// It polls the account snapshot, derives per-camera state (armed, motion,
// battery, thumbnails) and exposes it over a local HTTP/WebSocket API,
// retained MQTT topics, Prometheus metrics and InfluxDB samples. Intents
// (arm, disarm, motion sensor, snapshot requests) flow the other way and
// are journalled to SQLite.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/blink-sync-core/migrations"

	"github.com/nerrad567/blink-sync-core/internal/api"
	"github.com/nerrad567/blink-sync-core/internal/audit"
	"github.com/nerrad567/blink-sync-core/internal/cloud"
	"github.com/nerrad567/blink-sync-core/internal/command"
	"github.com/nerrad567/blink-sync-core/internal/device"
	"github.com/nerrad567/blink-sync-core/internal/fleet"
	"github.com/nerrad567/blink-sync-core/internal/infrastructure/config"
	"github.com/nerrad567/blink-sync-core/internal/infrastructure/database"
	"github.com/nerrad567/blink-sync-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/blink-sync-core/internal/infrastructure/logging"
	"github.com/nerrad567/blink-sync-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/blink-sync-core/internal/statepub"
	"github.com/nerrad567/blink-sync-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// journalRetention bounds the command journal; older rows are pruned at startup.
	journalRetention = 90 * 24 * time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("blinksync", flag.ContinueOnError)
	configPath := fs.String("config", getConfigPath(), "path to the YAML config file")
	issueToken := fs.String("issue-token", "", "print an API token for `subject` and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if *issueToken != "" {
		return printToken(stdout, cfg.Security.JWT, *issueToken)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting blinksync",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", *configPath,
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}

	journal := audit.NewSQLiteJournal(db.DB)
	if pruned, pruneErr := journal.Prune(ctx, journalRetention); pruneErr != nil {
		log.Warn("pruning command journal failed", "error", pruneErr)
	} else if pruned > 0 {
		log.Info("pruned command journal", "rows", pruned)
	}

	registry := device.NewRegistry(device.Settings{
		ArmedDelay:         cfg.Sync.ArmedDelay,
		MotionTriggerDecay: cfg.Sync.MotionTriggerDecay,
		ThumbnailTTL:       cfg.Sync.ThumbnailTTL,
	})
	registry.SetLogger(log)

	metrics := prometheus.NewRegistry()
	collector := telemetry.NewCollector(registry)
	metrics.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := cloud.OptionsFromConfig(cfg.Account, cfg.Cloud)
	opts.Logger = log
	opts.Observer = collector
	client := cloud.New(opts)
	if cfg.Account.ClientUUID == "" {
		log.Warn("no client_uuid configured; set account.client_uuid to avoid a PIN challenge on every start",
			"client_uuid", client.ClientUUID())
	}
	if loginErr := client.Login(ctx, false); loginErr != nil {
		return fmt.Errorf("logging in: %w", loginErr)
	}
	defer logout(client, log)

	coordinator := command.New(client, registry, command.Config{
		PollInterval: cfg.Sync.CommandPollInterval,
		Timeout:      cfg.Sync.CommandTimeout,
		Retry:        cloud.RetryPolicyFromConfig(cfg.Cloud.Retry),
	})
	coordinator.SetLogger(log)

	orchestrator := fleet.New(client, registry, coordinator, fleet.Config{
		PollInterval:  cfg.Sync.PollInterval,
		SnapshotTTL:   cfg.Sync.SnapshotTTL,
		CameraInfoTTL: cfg.Sync.CameraInfoTTL,
		MediaTTL:      cfg.Sync.MediaTTL,
	})
	orchestrator.SetLogger(log)
	orchestrator.SetJournal(journal)
	orchestrator.AddListener(collector.HandleEvent)

	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		orchestrator.AddListener(telemetry.NewRecorder(influxClient, registry).HandleEvent)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Fleet:    orchestrator,
		Journal:  journal,
		Metrics:  metrics,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	orchestrator.AddListener(server.HandleEvent)
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = startMQTT(ctx, cfg.MQTT, orchestrator, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, polling", "interval", cfg.Sync.PollInterval)
	if err := orchestrator.Run(ctx); err != nil {
		return fmt.Errorf("sync loop: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// startMQTT connects to the broker and attaches the state publisher. The
// publisher is stopped when ctx ends.
func startMQTT(ctx context.Context, cfg config.MQTTConfig, orchestrator *fleet.Orchestrator, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)

	publisher := statepub.New(client, orchestrator)
	publisher.SetLogger(log)
	orchestrator.AddListener(publisher.HandleEvent)
	if err := publisher.Start(ctx); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("starting state publisher: %w", err)
	}
	go func() {
		<-ctx.Done()
		publisher.Stop()
	}()
	return client, nil
}

// printToken mints a bearer token for the local API.
func printToken(w io.Writer, cfg config.JWTConfig, subject string) error {
	if cfg.Secret == "" {
		return fmt.Errorf("security.jwt.secret is not set; API auth is disabled")
	}
	token, err := api.IssueToken(cfg.Secret, subject, time.Duration(cfg.AccessTokenTTL)*time.Minute)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

func logout(client *cloud.Client, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Logout(ctx); err != nil {
		log.Warn("cloud logout failed", "error", err)
	}
}

// getConfigPath returns BLINKSYNC_CONFIG, or the default path.
func getConfigPath() string {
	if path := os.Getenv("BLINKSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the enabled infrastructure responds.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
