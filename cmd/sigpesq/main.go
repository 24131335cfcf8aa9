// SIGPesq Core - research management service.
//
// This is the main entry point. It wires configuration, storage, the auth
// core, the optional MQTT and InfluxDB outputs and the HTTP API, then waits
// for a shutdown signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nerrad567/sigpesq-core/internal/api"
	"github.com/nerrad567/sigpesq-core/internal/audit"
	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/funding"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/config"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/logging"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/sigpesq-core/internal/participant"
	"github.com/nerrad567/sigpesq-core/internal/production"
	"github.com/nerrad567/sigpesq-core/internal/project"
	"github.com/nerrad567/sigpesq-core/internal/report"
	"github.com/nerrad567/sigpesq-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application lifecycle, separated from main so deferred
// teardown runs before the exit code is set.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting SIGPesq Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	participants := participant.NewSQLRepository(db)
	projects := project.NewSQLRepository(db)
	fundingRepo := funding.NewSQLRepository(db)
	productions := production.NewSQLRepository(db)
	auditRepo := audit.NewSQLRepository(db)

	codec, err := auth.NewCodec([]byte(cfg.Security.JWT.Secret), auth.WithDefaultTTL(cfg.GetAccessTokenTTL()))
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}
	hasher := auth.NewHasher(auth.HasherConfig{
		Memory:        cfg.Security.Password.Memory,
		Iterations:    cfg.Security.Password.Iterations,
		Parallelism:   cfg.Security.Password.Parallelism,
		MaxConcurrent: cfg.Security.Password.MaxConcurrent,
	})
	accounts := participant.NewAccountStore(participants)
	authService := auth.NewService(accounts, hasher, codec, log.Logger)

	if cfg.Security.SeedAdmin.Enabled {
		if _, seedErr := auth.SeedAdmin(ctx, accounts, hasher, auth.SeedAdminInput{
			Email: cfg.Security.SeedAdmin.Email,
			Name:  cfg.Security.SeedAdmin.Name,
		}, log.Logger); seedErr != nil {
			return fmt.Errorf("seeding admin: %w", seedErr)
		}
	}

	deps := api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Logger:       log,
		DB:           db,
		Auth:         authService,
		Participants: participants,
		Projects:     projects,
		Funding:      fundingRepo,
		Productions:  productions,
		Reports:      report.New(db, projects, fundingRepo),
		Audit:        auditRepo,
		Version:      version,
	}

	// MQTT domain events (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		mqttClient.SetLogger(log.Logger)
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
		deps.Events = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
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
		deps.Telemetry = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	// Registered last so it runs first: requests drain before the outputs
	// they write to are closed.
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: database: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// openDatabase opens the configured store and applies pending migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Driver:       cfg.Driver,
		Path:         cfg.Path,
		DSN:          cfg.DSN,
		WALMode:      cfg.WALMode,
		BusyTimeout:  cfg.BusyTimeout,
		MaxOpenConns: cfg.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "driver", db.Dialect())

	fsys, err := migrations.For(string(db.Dialect()))
	if err != nil {
		db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	if err := db.Migrate(ctx, fsys); err != nil {
		db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")
	return db, nil
}

// getConfigPath returns SIGPESQ_CONFIG when set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("SIGPESQ_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
