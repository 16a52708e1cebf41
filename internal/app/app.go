package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sundayezeilo/edgelink/internal/config"
	"github.com/sundayezeilo/edgelink/internal/server"
	"github.com/sundayezeilo/edgelink/internal/shortener"
	"github.com/sundayezeilo/edgelink/internal/store"
	"github.com/sundayezeilo/edgelink/internal/telemetry"
)

// App holds the application dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DBPool  *pgxpool.Pool
	Server  *server.Server
	Handler *shortener.Handler

	shutdownTracer telemetry.ShutdownFunc
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"version", cfg.Observability.ServiceVersion,
	)

	a := &App{Config: cfg, Logger: logger}

	if cfg.Observability.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
			ServiceName:    cfg.Observability.ServiceName,
			ServiceVersion: cfg.Observability.ServiceVersion,
			Endpoint:       cfg.Observability.OTelEndpoint,
			Insecure:       cfg.Observability.OTelInsecure,
			SampleRate:     cfg.Observability.TracingSampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
		a.shutdownTracer = shutdown
		logger.Info("tracing enabled", "endpoint", cfg.Observability.OTelEndpoint)
	}

	dbPool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DBPool = dbPool

	if err := prepareSchema(ctx, cfg, dbPool, logger); err != nil {
		a.Shutdown()
		return nil, err
	}

	// query engine -> repository -> resolver -> handler
	exec := store.NewExecutor(dbPool, &store.ExecutorConfig{Logger: logger})
	repo := shortener.NewRepository(exec, &shortener.RepositoryConfig{Logger: logger})
	a.Handler = shortener.NewHandler(shortener.HandlerConfig{
		Repository:         repo,
		Resolver:           shortener.NewResolver(repo, logger),
		Logger:             logger,
		StrictCreateStatus: cfg.App.StrictCreateStatus,
	})

	var opts []server.Option
	if cfg.Observability.MetricsEnabled {
		opts = append(opts, server.WithMetrics(telemetry.NewHTTPMetrics("edgelink")))
	}
	a.Server = server.New(cfg, logger, a.Handler, opts...)

	logger.Info("application initialized",
		"addr", cfg.Server.Addr(),
		"namespace", cfg.Database.Namespace,
		"strict_create_status", cfg.App.StrictCreateStatus,
	)

	return a, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown releases the database pool and flushes pending spans.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	var errs []error

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.shutdownTracer(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down tracer: %w", err))
		}
	}

	return errors.Join(errs...)
}

// loadEnv loads a .env file outside production. Missing files are ignored.
func loadEnv() {
	env := os.Getenv("APP_ENV")
	if env == "production" || env == "staging" {
		return
	}
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
		"namespace", cfg.Database.Namespace,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}

// prepareSchema creates the namespace and, when enabled, applies migrations.
func prepareSchema(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) error {
	if err := store.EnsureNamespace(ctx, pool, cfg.Database.Namespace); err != nil {
		return fmt.Errorf("failed to prepare namespace: %w", err)
	}

	if !cfg.Database.Migrate {
		logger.Info("skipping migrations", "namespace", cfg.Database.Namespace)
		return nil
	}

	m, err := store.NewMigrator(cfg.Database.MigrationURL(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("failed to close migrator", "error", err)
		}
	}()

	return m.Up()
}
