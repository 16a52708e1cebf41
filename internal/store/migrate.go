package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// execer is the subset of *pgxpool.Pool needed to bootstrap a namespace.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureNamespace creates the schema that holds the link table if it does not exist.
func EnsureNamespace(ctx context.Context, db execer, namespace string) error {
	if namespace == "" {
		return errors.New("namespace cannot be empty")
	}
	stmt := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{namespace}.Sanitize()
	if _, err := db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create namespace %q: %w", namespace, err)
	}
	return nil
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	migrate *migrate.Migrate
	source  source.Driver
	logger  *slog.Logger
}

// NewMigrator creates a Migrator for the database at databaseURL (pgx5:// scheme).
func NewMigrator(databaseURL string, logger *slog.Logger) (*Migrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{migrate: m, source: src, logger: logger}, nil
}

// Up applies all pending migrations. A dirty database (a migration that failed part
// way) is reset to the last version that applied cleanly and the failed migration is
// run again, so it either succeeds now or Up keeps failing.
// Each migration file runs as one multi-statement query, which PostgreSQL applies
// atomically.
func (m *Migrator) Up() error {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	if dirty {
		target, err := m.lastClean(version)
		if err != nil {
			return err
		}
		m.logger.Warn("database is dirty, retrying failed migration",
			"dirty_version", version,
			"reset_to", target,
		)
		if err := m.migrate.Force(target); err != nil {
			return fmt.Errorf("failed to force version %d: %w", target, err)
		}
	}

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("database schema is up to date", "version", version)
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	m.logger.Info("database migrated", "version", newVersion)
	return nil
}

// lastClean returns the version preceding dirty, or database.NilVersion when dirty is
// the first migration.
func (m *Migrator) lastClean(dirty uint) (int, error) {
	prev, err := m.source.Prev(dirty)
	if errors.Is(err, fs.ErrNotExist) {
		return database.NilVersion, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find version before %d: %w", dirty, err)
	}
	return int(prev), nil
}

// Version returns the current schema version and whether the last migration failed.
func (m *Migrator) Version() (uint, bool, error) {
	return m.migrate.Version()
}

// Close releases the migration source and database handle.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close migration database: %w", dbErr)
	}
	return nil
}
