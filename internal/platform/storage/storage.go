// Package storage opens the configured database and hands out repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	portsrepo "github.com/SscSPs/oversight/internal/core/ports/repositories"
	"github.com/SscSPs/oversight/internal/platform/config"
	"github.com/SscSPs/oversight/internal/repositories/database/pgsql"
	"github.com/SscSPs/oversight/internal/repositories/database/sqlite"
	"github.com/SscSPs/oversight/pkg/database"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store bundles the repositories for the configured driver with the means to release them.
type Store struct {
	Repos portsrepo.RepositoryProvider
	close func()
}

// Close releases the underlying connections.
func (s *Store) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// Open connects to the database selected by cfg.DBDriver. When migrate is true
// pending up migrations are applied first.
func Open(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		if migrate {
			if err := Migrate(cfg, database.Up, logger); err != nil {
				return nil, err
			}
		}
		pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return &Store{
			Repos: pgsql.NewRepositoryProvider(pool),
			close: func() { database.ClosePgxPool(pool, logger) },
		}, nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.RunMigrations(db, config.DriverSQLite, cfg.MigrationsPath, database.Up, logger); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &Store{
			Repos: sqlite.NewRepositoryProvider(db),
			close: func() {
				if err := db.Close(); err != nil {
					logger.Error("Error closing SQLite database", slog.String("error", err.Error()))
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// Migrate applies migrations in direction against the configured database.
// Postgres migrations run over a dedicated database/sql connection through the
// pgx stdlib driver, closed once they finish.
func Migrate(cfg *config.Config, direction database.Direction, logger *slog.Logger) error {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database connection for migrations: %w", err)
		}
		defer func() {
			if cerr := migrationDB.Close(); cerr != nil {
				logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
			}
		}()
		if err := migrationDB.Ping(); err != nil {
			return fmt.Errorf("failed to ping database for migrations: %w", err)
		}
		return database.RunMigrations(migrationDB, config.DriverPostgres, cfg.MigrationsPath, direction, logger)

	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return database.RunMigrations(db, config.DriverSQLite, cfg.MigrationsPath, direction, logger)

	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
