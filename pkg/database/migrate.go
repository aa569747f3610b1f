package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/oversight/migrations"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Direction selects which way NewMigrator's migrations are applied.
type Direction int

const (
	Up Direction = iota
	Down
)

// NewMigrator builds a migrate instance for db. driverName is "postgres" or "sqlite3".
// An empty dir uses the migrations embedded in the binary; otherwise dir is read
// from disk and must contain a sub-directory per driver.
func NewMigrator(db *sql.DB, driverName, dir string) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch driverName {
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case "sqlite3":
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("unsupported migration driver %q", driverName)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create %s driver instance for migrations: %w", driverName, err)
	}

	if dir != "" {
		m, err := migrate.NewWithDatabaseInstance("file://"+dir+"/"+driverName, driverName, driver)
		if err != nil {
			return nil, fmt.Errorf("could not create migrate instance: %w", err)
		}
		return m, nil
	}

	subdir := driverName
	if driverName == "sqlite3" {
		subdir = "sqlite"
	}
	src, err := iofs.New(migrations.FS, subdir)
	if err != nil {
		return nil, fmt.Errorf("could not open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}

// RunMigrations applies migrations in the given direction. Having nothing to do is
// not an error. The caller keeps ownership of db.
func RunMigrations(db *sql.DB, driverName, dir string, direction Direction, logger *slog.Logger) error {
	m, err := NewMigrator(db, driverName, dir)
	if err != nil {
		return err
	}

	if direction == Down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
