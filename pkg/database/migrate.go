package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigratePostgres applies every pending up migration from dir in migrationsFS using a
// short-lived database/sql connection, so the pgx pool is never touched.
func MigratePostgres(databaseURL string, migrationsFS fs.FS, dir string, logger *slog.Logger) error {
	migrationDB, err := sql.Open("pgx", databaseURL)
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

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create postgres driver instance for migrations: %w", err)
	}
	return runMigrations(migrationsFS, dir, "postgres", driver, logger)
}

// MigrateSQLite applies pending migrations on db. db stays open for the caller.
func MigrateSQLite(db *sql.DB, migrationsFS fs.FS, dir string, logger *slog.Logger) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite driver instance for migrations: %w", err)
	}
	return runMigrations(migrationsFS, dir, "sqlite", driver, logger)
}

func runMigrations(migrationsFS fs.FS, dir, dbName string, driver database.Driver, logger *slog.Logger) error {
	logger.Info("Running database migrations...", slog.String("driver", dbName))
	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("could not open migrations in %s: %w", dir, err)
	}
	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	// Closing the sqlite driver would close the caller's *sql.DB, so only the source is released there.
	if dbName == "sqlite" {
		if err := source.Close(); err != nil {
			return fmt.Errorf("migration source error: %w", err)
		}
	} else {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			return fmt.Errorf("migration source error: %w", sourceErr)
		}
		if dbErr != nil {
			return fmt.Errorf("migration database error: %w", dbErr)
		}
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
