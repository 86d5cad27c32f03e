// Package store opens the configured ledger backend and brings its schema up to date.
package store

import (
	"context"
	"fmt"
	"log/slog"

	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/SscSPs/portfolio_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/portfolio_ledger/internal/repositories/database/sqlite"
	"github.com/SscSPs/portfolio_ledger/internal/repositories/memory"
	"github.com/SscSPs/portfolio_ledger/migrations"
	"github.com/SscSPs/portfolio_ledger/pkg/database"
)

// Open connects to cfg.DatabaseDriver, applies pending migrations and returns the
// repositories. The caller owns the provider and must call its Close.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		logger.Warn("Using the in-memory store; all data is lost on exit.")
		return memory.NewRepositoryProvider(), nil

	case config.DriverPostgres:
		logger.Info("Running database migrations...", slog.String("driver", cfg.DatabaseDriver))
		if err := database.MigratePostgres(cfg.DatabaseURL, migrations.FS, migrations.PostgresDir, logger); err != nil {
			return portsrepo.RepositoryProvider{}, err
		}
		pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return portsrepo.RepositoryProvider{}, fmt.Errorf("failed to initialize database pool: %w", err)
		}
		return pgsql.NewRepositoryProvider(pool), nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return portsrepo.RepositoryProvider{}, err
		}
		logger.Info("Running database migrations...", slog.String("driver", cfg.DatabaseDriver), slog.String("path", cfg.SQLitePath))
		if err := database.MigrateSQLite(db, migrations.FS, migrations.SQLiteDir, logger); err != nil {
			_ = db.Close()
			return portsrepo.RepositoryProvider{}, err
		}
		return sqlite.NewRepositoryProvider(db), nil
	}
	return portsrepo.RepositoryProvider{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
}
