// Package sqlite stores the ledger in an embedded SQLite database (modernc.org/sqlite).
// Money is kept as TEXT decimal strings and timestamps as INTEGER unix nanoseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	DB *sql.DB
}

// SQLiteTransactionManager runs ledger units of work in one SQLite transaction.
// The connection must be opened with _txlock=immediate so the write lock is taken at BEGIN.
type SQLiteTransactionManager struct {
	BaseRepository
}

var _ portsrepo.TransactionManager = (*SQLiteTransactionManager)(nil)

func (m *SQLiteTransactionManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	if err := fn(ctx, &sqliteLedgerTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			middleware.GetLoggerFromCtx(ctx).Error("Rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// sqliteLedgerTx implements LedgerTx on an open transaction.
type sqliteLedgerTx struct {
	tx *sql.Tx
}

var _ portsrepo.LedgerTx = (*sqliteLedgerTx)(nil)

// NewRepositoryProvider wires every repository to db.
func NewRepositoryProvider(db *sql.DB) portsrepo.RepositoryProvider {
	base := BaseRepository{DB: db}
	return portsrepo.RepositoryProvider{
		AccountRepo: &SQLiteAccountRepository{base},
		HoldingRepo: &SQLiteHoldingRepository{base},
		HistoryRepo: &SQLiteHistoryRepository{base},
		TxManager:   &SQLiteTransactionManager{base},
		Close:       func() { _ = db.Close() },
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func toUnixNano(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullUnixNano(t sql.NullTime) sql.NullInt64 {
	if !t.Valid {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toUnixNano(t.Time), Valid: true}
}
