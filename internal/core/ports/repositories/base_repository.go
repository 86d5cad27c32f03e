package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerTx is the set of store operations available inside one unit of work.
// Every write made through it commits together or not at all.
type LedgerTx interface {
	// FindAccountForUpdate reads the account and holds a write lock on it until the unit ends.
	FindAccountForUpdate(ctx context.Context, accountID string) (*domain.Account, error)

	// UpdateCashBalance overwrites the account's cash balance.
	UpdateCashBalance(ctx context.Context, accountID string, cash decimal.Decimal, now time.Time) error

	// FindHolding returns apperrors.ErrNotFound when the account holds no shares of symbol.
	FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error)

	// SaveHolding inserts or replaces the holding row. Shares must be positive.
	SaveHolding(ctx context.Context, holding domain.Holding) error

	// DeleteHolding removes the holding row.
	DeleteHolding(ctx context.Context, accountID, symbol string) error

	// AppendHistory appends an entry and returns it with its assigned ID.
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) (*domain.HistoryEntry, error)
}

// TransactionManager runs a unit of work against the ledger stores.
type TransactionManager interface {
	// WithinTx runs fn in a single transaction. If fn returns an error every write is rolled back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
