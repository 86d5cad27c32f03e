package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/SscSPs/portfolio_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const holdingColumns = `account_id, symbol, name, shares, last_price, last_total, updated_at`

type PgxHoldingRepository struct {
	BaseRepository
}

func newPgxHoldingRepository(pool *pgxpool.Pool) *PgxHoldingRepository {
	return &PgxHoldingRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.HoldingRepositoryFacade = (*PgxHoldingRepository)(nil)

func (r *PgxHoldingRepository) FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	return findHolding(ctx, r.Pool, accountID, symbol)
}

// ListHoldingsByAccount returns the account's holdings ordered by symbol.
func (r *PgxHoldingRepository) ListHoldingsByAccount(ctx context.Context, accountID string) ([]domain.Holding, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+holdingColumns+` FROM holdings WHERE account_id = $1 ORDER BY symbol;`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for account %s: %w", accountID, err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		var m models.Holding
		if err := rows.Scan(&m.AccountID, &m.Symbol, &m.Name, &m.Shares, &m.LastPrice, &m.LastTotal, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding row for account %s: %w", accountID, err)
		}
		holdings = append(holdings, mapping.ToDomainHolding(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding rows for account %s: %w", accountID, err)
	}
	return holdings, nil
}

// UpdateHoldingQuoteCache touches only the display columns; share counts are never written here.
func (r *PgxHoldingRepository) UpdateHoldingQuoteCache(ctx context.Context, accountID, symbol string, price, total decimal.Decimal, now time.Time) error {
	query := `
		UPDATE holdings
		SET last_price = $3, last_total = $4, updated_at = $5
		WHERE account_id = $1 AND symbol = $2;
	`
	if _, err := r.Pool.Exec(ctx, query, accountID, symbol, price, total, now); err != nil {
		return fmt.Errorf("failed to update price cache for %s/%s: %w", accountID, symbol, err)
	}
	return nil
}

func findHolding(ctx context.Context, q querier, accountID, symbol string) (*domain.Holding, error) {
	var m models.Holding
	err := q.QueryRow(ctx, `SELECT `+holdingColumns+` FROM holdings WHERE account_id = $1 AND symbol = $2;`, accountID, symbol).
		Scan(&m.AccountID, &m.Symbol, &m.Name, &m.Shares, &m.LastPrice, &m.LastTotal, &m.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err, "failed to find holding %s/%s", accountID, symbol)
	}
	d := mapping.ToDomainHolding(m)
	return &d, nil
}

func (t *pgxLedgerTx) FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	return findHolding(ctx, t.tx, accountID, symbol)
}

func (t *pgxLedgerTx) SaveHolding(ctx context.Context, holding domain.Holding) error {
	m := mapping.ToModelHolding(holding)
	query := `
		INSERT INTO holdings (` + holdingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, symbol) DO UPDATE
		SET name = EXCLUDED.name, shares = EXCLUDED.shares, last_price = EXCLUDED.last_price,
		    last_total = EXCLUDED.last_total, updated_at = EXCLUDED.updated_at;
	`
	_, err := t.tx.Exec(ctx, query, m.AccountID, m.Symbol, m.Name, m.Shares, m.LastPrice, m.LastTotal, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save holding %s/%s: %w", m.AccountID, m.Symbol, err)
	}
	return nil
}

func (t *pgxLedgerTx) DeleteHolding(ctx context.Context, accountID, symbol string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM holdings WHERE account_id = $1 AND symbol = $2;`, accountID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete holding %s/%s: %w", accountID, symbol, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
