package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/SscSPs/portfolio_ledger/internal/utils/mapping"
	"github.com/shopspring/decimal"
)

const holdingColumns = `account_id, symbol, name, shares, last_price, last_total, updated_at`

type SQLiteHoldingRepository struct {
	BaseRepository
}

var _ portsrepo.HoldingRepositoryFacade = (*SQLiteHoldingRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (models.Holding, error) {
	var (
		m         models.Holding
		updatedAt int64
	)
	if err := row.Scan(&m.AccountID, &m.Symbol, &m.Name, &m.Shares, &m.LastPrice, &m.LastTotal, &updatedAt); err != nil {
		return m, err
	}
	m.UpdatedAt = fromUnixNano(updatedAt)
	return m, nil
}

func (r *SQLiteHoldingRepository) FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	return findHolding(ctx, r.DB, accountID, symbol)
}

func (r *SQLiteHoldingRepository) ListHoldingsByAccount(ctx context.Context, accountID string) ([]domain.Holding, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+holdingColumns+` FROM holdings WHERE account_id = ? ORDER BY symbol;`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for account %s: %w", accountID, err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		m, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding row for account %s: %w", accountID, err)
		}
		holdings = append(holdings, mapping.ToDomainHolding(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding rows for account %s: %w", accountID, err)
	}
	return holdings, nil
}

func (r *SQLiteHoldingRepository) UpdateHoldingQuoteCache(ctx context.Context, accountID, symbol string, price, total decimal.Decimal, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE holdings SET last_price = ?, last_total = ?, updated_at = ? WHERE account_id = ? AND symbol = ?;`,
		price.String(), total.String(), toUnixNano(now), accountID, symbol)
	if err != nil {
		return fmt.Errorf("failed to update price cache for %s/%s: %w", accountID, symbol, err)
	}
	return nil
}

func findHolding(ctx context.Context, q querier, accountID, symbol string) (*domain.Holding, error) {
	m, err := scanHolding(q.QueryRowContext(ctx, `SELECT `+holdingColumns+` FROM holdings WHERE account_id = ? AND symbol = ?;`, accountID, symbol))
	if err != nil {
		return nil, notFoundOr(err, "failed to find holding %s/%s", accountID, symbol)
	}
	d := mapping.ToDomainHolding(m)
	return &d, nil
}

func (t *sqliteLedgerTx) FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	return findHolding(ctx, t.tx, accountID, symbol)
}

func (t *sqliteLedgerTx) SaveHolding(ctx context.Context, holding domain.Holding) error {
	m := mapping.ToModelHolding(holding)
	query := `
		INSERT INTO holdings (` + holdingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, symbol) DO UPDATE
		SET name = excluded.name, shares = excluded.shares, last_price = excluded.last_price,
		    last_total = excluded.last_total, updated_at = excluded.updated_at;
	`
	_, err := t.tx.ExecContext(ctx, query, m.AccountID, m.Symbol, m.Name, m.Shares, m.LastPrice, m.LastTotal, toUnixNano(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save holding %s/%s: %w", m.AccountID, m.Symbol, err)
	}
	return nil
}

func (t *sqliteLedgerTx) DeleteHolding(ctx context.Context, accountID, symbol string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM holdings WHERE account_id = ? AND symbol = ?;`, accountID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete holding %s/%s: %w", accountID, symbol, err)
	}
	if err := requireRow(res); err != nil {
		if err == apperrors.ErrNotFound {
			return err
		}
		return fmt.Errorf("failed to delete holding %s/%s: %w", accountID, symbol, err)
	}
	return nil
}
