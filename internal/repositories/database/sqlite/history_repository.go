package sqlite

import (
	"context"
	"fmt"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/SscSPs/portfolio_ledger/internal/utils/mapping"
	"github.com/SscSPs/portfolio_ledger/internal/utils/pagination"
)

type SQLiteHistoryRepository struct {
	BaseRepository
}

var _ portsrepo.HistoryReader = (*SQLiteHistoryRepository)(nil)

// ListHistoryByAccount pages oldest first on (created_at, id), same token format as the other stores.
func (r *SQLiteHistoryRepository) ListHistoryByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.HistoryEntry, *string, error) {
	query := `SELECT id, account_id, action, symbol, shares, price, created_at FROM history WHERE account_id = ?`
	args := []any{accountID}

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, decodeErr)
		}
		query += ` AND (created_at, id) > (?, ?)`
		args = append(args, toUnixNano(lastCreatedAt), lastID)
	}
	query += ` ORDER BY created_at, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit+1)
	}

	rows, err := r.DB.QueryContext(ctx, query+";", args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query history for account %s: %w", accountID, err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			m       models.HistoryEntry
			created int64
		)
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Action, &m.Symbol, &m.Shares, &m.Price, &created); err != nil {
			return nil, nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		m.CreatedAt = fromUnixNano(created)
		d, err := mapping.ToDomainHistoryEntry(m)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.ID)
		return entries, &token, nil
	}
	return entries, nil, nil
}

func (t *sqliteLedgerTx) AppendHistory(ctx context.Context, entry domain.HistoryEntry) (*domain.HistoryEntry, error) {
	m := mapping.ToModelHistoryEntry(entry)
	m.CreatedAt = m.CreatedAt.UTC()
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO history (account_id, action, symbol, shares, price, created_at) VALUES (?, ?, ?, ?, ?, ?);`,
		m.AccountID, m.Action, m.Symbol, m.Shares, m.Price.String(), toUnixNano(m.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to append history for account %s: %w", m.AccountID, err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read history id for account %s: %w", m.AccountID, err)
	}
	d, err := mapping.ToDomainHistoryEntry(m)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
