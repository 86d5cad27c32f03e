package pgsql

import (
	"context"
	"fmt"
	"strconv"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/SscSPs/portfolio_ledger/internal/utils/mapping"
	"github.com/SscSPs/portfolio_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxHistoryRepository struct {
	BaseRepository
}

func newPgxHistoryRepository(pool *pgxpool.Pool) *PgxHistoryRepository {
	return &PgxHistoryRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.HistoryReader = (*PgxHistoryRepository)(nil)

// ListHistoryByAccount retrieves the account's history oldest first using keyset pagination on (created_at, id).
func (r *PgxHistoryRepository) ListHistoryByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.HistoryEntry, *string, error) {
	baseQuery := `
		SELECT id, account_id, action, symbol, shares, price, created_at
		FROM history
		WHERE account_id = $1
	`
	// (created_at, id) is unique and matches the index, so pages never skip or repeat rows.
	orderByClause := `ORDER BY created_at, id`
	args := []any{accountID}

	query := baseQuery
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, decodeErr)
		}
		query += ` AND (created_at, id) > ($2, $3)`
		args = append(args, lastCreatedAt, lastID)
	}
	query += " " + orderByClause
	if limit > 0 {
		// We fetch one extra item to determine if there's a next page.
		query += " LIMIT $" + strconv.Itoa(len(args)+1)
		args = append(args, limit+1)
	}

	rows, err := r.Pool.Query(ctx, query+";", args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query history for account %s: %w", accountID, err)
	}
	defer rows.Close()

	entries, err := scanHistoryRows(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("history for account %s: %w", accountID, err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.ID)
		return entries, &token, nil
	}
	return entries, nil, nil
}

func scanHistoryRows(rows pgx.Rows) ([]domain.HistoryEntry, error) {
	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var m models.HistoryEntry
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Action, &m.Symbol, &m.Shares, &m.Price, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		d, err := mapping.ToDomainHistoryEntry(m)
		if err != nil {
			return nil, err
		}
		entries = append(entries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	return entries, nil
}

// AppendHistory inserts the entry and returns it as stored, with its id and database-precision timestamp.
func (t *pgxLedgerTx) AppendHistory(ctx context.Context, entry domain.HistoryEntry) (*domain.HistoryEntry, error) {
	m := mapping.ToModelHistoryEntry(entry)
	query := `
		INSERT INTO history (account_id, action, symbol, shares, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at;
	`
	if err := t.tx.QueryRow(ctx, query, m.AccountID, m.Action, m.Symbol, m.Shares, m.Price, m.CreatedAt).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to append history for account %s: %w", m.AccountID, err)
	}
	d, err := mapping.ToDomainHistoryEntry(m)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
