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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_id, username, password_hash, google_subject, cash_balance, opening_balance,
	refresh_token_hash, refresh_token_expiry_time, created_at, last_updated_at`

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.AccountID,
		m.Username,
		m.PasswordHash,
		m.GoogleSubject,
		m.CashBalance,
		m.OpeningBalance,
		m.RefreshTokenHash,
		m.RefreshTokenExpiryTime,
		m.CreatedAt,
		m.LastUpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %s or username %q already exists", apperrors.ErrDuplicate, m.AccountID, m.Username)
		}
		return fmt.Errorf("failed to save account %s: %w", m.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return findAccount(ctx, r.Pool, `SELECT `+accountColumns+` FROM accounts WHERE account_id = $1;`, accountID)
}

func (r *PgxAccountRepository) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return findAccount(ctx, r.Pool, `SELECT `+accountColumns+` FROM accounts WHERE username = $1;`, username)
}

func (r *PgxAccountRepository) FindAccountByGoogleSubject(ctx context.Context, subject string) (*domain.Account, error) {
	return findAccount(ctx, r.Pool, `SELECT `+accountColumns+` FROM accounts WHERE google_subject = $1;`, subject)
}

// UpdateRefreshToken stores the refresh token hash; an empty hash clears it.
func (r *PgxAccountRepository) UpdateRefreshToken(ctx context.Context, accountID string, tokenHash string, expiresAt *time.Time, now time.Time) error {
	if tokenHash == "" {
		expiresAt = nil
	}
	query := `
		UPDATE accounts
		SET refresh_token_hash = $2, refresh_token_expiry_time = $3, last_updated_at = $4
		WHERE account_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, accountID, nullableString(tokenHash), mapping.NullTimePtr(expiresAt), now)
	if err != nil {
		return fmt.Errorf("failed to update refresh token for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func findAccount(ctx context.Context, q querier, query string, arg any) (*domain.Account, error) {
	var m models.Account
	err := q.QueryRow(ctx, query, arg).Scan(
		&m.AccountID,
		&m.Username,
		&m.PasswordHash,
		&m.GoogleSubject,
		&m.CashBalance,
		&m.OpeningBalance,
		&m.RefreshTokenHash,
		&m.RefreshTokenExpiryTime,
		&m.CreatedAt,
		&m.LastUpdatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "failed to find account %v", arg)
	}
	d := mapping.ToDomainAccount(m)
	return &d, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// pgxLedgerTx implements LedgerTx on an open transaction.
type pgxLedgerTx struct {
	tx pgx.Tx
}

var _ portsrepo.LedgerTx = (*pgxLedgerTx)(nil)

func (t *pgxLedgerTx) FindAccountForUpdate(ctx context.Context, accountID string) (*domain.Account, error) {
	return findAccount(ctx, t.tx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = $1 FOR UPDATE;`, accountID)
}

func (t *pgxLedgerTx) UpdateCashBalance(ctx context.Context, accountID string, cash decimal.Decimal, now time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE accounts SET cash_balance = $2, last_updated_at = $3 WHERE account_id = $1;`, accountID, cash, now)
	if err != nil {
		return fmt.Errorf("failed to update cash balance for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
