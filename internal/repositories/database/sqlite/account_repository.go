package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/SscSPs/portfolio_ledger/internal/utils/mapping"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_id, username, password_hash, google_subject, cash_balance, opening_balance,
	refresh_token_hash, refresh_token_expiry_time, created_at, last_updated_at`

type SQLiteAccountRepository struct {
	BaseRepository
}

var _ portsrepo.AccountRepositoryFacade = (*SQLiteAccountRepository)(nil)

func (r *SQLiteAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	query := `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := r.DB.ExecContext(ctx, query,
		m.AccountID,
		m.Username,
		m.PasswordHash,
		m.GoogleSubject,
		m.CashBalance.String(),
		m.OpeningBalance.String(),
		m.RefreshTokenHash,
		nullUnixNano(m.RefreshTokenExpiryTime),
		toUnixNano(m.CreatedAt),
		toUnixNano(m.LastUpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %s or username %q already exists", apperrors.ErrDuplicate, m.AccountID, m.Username)
		}
		return fmt.Errorf("failed to save account %s: %w", m.AccountID, err)
	}
	return nil
}

func (r *SQLiteAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return findAccount(ctx, r.DB, `SELECT `+accountColumns+` FROM accounts WHERE account_id = ?;`, accountID)
}

func (r *SQLiteAccountRepository) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return findAccount(ctx, r.DB, `SELECT `+accountColumns+` FROM accounts WHERE username = ?;`, username)
}

func (r *SQLiteAccountRepository) FindAccountByGoogleSubject(ctx context.Context, subject string) (*domain.Account, error) {
	return findAccount(ctx, r.DB, `SELECT `+accountColumns+` FROM accounts WHERE google_subject = ?;`, subject)
}

func (r *SQLiteAccountRepository) UpdateRefreshToken(ctx context.Context, accountID string, tokenHash string, expiresAt *time.Time, now time.Time) error {
	hash := sql.NullString{String: tokenHash, Valid: tokenHash != ""}
	expiry := sql.NullTime{}
	if hash.Valid {
		expiry = mapping.NullTimePtr(expiresAt)
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET refresh_token_hash = ?, refresh_token_expiry_time = ?, last_updated_at = ? WHERE account_id = ?;`,
		hash, nullUnixNano(expiry), toUnixNano(now), accountID)
	if err != nil {
		return fmt.Errorf("failed to update refresh token for account %s: %w", accountID, err)
	}
	return requireRow(res)
}

func findAccount(ctx context.Context, q querier, query string, arg any) (*domain.Account, error) {
	var (
		m                  models.Account
		expiry             sql.NullInt64
		created, updatedAt int64
	)
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&m.AccountID,
		&m.Username,
		&m.PasswordHash,
		&m.GoogleSubject,
		&m.CashBalance,
		&m.OpeningBalance,
		&m.RefreshTokenHash,
		&expiry,
		&created,
		&updatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "failed to find account %v", arg)
	}
	if expiry.Valid {
		m.RefreshTokenExpiryTime = sql.NullTime{Time: fromUnixNano(expiry.Int64), Valid: true}
	}
	m.CreatedAt = fromUnixNano(created)
	m.LastUpdatedAt = fromUnixNano(updatedAt)
	d := mapping.ToDomainAccount(m)
	return &d, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindAccountForUpdate needs no row lock; the immediate transaction already holds the database write lock.
func (t *sqliteLedgerTx) FindAccountForUpdate(ctx context.Context, accountID string) (*domain.Account, error) {
	return findAccount(ctx, t.tx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = ?;`, accountID)
}

func (t *sqliteLedgerTx) UpdateCashBalance(ctx context.Context, accountID string, cash decimal.Decimal, now time.Time) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE accounts SET cash_balance = ?, last_updated_at = ? WHERE account_id = ?;`,
		cash.String(), toUnixNano(now), accountID)
	if err != nil {
		return fmt.Errorf("failed to update cash balance for account %s: %w", accountID, err)
	}
	return requireRow(res)
}
