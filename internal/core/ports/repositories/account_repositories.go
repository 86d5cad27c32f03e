package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountByUsername retrieves an account by its login name.
	FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error)

	// FindAccountByGoogleSubject retrieves the account linked to a Google identity.
	FindAccountByGoogleSubject(ctx context.Context, subject string) (*domain.Account, error)
}

// AccountWriter defines write operations for account data.
// Cash balances are only written through LedgerTx.
type AccountWriter interface {
	// SaveAccount persists a new account. Returns apperrors.ErrDuplicate on a taken username.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateRefreshToken stores (or clears, with an empty hash) the account's refresh token.
	UpdateRefreshToken(ctx context.Context, accountID string, tokenHash string, expiresAt *time.Time, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
