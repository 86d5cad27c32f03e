package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// HoldingReader defines read operations for holdings
type HoldingReader interface {
	// FindHolding returns apperrors.ErrNotFound when no row exists.
	FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error)

	// ListHoldingsByAccount returns the account's holdings ordered by symbol.
	ListHoldingsByAccount(ctx context.Context, accountID string) ([]domain.Holding, error)
}

// HoldingCacheWriter refreshes the display-only price cache of a holding.
type HoldingCacheWriter interface {
	// UpdateHoldingQuoteCache sets last_price/last_total. A missing row is not an error.
	UpdateHoldingQuoteCache(ctx context.Context, accountID, symbol string, price, total decimal.Decimal, now time.Time) error
}

// HoldingRepositoryFacade combines all holding-related repository interfaces
type HoldingRepositoryFacade interface {
	HoldingReader
	HoldingCacheWriter
}
