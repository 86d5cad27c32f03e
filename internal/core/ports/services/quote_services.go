package services

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
)

// QuoteProvider is the external source of current prices.
// Lookup fails with apperrors.ErrUnknownSymbol when the instrument does not exist and
// apperrors.ErrQuoteUnavailable on any transient failure (network, timeout, open breaker).
type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (*domain.Quote, error)
}
