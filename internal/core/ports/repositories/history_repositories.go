package repositories

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
)

// HistoryReader defines read operations for the history log. Appends go through LedgerTx.
type HistoryReader interface {
	// ListHistoryByAccount returns entries in (created_at, id) order using token-based pagination.
	// A limit <= 0 returns every entry after nextToken and a nil token.
	ListHistoryByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.HistoryEntry, *string, error)
}
