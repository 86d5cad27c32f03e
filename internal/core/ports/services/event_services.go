package services

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
)

// EventPublisher receives ledger events after their operation has committed.
// Publishing is best effort; an error never undoes the operation.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}
