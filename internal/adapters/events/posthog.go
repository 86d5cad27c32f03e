package events

import (
	"context"
	"strings"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
)

// enqueuer is satisfied by *utils.PosthogClientWrapper.
type enqueuer interface {
	Enqueue(distinctId string, event string, properties map[string]any) error
}

// PosthogPublisher records ledger events as product analytics, one capture per event
// with the account as the distinct id.
type PosthogPublisher struct {
	client enqueuer
}

var _ portssvc.EventPublisher = (*PosthogPublisher)(nil)

func NewPosthogPublisher(client enqueuer) *PosthogPublisher {
	return &PosthogPublisher{client: client}
}

func (p *PosthogPublisher) Publish(_ context.Context, event domain.LedgerEvent) error {
	props := map[string]any{
		"event_id":     event.EventID,
		"history_id":   event.HistoryID,
		"amount":       event.Amount.StringFixed(2),
		"cash_balance": event.CashBalance.StringFixed(2),
		"price":        event.Price.String(),
	}
	if event.Symbol != "" {
		props["symbol"] = event.Symbol
		props["shares"] = event.Shares
	}
	return p.client.Enqueue(event.AccountID, "ledger_"+strings.ToLower(string(event.Action)), props)
}
