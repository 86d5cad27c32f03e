package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEvent is published after an operation commits. Consumers must tolerate duplicates and gaps.
type LedgerEvent struct {
	EventID     string          `json:"eventId"`
	AccountID   string          `json:"accountId"`
	HistoryID   int64           `json:"historyId"`
	Action      Action          `json:"action"`
	Symbol      string          `json:"symbol,omitempty"`
	Shares      int64           `json:"shares,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Amount      decimal.Decimal `json:"amount"` // absolute cash moved
	CashBalance decimal.Decimal `json:"cashBalance"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// NewLedgerEvent derives the event for a committed operation.
func NewLedgerEvent(eventID string, result OperationResult) LedgerEvent {
	e := result.Entry
	ev := LedgerEvent{
		EventID:     eventID,
		AccountID:   e.AccountID,
		HistoryID:   e.ID,
		Action:      e.Action,
		Symbol:      e.SymbolOrEmpty(),
		Price:       e.Price,
		Amount:      e.CashDelta().Abs(),
		CashBalance: result.CashBalance,
		OccurredAt:  e.CreatedAt,
	}
	if e.Shares != nil {
		ev.Shares = *e.Shares
	}
	return ev
}
