package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Action identifies the operation a history entry records.
type Action string

const (
	ActionBought  Action = "BOUGHT"
	ActionSold    Action = "SOLD"
	ActionDeposit Action = "DEPOSIT"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBought, ActionSold, ActionDeposit:
		return true
	}
	return false
}

// ParseAction converts a stored action string back into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown history action %q", s)
	}
	return a, nil
}

// HistoryEntry is an immutable record of one completed ledger operation.
// Entries are ordered by (CreatedAt, ID); ID is assigned by the store and strictly increases.
type HistoryEntry struct {
	ID        int64           `json:"id"`
	AccountID string          `json:"accountID"`
	Action    Action          `json:"action"`
	Symbol    *string         `json:"symbol,omitempty"` // nil for DEPOSIT
	Shares    *int64          `json:"shares,omitempty"` // nil for DEPOSIT
	Price     decimal.Decimal `json:"price"`            // per share, or the deposited amount
	CreatedAt time.Time       `json:"createdAt"`
}

// NewTradeEntry builds a BOUGHT or SOLD entry.
func NewTradeEntry(accountID string, action Action, symbol string, shares int64, price decimal.Decimal, at time.Time) HistoryEntry {
	return HistoryEntry{
		AccountID: accountID,
		Action:    action,
		Symbol:    &symbol,
		Shares:    &shares,
		Price:     price,
		CreatedAt: at,
	}
}

// NewDepositEntry builds a DEPOSIT entry; the amount is stored as the price.
func NewDepositEntry(accountID string, amount decimal.Decimal, at time.Time) HistoryEntry {
	return HistoryEntry{
		AccountID: accountID,
		Action:    ActionDeposit,
		Price:     amount,
		CreatedAt: at,
	}
}

// CashDelta is the signed effect the entry had on the account's cash balance.
func (e HistoryEntry) CashDelta() decimal.Decimal {
	switch e.Action {
	case ActionDeposit:
		return e.Price
	case ActionBought:
		return e.Price.Mul(decimal.NewFromInt(e.sharesOrZero())).Neg()
	case ActionSold:
		return e.Price.Mul(decimal.NewFromInt(e.sharesOrZero()))
	}
	return decimal.Zero
}

// ShareDelta is the signed effect the entry had on its symbol's share count.
func (e HistoryEntry) ShareDelta() int64 {
	switch e.Action {
	case ActionBought:
		return e.sharesOrZero()
	case ActionSold:
		return -e.sharesOrZero()
	}
	return 0
}

// SymbolOrEmpty returns the entry's symbol, or "" for deposits.
func (e HistoryEntry) SymbolOrEmpty() string {
	if e.Symbol == nil {
		return ""
	}
	return *e.Symbol
}

func (e HistoryEntry) sharesOrZero() int64 {
	if e.Shares == nil {
		return 0
	}
	return *e.Shares
}
