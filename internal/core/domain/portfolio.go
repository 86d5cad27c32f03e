package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is one valued row of a portfolio snapshot.
type Position struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Shares       int64           `json:"shares"`
	Price        decimal.Decimal `json:"price"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	// Stale is set when the quote lookup failed and Price is the last known one.
	Stale bool `json:"stale"`
}

// PortfolioSnapshot values every holding of an account at current prices.
type PortfolioSnapshot struct {
	AccountID     string          `json:"accountID"`
	CashBalance   decimal.Decimal `json:"cashBalance"`
	Positions     []Position      `json:"positions"`
	HoldingsValue decimal.Decimal `json:"holdingsValue"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	TakenAt       time.Time       `json:"takenAt"`
}

// OperationResult is what Buy, Sell and Deposit return after committing.
type OperationResult struct {
	CashBalance decimal.Decimal `json:"cashBalance"`
	// Holding is the position after the operation; nil for deposits and for sells that closed it.
	Holding *Holding     `json:"holding,omitempty"`
	Entry   HistoryEntry `json:"entry"`
}

// Reconciliation compares an account's stored state against a replay of its history.
type Reconciliation struct {
	AccountID      string           `json:"accountID"`
	Entries        int              `json:"entries"`
	ExpectedCash   decimal.Decimal  `json:"expectedCash"`
	ActualCash     decimal.Decimal  `json:"actualCash"`
	ExpectedShares map[string]int64 `json:"expectedShares"`
	ActualShares   map[string]int64 `json:"actualShares"`
	Discrepancies  []string         `json:"discrepancies"`
}

// Consistent reports whether the replay matched the stored state.
func (r Reconciliation) Consistent() bool {
	return len(r.Discrepancies) == 0
}
