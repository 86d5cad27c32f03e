package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is an account's position in one symbol. A row exists only while Shares > 0.
type Holding struct {
	AccountID string `json:"accountID"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Shares    int64  `json:"shares"`

	// LastPrice and LastTotal are a display cache refreshed by trades and snapshots.
	// They never feed back into share counts or cash.
	LastPrice *decimal.Decimal `json:"lastPrice,omitempty"`
	LastTotal *decimal.Decimal `json:"lastTotal,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// MarkPrice refreshes the display cache from price.
func (h *Holding) MarkPrice(price decimal.Decimal, now time.Time) {
	total := price.Mul(decimal.NewFromInt(h.Shares))
	h.LastPrice = &price
	h.LastTotal = &total
	h.UpdatedAt = now
}
