package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the persisted row of the holdings table.
type Holding struct {
	AccountID string              `db:"account_id"`
	Symbol    string              `db:"symbol"`
	Name      string              `db:"name"`
	Shares    int64               `db:"shares"`
	LastPrice decimal.NullDecimal `db:"last_price"`
	LastTotal decimal.NullDecimal `db:"last_total"`
	UpdatedAt time.Time           `db:"updated_at"`
}
