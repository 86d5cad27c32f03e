package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is the persisted row of the append-only history table.
type HistoryEntry struct {
	ID        int64           `db:"id"`
	AccountID string          `db:"account_id"`
	Action    string          `db:"action"`
	Symbol    sql.NullString  `db:"symbol"`
	Shares    sql.NullInt64   `db:"shares"`
	Price     decimal.Decimal `db:"price"`
	CreatedAt time.Time       `db:"created_at"`
}
