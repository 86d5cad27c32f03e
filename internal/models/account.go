package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Account is the persisted row of the accounts table.
type Account struct {
	AccountID      string          `db:"account_id"`
	Username       string          `db:"username"`
	PasswordHash   string          `db:"password_hash"`
	GoogleSubject  sql.NullString  `db:"google_subject"`
	CashBalance    decimal.Decimal `db:"cash_balance"`
	OpeningBalance decimal.Decimal `db:"opening_balance"`
	AuditFields

	RefreshTokenHash       sql.NullString `db:"refresh_token_hash"`
	RefreshTokenExpiryTime sql.NullTime   `db:"refresh_token_expiry_time"`
}
