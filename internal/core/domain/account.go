package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStartingCash is the balance a newly registered account opens with.
var DefaultStartingCash = decimal.RequireFromString("10000.00")

// Account is a trading account: one user's identity and cash balance.
type Account struct {
	AccountID      string          `json:"accountID"`
	Username       string          `json:"username"`
	PasswordHash   string          `json:"-"`
	GoogleSubject  string          `json:"-"`
	CashBalance    decimal.Decimal `json:"cashBalance"`    // never negative
	OpeningBalance decimal.Decimal `json:"openingBalance"` // cash at registration, base for history replay
	AuditFields

	RefreshTokenHash       string     `json:"-"`
	RefreshTokenExpiryTime *time.Time `json:"-"`
}

// GoogleUserInfo is the subset of a verified Google identity the ledger keeps.
type GoogleUserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}
