package dto

import (
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID      string          `json:"accountID"`
	Username       string          `json:"username"`
	CashBalance    decimal.Decimal `json:"cashBalance"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:      a.AccountID,
		Username:       a.Username,
		CashBalance:    a.CashBalance,
		OpeningBalance: a.OpeningBalance,
		CreatedAt:      a.CreatedAt,
	}
}
