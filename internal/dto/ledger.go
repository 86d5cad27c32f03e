package dto

import (
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TradeRequest is the body of a buy or sell.
type TradeRequest struct {
	Symbol   string    `json:"symbol" binding:"required"`
	Quantity RawNumber `json:"quantity" binding:"required"`
}

// DepositRequest is the body of a cash deposit.
type DepositRequest struct {
	Amount RawNumber `json:"amount" binding:"required"`
}

// HoldingResponse describes a holding after an operation.
type HoldingResponse struct {
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name"`
	Shares    int64            `json:"shares"`
	LastPrice *decimal.Decimal `json:"lastPrice,omitempty"`
	LastTotal *decimal.Decimal `json:"lastTotal,omitempty"`
}

// OperationResponse is returned by buy, sell and deposit.
type OperationResponse struct {
	CashBalance decimal.Decimal      `json:"cashBalance"`
	Holding     *HoldingResponse     `json:"holding,omitempty"`
	Entry       HistoryEntryResponse `json:"entry"`
}

// ToOperationResponse converts a domain.OperationResult to its DTO.
func ToOperationResponse(r *domain.OperationResult) OperationResponse {
	resp := OperationResponse{
		CashBalance: r.CashBalance,
		Entry:       ToHistoryEntryResponse(r.Entry),
	}
	if r.Holding != nil {
		resp.Holding = &HoldingResponse{
			Symbol:    r.Holding.Symbol,
			Name:      r.Holding.Name,
			Shares:    r.Holding.Shares,
			LastPrice: r.Holding.LastPrice,
			LastTotal: r.Holding.LastTotal,
		}
	}
	return resp
}

// PositionResponse is one row of the portfolio view.
type PositionResponse struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Shares       int64           `json:"shares"`
	Price        decimal.Decimal `json:"price"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	Stale        bool            `json:"stale"`
}

// PortfolioResponse is the portfolio view.
type PortfolioResponse struct {
	CashBalance   decimal.Decimal    `json:"cashBalance"`
	Positions     []PositionResponse `json:"positions"`
	HoldingsValue decimal.Decimal    `json:"holdingsValue"`
	GrandTotal    decimal.Decimal    `json:"grandTotal"`
	TakenAt       time.Time          `json:"takenAt"`
}

// ToPortfolioResponse converts a domain.PortfolioSnapshot to its DTO.
func ToPortfolioResponse(s *domain.PortfolioSnapshot) PortfolioResponse {
	positions := make([]PositionResponse, len(s.Positions))
	for i, p := range s.Positions {
		positions[i] = PositionResponse{
			Symbol:       p.Symbol,
			Name:         p.Name,
			Shares:       p.Shares,
			Price:        p.Price,
			CurrentValue: p.CurrentValue,
			Stale:        p.Stale,
		}
	}
	return PortfolioResponse{
		CashBalance:   s.CashBalance,
		Positions:     positions,
		HoldingsValue: s.HoldingsValue,
		GrandTotal:    s.GrandTotal,
		TakenAt:       s.TakenAt,
	}
}

// QuoteResponse is returned by the quote lookup.
type QuoteResponse struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// ToQuoteResponse converts a domain.Quote to its DTO.
func ToQuoteResponse(q *domain.Quote) QuoteResponse {
	return QuoteResponse{Symbol: q.Symbol, Name: q.Name, Price: q.Price}
}

// ReconciliationResponse reports the result of a history replay.
type ReconciliationResponse struct {
	Consistent     bool             `json:"consistent"`
	Entries        int              `json:"entries"`
	ExpectedCash   decimal.Decimal  `json:"expectedCash"`
	ActualCash     decimal.Decimal  `json:"actualCash"`
	ExpectedShares map[string]int64 `json:"expectedShares"`
	ActualShares   map[string]int64 `json:"actualShares"`
	Discrepancies  []string         `json:"discrepancies"`
}

// ToReconciliationResponse converts a domain.Reconciliation to its DTO.
func ToReconciliationResponse(r *domain.Reconciliation) ReconciliationResponse {
	discrepancies := r.Discrepancies
	if discrepancies == nil {
		discrepancies = []string{}
	}
	return ReconciliationResponse{
		Consistent:     r.Consistent(),
		Entries:        r.Entries,
		ExpectedCash:   r.ExpectedCash,
		ActualCash:     r.ActualCash,
		ExpectedShares: r.ExpectedShares,
		ActualShares:   r.ActualShares,
		Discrepancies:  discrepancies,
	}
}
