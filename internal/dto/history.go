package dto

import (
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ListHistoryParams defines query parameters for listing history entries.
type ListHistoryParams struct {
	Limit     int     `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// HistoryEntryResponse is one row of the history log.
type HistoryEntryResponse struct {
	ID        int64           `json:"id"`
	Action    domain.Action   `json:"action"`
	Symbol    *string         `json:"symbol,omitempty"`
	Shares    *int64          `json:"shares,omitempty"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ListHistoryResponse wraps a page of history entries.
type ListHistoryResponse struct {
	Entries   []HistoryEntryResponse `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}

// ToHistoryEntryResponse converts a domain.HistoryEntry to its DTO.
func ToHistoryEntryResponse(e domain.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:        e.ID,
		Action:    e.Action,
		Symbol:    e.Symbol,
		Shares:    e.Shares,
		Price:     e.Price,
		CreatedAt: e.CreatedAt,
	}
}

// ToListHistoryResponse converts a page of entries to its DTO.
func ToListHistoryResponse(entries []domain.HistoryEntry, nextToken *string) *ListHistoryResponse {
	resp := &ListHistoryResponse{
		Entries:   make([]HistoryEntryResponse, len(entries)),
		NextToken: nextToken,
	}
	for i, e := range entries {
		resp.Entries[i] = ToHistoryEntryResponse(e)
	}
	return resp
}
