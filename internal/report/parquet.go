package report

import (
	"fmt"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/parquet-go/parquet-go"
)

// HistoryRow is the parquet layout of one history entry. Money columns hold exact
// decimal text so no precision is lost to floating point.
type HistoryRow struct {
	ID        int64  `parquet:"id"`
	AccountID string `parquet:"account_id"`
	Action    string `parquet:"action"`
	Symbol    string `parquet:"symbol"`
	Shares    int64  `parquet:"shares"`
	Price     string `parquet:"price"`
	CashDelta string `parquet:"cash_delta"`
	CreatedAt int64  `parquet:"created_at,timestamp(microsecond)"` // Unix µs
}

// ToHistoryRows flattens entries; deposits get an empty symbol and zero shares.
func ToHistoryRows(entries []domain.HistoryEntry) []HistoryRow {
	rows := make([]HistoryRow, len(entries))
	for i, e := range entries {
		rows[i] = HistoryRow{
			ID:        e.ID,
			AccountID: e.AccountID,
			Action:    string(e.Action),
			Symbol:    e.SymbolOrEmpty(),
			Price:     e.Price.String(),
			CashDelta: e.CashDelta().String(),
			CreatedAt: e.CreatedAt.UnixMicro(),
		}
		if e.Shares != nil {
			rows[i].Shares = *e.Shares
		}
	}
	return rows
}

// WriteHistoryParquet writes entries to path, replacing any existing file.
func WriteHistoryParquet(path string, entries []domain.HistoryEntry) error {
	if err := parquet.WriteFile(path, ToHistoryRows(entries)); err != nil {
		return fmt.Errorf("failed to write history to %s: %w", path, err)
	}
	return nil
}
