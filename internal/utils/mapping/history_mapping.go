package mapping

import (
	"database/sql"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/models"
)

// ToModelHistoryEntry converts a domain HistoryEntry to a model HistoryEntry
func ToModelHistoryEntry(d domain.HistoryEntry) models.HistoryEntry {
	m := models.HistoryEntry{
		ID:        d.ID,
		AccountID: d.AccountID,
		Action:    string(d.Action),
		Price:     d.Price,
		CreatedAt: d.CreatedAt,
	}
	if d.Symbol != nil {
		m.Symbol = sql.NullString{String: *d.Symbol, Valid: true}
	}
	if d.Shares != nil {
		m.Shares = sql.NullInt64{Int64: *d.Shares, Valid: true}
	}
	return m
}

// ToDomainHistoryEntry converts a model HistoryEntry to a domain HistoryEntry.
// It fails only if the stored action is not a known one.
func ToDomainHistoryEntry(m models.HistoryEntry) (domain.HistoryEntry, error) {
	action, err := domain.ParseAction(m.Action)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	d := domain.HistoryEntry{
		ID:        m.ID,
		AccountID: m.AccountID,
		Action:    action,
		Price:     m.Price,
		CreatedAt: m.CreatedAt,
	}
	if m.Symbol.Valid {
		s := m.Symbol.String
		d.Symbol = &s
	}
	if m.Shares.Valid {
		n := m.Shares.Int64
		d.Shares = &n
	}
	return d, nil
}
