package mapping

import (
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelHolding converts a domain Holding to a model Holding
func ToModelHolding(d domain.Holding) models.Holding {
	return models.Holding{
		AccountID: d.AccountID,
		Symbol:    d.Symbol,
		Name:      d.Name,
		Shares:    d.Shares,
		LastPrice: nullDecimal(d.LastPrice),
		LastTotal: nullDecimal(d.LastTotal),
		UpdatedAt: d.UpdatedAt,
	}
}

// ToDomainHolding converts a model Holding to a domain Holding
func ToDomainHolding(m models.Holding) domain.Holding {
	d := domain.Holding{
		AccountID: m.AccountID,
		Symbol:    m.Symbol,
		Name:      m.Name,
		Shares:    m.Shares,
		UpdatedAt: m.UpdatedAt,
	}
	if m.LastPrice.Valid {
		p := m.LastPrice.Decimal
		d.LastPrice = &p
	}
	if m.LastTotal.Valid {
		t := m.LastTotal.Decimal
		d.LastTotal = &t
	}
	return d
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
