package domain

import "github.com/shopspring/decimal"

// PriceScale is the number of decimal places quoted prices are kept at.
const PriceScale = 4

// Quote is a provider's current price for one instrument.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Normalized returns the quote with an upper-cased symbol and the price rounded to PriceScale.
func (q Quote) Normalized() Quote {
	q.Symbol = normalizeSymbolText(q.Symbol)
	q.Price = q.Price.Round(PriceScale)
	return q
}
