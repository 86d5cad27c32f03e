package utils

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// LedgerCurrency is the single currency every balance and price is held in.
const LedgerCurrency = money.USD

// FormatMoney renders amount in the ledger currency, e.g. 8500 -> "$8,500.00".
// Amounts are rounded half-up to the currency's minor unit for display only.
func FormatMoney(amount decimal.Decimal) string {
	cur := *money.New(0, LedgerCurrency).Currency()
	minor := amount.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}

// FormatWithPrecision formats an amount with the given precision
// This is a convenience function when you only have the precision value
func FormatWithPrecision(amount decimal.Decimal, precision int) string {
	return amount.StringFixed(int32(precision))
}
