package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places a deposit may carry.
const MoneyScale = 2

var (
	quantityPattern = regexp.MustCompile(`^[0-9]+$`)
	amountPattern   = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
	symbolPattern   = regexp.MustCompile(`^[A-Z0-9.\-]{1,16}$`)
)

// ParseQuantity turns raw user input into a share count.
// Zero, negative, fractional, exponent or otherwise unparsable input all fail with ErrInvalidQuantity.
func ParseQuantity(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if !quantityPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidQuantity, raw)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidQuantity, raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidQuantity, raw)
	}
	return n, nil
}

// ParseAmount turns raw user input into a positive cash amount with at most MoneyScale decimals.
// Input with more precision is rejected, never rounded.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", apperrors.ErrInvalidAmount, raw)
	}
	// ".5" and "5." are valid amounts.
	amount, err := decimal.NewFromString("0" + strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", apperrors.ErrInvalidAmount, raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", apperrors.ErrInvalidAmount, raw)
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimal places allowed, got %q", apperrors.ErrInvalidAmount, MoneyScale, raw)
	}
	return amount, nil
}

// NormalizeSymbol upper-cases and validates a ticker symbol.
func NormalizeSymbol(raw string) (string, error) {
	s := normalizeSymbolText(raw)
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownSymbol, raw)
	}
	return s, nil
}

func normalizeSymbolText(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
