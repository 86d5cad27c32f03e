package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrRefreshTokenExpired indicates the stored refresh token is past its expiry.
var ErrRefreshTokenExpired = errors.New("refresh token expired")

// ErrInternal is used for infrastructure failures that carry no user-facing detail.
var ErrInternal = errors.New("internal error")

// Ledger error kinds. Every ledger operation fails with exactly one of these.
var (
	ErrAccountNotFound    = fmt.Errorf("account not found: %w", ErrNotFound)
	ErrHoldingNotFound    = fmt.Errorf("holding not found: %w", ErrNotFound)
	ErrInvalidQuantity    = fmt.Errorf("quantity must be a positive whole number: %w", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("amount must be a positive number: %w", ErrValidation)
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrQuoteUnavailable   = errors.New("quote unavailable")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// InsufficientFundsError reports how much cash a purchase needed.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %s, have %s", e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InsufficientSharesError reports the share count actually held so callers can render it.
type InsufficientSharesError struct {
	Symbol    string
	Held      int64
	Requested int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares: you only have %d shares of %s, cannot sell %d", e.Held, e.Symbol, e.Requested)
}

func (e *InsufficientSharesError) Unwrap() error { return ErrInsufficientShares }

// AppError wraps an infrastructure failure with an HTTP-ish status code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError. Err may be nil.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap matches ErrInternal as well as the wrapped cause.
func (e *AppError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInternal}
	}
	return []error{ErrInternal, e.Err}
}
