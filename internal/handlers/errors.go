package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrUnknownSymbol):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientFunds), errors.Is(err, apperrors.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrQuoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status. Internal failures are logged and
// answered with fallback so infrastructure details never reach the client.
func respondError(c *gin.Context, err error, fallback string) {
	logger := middleware.GetLoggerFromContext(c)
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(status, ErrorResponse{Error: fallback})
		return
	}

	logger.Warn("Request rejected", slog.Int("status", status), slog.String("error", err.Error()))
	resp := ErrorResponse{Error: err.Error()}
	var funds *apperrors.InsufficientFundsError
	var shares *apperrors.InsufficientSharesError
	switch {
	case errors.As(err, &funds):
		resp.Details = map[string]any{"required": funds.Required.StringFixed(2), "available": funds.Available.StringFixed(2)}
	case errors.As(err, &shares):
		resp.Details = map[string]any{"symbol": shares.Symbol, "held": shares.Held, "requested": shares.Requested}
	}
	c.JSON(status, resp)
}

// bindError answers a request body or query that failed binding.
func bindError(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Failed to bind request", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error()})
}

// accountIDOrAbort returns the authenticated account; false means the response is already written.
func accountIDOrAbort(c *gin.Context) (string, bool) {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Error("Account ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return "", false
	}
	return accountID, true
}
