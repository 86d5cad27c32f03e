package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/SscSPs/portfolio_ledger/internal/report"
	"github.com/gin-gonic/gin"
)

const reportHistoryLimit = 100

// ledgerHandler serves the portfolio view and the operations that change it.
type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

func newLedgerHandler(ls portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{ledgerService: ls}
}

func registerLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newLedgerHandler(ledgerService)

	portfolio := rg.Group("/portfolio")
	{
		portfolio.GET("", h.getPortfolio)
		portfolio.GET("/report", h.getReport)
		portfolio.POST("/buy", h.buy)
		portfolio.POST("/sell", h.sell)
		portfolio.POST("/deposit", h.deposit)
	}
	rg.GET("/history", h.listHistory)
	rg.GET("/quotes/:symbol", h.getQuote)
}

// getPortfolio godoc
// @Summary Value the portfolio
// @Description Re-quotes every holding. Rows whose quote failed carry the last known price and stale=true.
// @Tags portfolio
// @Produce json
// @Success 200 {object} dto.PortfolioResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolio [get]
func (h *ledgerHandler) getPortfolio(c *gin.Context) {
	accountID, ok := accountIDOrAbort(c)
	if !ok {
		return
	}
	snapshot, err := h.ledgerService.PortfolioSnapshot(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "Failed to value portfolio")
		return
	}
	c.JSON(http.StatusOK, dto.ToPortfolioResponse(snapshot))
}

// getReport godoc
// @Summary Portfolio report
// @Description Renders the portfolio, recent history and audit result as an HTML page.
// @Tags portfolio
// @Produce html
// @Success 200 {string} string "HTML report"
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /portfolio/report [get]
func (h *ledgerHandler) getReport(c *gin.Context) {
	accountID, ok := accountIDOrAbort(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	account, err := h.ledgerService.GetAccount(ctx, accountID)
	if err != nil {
		respondError(c, err, "Failed to build report")
		return
	}
	snapshot, err := h.ledgerService.PortfolioSnapshot(ctx, accountID)
	if err != nil {
		respondError(c, err, "Failed to build report")
		return
	}
	history, err := h.ledgerService.ListHistory(ctx, accountID, dto.ListHistoryParams{Limit: reportHistoryLimit})
	if err != nil {
		respondError(c, err, "Failed to build report")
		return
	}
	rec, err := h.ledgerService.Reconcile(ctx, accountID)
	if err != nil {
		respondError(c, err, "Failed to build report")
		return
	}

	md, err := report.Markdown(report.Portfolio{
		Account:        account,
		Snapshot:       snapshot,
		History:        history.Entries,
		Reconciliation: rec,
	})
	if err != nil {
		respondError(c, err, "Failed to build report")
		return
	}
	page, err := report.HTML("Portfolio of "+account.Username, md)
	if err != nil {
		respondError(c, err, "Failed to build report")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// buy godoc
// @Summary Buy shares
// @Description Buys a whole number of shares at the current quoted price.
// @Tags portfolio
// @Accept json
// @Produce json
// @Param trade body dto.TradeRequest true "Symbol and quantity"
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} ErrorResponse "Invalid quantity or unknown symbol"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 422 {object} ErrorResponse "Insufficient funds"
// @Failure 503 {object} ErrorResponse "Quote unavailable"
// @Security BearerAuth
// @Router /portfolio/buy [post]
func (h *ledgerHandler) buy(c *gin.Context) {
	accountID, ok := accountIDOrAbort(c)
	if !ok {
		return
	}
	var req dto.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.ledgerService.Buy(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, err, "Failed to buy shares")
		return
	}
	middleware.GetLoggerFromContext(c).Info("Buy completed", slog.Int64("history_id", result.Entry.ID))
	c.JSON(http.StatusOK, dto.ToOperationResponse(result))
}

// sell godoc
// @Summary Sell shares
// @Description Sells a whole number of held shares at the current quoted price.
// @Tags portfolio
// @Accept json
// @Produce json
// @Param trade body dto.TradeRequest true "Symbol and quantity"
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} ErrorResponse "Invalid quantity or unknown symbol"
// @Failure 404 {object} ErrorResponse "Account or holding not found"
// @Failure 422 {object} ErrorResponse "Insufficient shares"
// @Failure 503 {object} ErrorResponse "Quote unavailable"
// @Security BearerAuth
// @Router /portfolio/sell [post]
func (h *ledgerHandler) sell(c *gin.Context) {
	accountID, ok := accountIDOrAbort(c)
	if !ok {
		return
	}
	var req dto.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.ledgerService.Sell(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, err, "Failed to sell shares")
		return
	}
	middleware.GetLoggerFromContext(c).Info("Sell completed", slog.Int64("history_id", result.Entry.ID))
	c.JSON(http.StatusOK, dto.ToOperationResponse(result))
}

// deposit godoc
// @Summary Deposit cash
// @Description Credits a positive amount, with at most two decimal places, to the cash balance.
// @Tags portfolio
// @Accept json
// @Produce json
// @Param deposit body dto.DepositRequest true "Amount"
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} ErrorResponse "Invalid amount"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /portfolio/deposit [post]
func (h *ledgerHandler) deposit(c *gin.Context) {
	accountID, ok := accountIDOrAbort(c)
	if !ok {
		return
	}
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.ledgerService.Deposit(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, err, "Failed to deposit cash")
		return
	}
	c.JSON(http.StatusOK, dto.ToOperationResponse(result))
}

// listHistory godoc
// @Summary List history
// @Description Lists the account's operations oldest first, with token-based pagination.
// @Tags history
// @Produce json
// @Param limit query int false "Page size (1-100)" default(20)
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListHistoryResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /history [get]
func (h *ledgerHandler) listHistory(c *gin.Context) {
	accountID, ok := accountIDOrAbort(c)
	if !ok {
		return
	}
	var params dto.ListHistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.ledgerService.ListHistory(c.Request.Context(), accountID, params)
	if err != nil {
		respondError(c, err, "Failed to list history")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getQuote godoc
// @Summary Look up a quote
// @Description Returns the provider's current price for a symbol.
// @Tags quotes
// @Produce json
// @Param symbol path string true "Ticker symbol"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} ErrorResponse "Unknown symbol"
// @Failure 503 {object} ErrorResponse "Quote unavailable"
// @Security BearerAuth
// @Router /quotes/{symbol} [get]
func (h *ledgerHandler) getQuote(c *gin.Context) {
	quote, err := h.ledgerService.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, err, "Failed to look up quote")
		return
	}
	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}
