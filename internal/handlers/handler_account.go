package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

// accountHandler serves the authenticated account itself.
type accountHandler struct {
	ledgerService portssvc.LedgerReaderSvc
}

func registerAccountRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerReaderSvc) {
	h := &accountHandler{ledgerService: ledgerService}

	account := rg.Group("/account")
	{
		account.GET("", h.getAccount)
		account.GET("/audit", h.auditAccount)
	}
}

// getAccount godoc
// @Summary Get the current account
// @Description Returns the authenticated account with its cash balance.
// @Tags account
// @Produce json
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /account [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	accountID, ok := accountIDOrAbort(c)
	if !ok {
		return
	}
	account, err := h.ledgerService.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "Failed to retrieve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// auditAccount godoc
// @Summary Reconcile the account against its history
// @Description Replays the history log and reports any difference from the stored cash and holdings.
// @Tags account
// @Produce json
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /account/audit [get]
func (h *accountHandler) auditAccount(c *gin.Context) {
	accountID, ok := accountIDOrAbort(c)
	if !ok {
		return
	}
	rec, err := h.ledgerService.Reconcile(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "Failed to audit account")
		return
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(rec))
}
