package services

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
)

// LedgerWriterSvc defines the mutating ledger operations.
// Each is one atomic, per-account linearizable unit of work.
type LedgerWriterSvc interface {
	// Buy purchases quantity shares of symbol at the current quoted price.
	Buy(ctx context.Context, accountID string, req dto.TradeRequest) (*domain.OperationResult, error)

	// Sell disposes of quantity shares of symbol at the current quoted price.
	Sell(ctx context.Context, accountID string, req dto.TradeRequest) (*domain.OperationResult, error)

	// Deposit credits cash to the account.
	Deposit(ctx context.Context, accountID string, req dto.DepositRequest) (*domain.OperationResult, error)
}

// LedgerReaderSvc defines the read-only ledger operations.
type LedgerReaderSvc interface {
	// PortfolioSnapshot values every holding at current prices.
	PortfolioSnapshot(ctx context.Context, accountID string) (*domain.PortfolioSnapshot, error)

	// ListHistory returns the account's history log, oldest first, using token-based pagination.
	ListHistory(ctx context.Context, accountID string, params dto.ListHistoryParams) (*dto.ListHistoryResponse, error)

	// GetAccount returns the account with its current cash balance.
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)

	// Reconcile replays the history log and compares it to the stored balances.
	Reconcile(ctx context.Context, accountID string) (*domain.Reconciliation, error)
}

// QuoteSvc exposes quote lookups to callers outside the ledger.
type QuoteSvc interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
type LedgerSvcFacade interface {
	LedgerWriterSvc
	LedgerReaderSvc
	QuoteSvc
}
