package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultHistoryLimit        = 20
	maxHistoryLimit            = 100
	defaultSnapshotConcurrency = 8
	defaultPublishTimeout      = 2 * time.Second
)

// ledgerService implements the LedgerSvcFacade interface.
// Mutations on one account are serialized by an in-process lock held across the store transaction.
type ledgerService struct {
	BaseService
	accountRepo portsrepo.AccountReader
	holdingRepo portsrepo.HoldingRepositoryFacade
	historyRepo portsrepo.HistoryReader
	txManager   portsrepo.TransactionManager
	quotes      portssvc.QuoteProvider
	events      portssvc.EventPublisher

	locker              *accountLocker
	now                 func() time.Time
	newEventID          func() string
	snapshotConcurrency int
	publishTimeout      time.Duration
}

// LedgerOption is a functional option for configuring the ledger service
type LedgerOption func(*ledgerService)

// WithEventPublisher sets where committed operations are announced.
func WithEventPublisher(p portssvc.EventPublisher) LedgerOption {
	return func(s *ledgerService) {
		s.events = p
	}
}

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// WithSnapshotConcurrency bounds the number of parallel quote lookups in a snapshot.
func WithSnapshotConcurrency(n int) LedgerOption {
	return func(s *ledgerService) {
		if n > 0 {
			s.snapshotConcurrency = n
		}
	}
}

// WithPublishTimeout bounds how long a committed operation waits on the event publisher.
func WithPublishTimeout(d time.Duration) LedgerOption {
	return func(s *ledgerService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// NewLedgerService creates a new ledger service with the provided options
func NewLedgerService(repos portsrepo.RepositoryProvider, quotes portssvc.QuoteProvider, options ...LedgerOption) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		accountRepo:         repos.AccountRepo,
		holdingRepo:         repos.HoldingRepo,
		historyRepo:         repos.HistoryRepo,
		txManager:           repos.TxManager,
		quotes:              quotes,
		locker:              newAccountLocker(),
		now:                 func() time.Time { return time.Now().UTC() },
		newEventID:          uuid.NewString,
		snapshotConcurrency: defaultSnapshotConcurrency,
		publishTimeout:      defaultPublishTimeout,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure ledgerService implements the LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) Buy(ctx context.Context, accountID string, req dto.TradeRequest) (*domain.OperationResult, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	qty, err := domain.ParseQuantity(string(req.Quantity))
	if err != nil {
		return nil, err
	}
	symbol, err := domain.NormalizeSymbol(req.Symbol)
	if err != nil {
		return nil, err
	}

	quote, err := s.lookupQuote(ctx, symbol)
	if err != nil {
		s.LogWarn(ctx, "Quote lookup failed for buy", slog.String("symbol", symbol), slog.String("error", err.Error()))
		return nil, err
	}
	cost := quote.Price.Mul(decimal.NewFromInt(qty))

	var result *domain.OperationResult
	err = s.runLocked(ctx, accountID, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		account, err := tx.FindAccountForUpdate(ctx, accountID)
		if err != nil {
			return accountErr(accountID, err)
		}
		if account.CashBalance.LessThan(cost) {
			return &apperrors.InsufficientFundsError{Required: cost, Available: account.CashBalance}
		}

		now := s.now()
		cash := account.CashBalance.Sub(cost)
		if err := tx.UpdateCashBalance(ctx, accountID, cash, now); err != nil {
			return fmt.Errorf("failed to debit cash: %w", err)
		}

		holding, err := tx.FindHolding(ctx, accountID, symbol)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			holding = &domain.Holding{AccountID: accountID, Symbol: symbol}
		case err != nil:
			return fmt.Errorf("failed to read holding: %w", err)
		}
		if holding.Shares > math.MaxInt64-qty {
			return fmt.Errorf("%w: position in %s would overflow", apperrors.ErrInvalidQuantity, symbol)
		}
		holding.Shares += qty
		if quote.Name != "" {
			holding.Name = quote.Name
		}
		holding.MarkPrice(quote.Price, now)
		if err := tx.SaveHolding(ctx, *holding); err != nil {
			return fmt.Errorf("failed to save holding: %w", err)
		}

		entry, err := tx.AppendHistory(ctx, domain.NewTradeEntry(accountID, domain.ActionBought, symbol, qty, quote.Price, now))
		if err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		result = &domain.OperationResult{CashBalance: cash, Holding: holding, Entry: *entry}
		return nil
	})
	if err != nil {
		return nil, s.operationFailed(ctx, "buy", accountID, err)
	}

	s.LogInfo(ctx, "Shares bought",
		slog.String("account_id", accountID),
		slog.String("symbol", symbol),
		slog.Int64("shares", qty),
		slog.String("price", quote.Price.String()))
	s.publish(ctx, result)
	return result, nil
}

func (s *ledgerService) Sell(ctx context.Context, accountID string, req dto.TradeRequest) (*domain.OperationResult, error) {
	qty, err := domain.ParseQuantity(string(req.Quantity))
	if err != nil {
		return nil, err
	}
	symbol, err := domain.NormalizeSymbol(req.Symbol)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	// Fail fast on the holding before paying for a quote; the check is repeated under the lock.
	held, err := s.holdingRepo.FindHolding(ctx, accountID, symbol)
	if err != nil {
		return nil, holdingErr(symbol, err)
	}
	if held.Shares < qty {
		return nil, &apperrors.InsufficientSharesError{Symbol: symbol, Held: held.Shares, Requested: qty}
	}

	quote, err := s.lookupQuote(ctx, symbol)
	if err != nil {
		s.LogWarn(ctx, "Quote lookup failed for sell", slog.String("symbol", symbol), slog.String("error", err.Error()))
		return nil, err
	}
	proceeds := quote.Price.Mul(decimal.NewFromInt(qty))

	var result *domain.OperationResult
	err = s.runLocked(ctx, accountID, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		account, err := tx.FindAccountForUpdate(ctx, accountID)
		if err != nil {
			return accountErr(accountID, err)
		}
		holding, err := tx.FindHolding(ctx, accountID, symbol)
		if err != nil {
			return holdingErr(symbol, err)
		}
		if holding.Shares < qty {
			return &apperrors.InsufficientSharesError{Symbol: symbol, Held: holding.Shares, Requested: qty}
		}

		now := s.now()
		holding.Shares -= qty
		if holding.Shares == 0 {
			if err := tx.DeleteHolding(ctx, accountID, symbol); err != nil {
				return fmt.Errorf("failed to delete holding: %w", err)
			}
		} else {
			holding.MarkPrice(quote.Price, now)
			if err := tx.SaveHolding(ctx, *holding); err != nil {
				return fmt.Errorf("failed to save holding: %w", err)
			}
		}

		cash := account.CashBalance.Add(proceeds)
		if err := tx.UpdateCashBalance(ctx, accountID, cash, now); err != nil {
			return fmt.Errorf("failed to credit cash: %w", err)
		}

		entry, err := tx.AppendHistory(ctx, domain.NewTradeEntry(accountID, domain.ActionSold, symbol, qty, quote.Price, now))
		if err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		result = &domain.OperationResult{CashBalance: cash, Entry: *entry}
		if holding.Shares > 0 {
			result.Holding = holding
		}
		return nil
	})
	if err != nil {
		return nil, s.operationFailed(ctx, "sell", accountID, err)
	}

	s.LogInfo(ctx, "Shares sold",
		slog.String("account_id", accountID),
		slog.String("symbol", symbol),
		slog.Int64("shares", qty),
		slog.String("price", quote.Price.String()))
	s.publish(ctx, result)
	return result, nil
}

func (s *ledgerService) Deposit(ctx context.Context, accountID string, req dto.DepositRequest) (*domain.OperationResult, error) {
	amount, err := domain.ParseAmount(string(req.Amount))
	if err != nil {
		return nil, err
	}

	var result *domain.OperationResult
	err = s.runLocked(ctx, accountID, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		account, err := tx.FindAccountForUpdate(ctx, accountID)
		if err != nil {
			return accountErr(accountID, err)
		}

		now := s.now()
		cash := account.CashBalance.Add(amount)
		if err := tx.UpdateCashBalance(ctx, accountID, cash, now); err != nil {
			return fmt.Errorf("failed to credit cash: %w", err)
		}
		entry, err := tx.AppendHistory(ctx, domain.NewDepositEntry(accountID, amount, now))
		if err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		result = &domain.OperationResult{CashBalance: cash, Entry: *entry}
		return nil
	})
	if err != nil {
		return nil, s.operationFailed(ctx, "deposit", accountID, err)
	}

	s.LogInfo(ctx, "Cash deposited", slog.String("account_id", accountID), slog.String("amount", amount.String()))
	s.publish(ctx, result)
	return result, nil
}

func (s *ledgerService) PortfolioSnapshot(ctx context.Context, accountID string) (*domain.PortfolioSnapshot, error) {
	account, holdings, err := s.readPortfolio(ctx, accountID)
	if err != nil {
		return nil, err
	}

	positions := make([]domain.Position, len(holdings))
	fresh := make([]bool, len(holdings))

	var g errgroup.Group
	g.SetLimit(s.snapshotConcurrency)
	for i, h := range holdings {
		g.Go(func() error {
			pos := domain.Position{Symbol: h.Symbol, Name: h.Name, Shares: h.Shares}
			quote, err := s.lookupQuote(ctx, h.Symbol)
			if err != nil {
				s.LogWarn(ctx, "Using last known price for snapshot",
					slog.String("account_id", accountID),
					slog.String("symbol", h.Symbol),
					slog.String("error", err.Error()))
				pos.Stale = true
				if h.LastPrice != nil {
					pos.Price = *h.LastPrice
				}
			} else {
				pos.Price = quote.Price
				if quote.Name != "" {
					pos.Name = quote.Name
				}
				fresh[i] = true
			}
			pos.CurrentValue = pos.Price.Mul(decimal.NewFromInt(pos.Shares))
			positions[i] = pos
			return nil
		})
	}
	_ = g.Wait() // lookups never fail the group

	snapshot := &domain.PortfolioSnapshot{
		AccountID:     accountID,
		CashBalance:   account.CashBalance,
		Positions:     positions,
		HoldingsValue: decimal.Zero,
		TakenAt:       s.now(),
	}
	for _, p := range positions {
		snapshot.HoldingsValue = snapshot.HoldingsValue.Add(p.CurrentValue)
	}
	snapshot.GrandTotal = snapshot.CashBalance.Add(snapshot.HoldingsValue)

	for i, p := range positions {
		if !fresh[i] {
			continue
		}
		if err := s.holdingRepo.UpdateHoldingQuoteCache(ctx, accountID, p.Symbol, p.Price, p.CurrentValue, snapshot.TakenAt); err != nil {
			s.LogError(ctx, err, "Failed to refresh holding price cache",
				slog.String("account_id", accountID),
				slog.String("symbol", p.Symbol))
		}
	}

	return snapshot, nil
}

// readPortfolio reads cash and holdings under the account lock so they describe the same moment.
func (s *ledgerService) readPortfolio(ctx context.Context, accountID string) (*domain.Account, []domain.Holding, error) {
	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("waiting for account lock: %w", err)
	}
	defer unlock()

	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	holdings, err := s.holdingRepo.ListHoldingsByAccount(ctx, accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list holdings", slog.String("account_id", accountID))
		return nil, nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	return account, holdings, nil
}

func (s *ledgerService) ListHistory(ctx context.Context, accountID string, params dto.ListHistoryParams) (*dto.ListHistoryResponse, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if params.NextToken != nil && *params.NextToken != "" {
		if _, _, err := pagination.DecodeToken(*params.NextToken); err != nil {
			return nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, err)
		}
	} else {
		params.NextToken = nil
	}

	entries, nextToken, err := s.historyRepo.ListHistoryByAccount(ctx, accountID, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list history", slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return dto.ToListHistoryResponse(entries, nextToken), nil
}

func (s *ledgerService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, accountErr(accountID, err)
	}
	return account, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, accountID string) (*domain.Reconciliation, error) {
	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("waiting for account lock: %w", err)
	}
	defer unlock()

	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	entries, _, err := s.historyRepo.ListHistoryByAccount(ctx, accountID, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	holdings, err := s.holdingRepo.ListHoldingsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	rec := &domain.Reconciliation{
		AccountID:      accountID,
		Entries:        len(entries),
		ExpectedCash:   account.OpeningBalance,
		ActualCash:     account.CashBalance,
		ExpectedShares: make(map[string]int64),
		ActualShares:   make(map[string]int64, len(holdings)),
	}
	for _, e := range entries {
		rec.ExpectedCash = rec.ExpectedCash.Add(e.CashDelta())
		if rec.ExpectedCash.IsNegative() {
			rec.Discrepancies = append(rec.Discrepancies,
				fmt.Sprintf("cash went negative (%s) at history entry %d", rec.ExpectedCash.StringFixed(2), e.ID))
		}
		if sym := e.SymbolOrEmpty(); sym != "" {
			rec.ExpectedShares[sym] += e.ShareDelta()
			if rec.ExpectedShares[sym] < 0 {
				rec.Discrepancies = append(rec.Discrepancies,
					fmt.Sprintf("%s shares went negative at history entry %d", sym, e.ID))
			}
		}
	}
	for sym, n := range rec.ExpectedShares {
		if n == 0 {
			delete(rec.ExpectedShares, sym)
		}
	}
	for _, h := range holdings {
		rec.ActualShares[h.Symbol] = h.Shares
	}

	if !rec.ExpectedCash.Equal(rec.ActualCash) {
		rec.Discrepancies = append(rec.Discrepancies,
			fmt.Sprintf("cash balance is %s but history replays to %s", rec.ActualCash.StringFixed(2), rec.ExpectedCash.StringFixed(2)))
	}
	symbols := make(map[string]struct{})
	for sym := range rec.ExpectedShares {
		symbols[sym] = struct{}{}
	}
	for sym := range rec.ActualShares {
		symbols[sym] = struct{}{}
	}
	sorted := make([]string, 0, len(symbols))
	for sym := range symbols {
		sorted = append(sorted, sym)
	}
	sort.Strings(sorted)
	for _, sym := range sorted {
		if want, got := rec.ExpectedShares[sym], rec.ActualShares[sym]; want != got {
			rec.Discrepancies = append(rec.Discrepancies,
				fmt.Sprintf("%s holds %d shares but history replays to %d", sym, got, want))
		}
	}

	if !rec.Consistent() {
		s.LogWarn(ctx, "Account failed reconciliation",
			slog.String("account_id", accountID),
			slog.Int("discrepancies", len(rec.Discrepancies)))
	}
	return rec, nil
}

func (s *ledgerService) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	normalized, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.lookupQuote(ctx, normalized)
}

// lookupQuote asks the provider for symbol and narrows every failure to UnknownSymbol or QuoteUnavailable.
func (s *ledgerService) lookupQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	quote, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnknownSymbol) || errors.Is(err, apperrors.ErrQuoteUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQuoteUnavailable, err)
	}
	if quote == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSymbol, symbol)
	}
	q := quote.Normalized()
	if !q.Price.IsPositive() {
		return nil, fmt.Errorf("%w: provider returned non-positive price %s for %s", apperrors.ErrQuoteUnavailable, q.Price, symbol)
	}
	q.Symbol = symbol
	return &q, nil
}

// runLocked runs fn in a store transaction while holding the account lock.
// Once the lock is held the transaction is detached from caller cancellation so it always commits or rolls back.
func (s *ledgerService) runLocked(ctx context.Context, accountID string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return fmt.Errorf("waiting for account lock: %w", err)
	}
	defer unlock()
	return s.txManager.WithinTx(context.WithoutCancel(ctx), fn)
}

// operationFailed logs infrastructure failures; ledger rule violations are returned untouched.
func (s *ledgerService) operationFailed(ctx context.Context, op, accountID string, err error) error {
	if isLedgerRuleError(err) {
		s.LogDebug(ctx, "Ledger operation rejected",
			slog.String("operation", op),
			slog.String("account_id", accountID),
			slog.String("reason", err.Error()))
		return err
	}
	s.LogError(ctx, err, "Ledger operation failed", slog.String("operation", op), slog.String("account_id", accountID))
	return err
}

// publish announces a committed operation. Failures are logged and never surface to the caller.
func (s *ledgerService) publish(ctx context.Context, result *domain.OperationResult) {
	if s.events == nil || result == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	event := domain.NewLedgerEvent(s.newEventID(), *result)
	if err := s.events.Publish(pctx, event); err != nil {
		s.LogError(ctx, err, "Failed to publish ledger event",
			slog.String("account_id", event.AccountID),
			slog.String("event_id", event.EventID),
			slog.String("action", string(event.Action)))
	}
}

func isLedgerRuleError(err error) bool {
	for _, kind := range []error{
		apperrors.ErrNotFound,
		apperrors.ErrValidation,
		apperrors.ErrInsufficientFunds,
		apperrors.ErrInsufficientShares,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func accountErr(accountID string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
	}
	return fmt.Errorf("failed to read account: %w", err)
}

func holdingErr(symbol string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: you do not own any shares of %s", apperrors.ErrHoldingNotFound, symbol)
	}
	return fmt.Errorf("failed to read holding: %w", err)
}
