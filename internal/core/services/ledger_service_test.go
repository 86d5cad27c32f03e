package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/core/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testAccountID = "acc-1"

// --- Test Suite Setup ---

type LedgerServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	repos     portsrepo.RepositoryProvider
	quotes    *MockQuoteProvider
	publisher *MockEventPublisher
	service   portssvc.LedgerSvcFacade
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.repos = memory.NewRepositoryProvider()
	suite.quotes = new(MockQuoteProvider)
	suite.publisher = new(MockEventPublisher)
	suite.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	suite.service = services.NewLedgerService(suite.repos, suite.quotes,
		services.WithClock(newStepClock().Now),
		services.WithEventPublisher(suite.publisher),
	)
	suite.openAccount(testAccountID, "10000.00")
}

func (suite *LedgerServiceTestSuite) openAccount(id, cash string) {
	c := decimal.RequireFromString(cash)
	suite.Require().NoError(suite.repos.AccountRepo.SaveAccount(suite.ctx, domain.Account{
		AccountID:      id,
		Username:       "user-" + id,
		CashBalance:    c,
		OpeningBalance: c,
	}))
}

func (suite *LedgerServiceTestSuite) cash(id string) decimal.Decimal {
	acc, err := suite.repos.AccountRepo.FindAccountByID(suite.ctx, id)
	suite.Require().NoError(err)
	return acc.CashBalance
}

func (suite *LedgerServiceTestSuite) history(id string) []domain.HistoryEntry {
	entries, _, err := suite.repos.HistoryRepo.ListHistoryByAccount(suite.ctx, id, 0, nil)
	suite.Require().NoError(err)
	return entries
}

func (suite *LedgerServiceTestSuite) assertCash(id, want string) {
	suite.True(decimal.RequireFromString(want).Equal(suite.cash(id)), "cash is %s, want %s", suite.cash(id), want)
}

func trade(symbol, qty string) dto.TradeRequest {
	return dto.TradeRequest{Symbol: symbol, Quantity: dto.RawNumber(qty)}
}

// --- Test Cases ---

func (suite *LedgerServiceTestSuite) TestBuySellScenario() {
	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("AAPL", "150.00"), nil).Once()
	bought, err := suite.service.Buy(suite.ctx, testAccountID, trade("AAPL", "10"))
	suite.Require().NoError(err)
	suite.True(decimal.RequireFromString("8500").Equal(bought.CashBalance))
	suite.Require().NotNil(bought.Holding)
	suite.Equal(int64(10), bought.Holding.Shares)
	suite.Equal("AAPL Inc.", bought.Holding.Name)
	suite.Equal(domain.ActionBought, bought.Entry.Action)
	suite.assertCash(testAccountID, "8500")

	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("AAPL", "160.00"), nil).Once()
	sold, err := suite.service.Sell(suite.ctx, testAccountID, trade("AAPL", "10"))
	suite.Require().NoError(err)
	suite.True(decimal.RequireFromString("10100").Equal(sold.CashBalance))
	suite.Nil(sold.Holding)
	_, err = suite.repos.HoldingRepo.FindHolding(suite.ctx, testAccountID, "AAPL")
	suite.ErrorIs(err, apperrors.ErrNotFound)

	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("AAPL", "150.00"), nil).Once()
	_, err = suite.service.Buy(suite.ctx, testAccountID, trade("AAPL", "1000"))
	suite.Require().ErrorIs(err, apperrors.ErrInsufficientFunds)
	var fundsErr *apperrors.InsufficientFundsError
	suite.Require().True(errors.As(err, &fundsErr))
	suite.True(decimal.RequireFromString("150000").Equal(fundsErr.Required))
	suite.True(decimal.RequireFromString("10100").Equal(fundsErr.Available))
	suite.assertCash(testAccountID, "10100")

	entries := suite.history(testAccountID)
	suite.Require().Len(entries, 2)
	suite.Equal(domain.ActionBought, entries[0].Action)
	suite.Equal(domain.ActionSold, entries[1].Action)
	suite.True(decimal.RequireFromString("160").Equal(entries[1].Price))
	suite.quotes.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestBuy_AccountNotFound() {
	_, err := suite.service.Buy(suite.ctx, "ghost", trade("AAPL", "1"))
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)
	suite.quotes.AssertNotCalled(suite.T(), "Lookup", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestBuy_InvalidQuantity() {
	for _, qty := range []string{"0", "-3", "1.5", "abc", ""} {
		_, err := suite.service.Buy(suite.ctx, testAccountID, trade("AAPL", qty))
		suite.ErrorIs(err, apperrors.ErrInvalidQuantity, "quantity %q", qty)
	}
	suite.quotes.AssertNotCalled(suite.T(), "Lookup", mock.Anything, mock.Anything)
	suite.Empty(suite.history(testAccountID))
}

func (suite *LedgerServiceTestSuite) TestBuy_QuoteFailuresLeaveStoresUntouched() {
	suite.quotes.On("Lookup", mock.Anything, "ZZZZ").Return(nil, apperrors.ErrUnknownSymbol).Once()
	_, err := suite.service.Buy(suite.ctx, testAccountID, trade("zzzz", "1"))
	suite.ErrorIs(err, apperrors.ErrUnknownSymbol)

	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(nil, errors.New("connection reset")).Once()
	_, err = suite.service.Buy(suite.ctx, testAccountID, trade("AAPL", "1"))
	suite.ErrorIs(err, apperrors.ErrQuoteUnavailable)
	suite.NotErrorIs(err, apperrors.ErrUnknownSymbol)

	suite.assertCash(testAccountID, "10000")
	suite.Empty(suite.history(testAccountID))
	holdings, err := suite.repos.HoldingRepo.ListHoldingsByAccount(suite.ctx, testAccountID)
	suite.Require().NoError(err)
	suite.Empty(holdings)
}

func (suite *LedgerServiceTestSuite) TestBuy_AddsToExistingHolding() {
	suite.quotes.On("Lookup", mock.Anything, "MSFT").Return(quote("MSFT", "100"), nil).Once()
	suite.quotes.On("Lookup", mock.Anything, "MSFT").Return(quote("MSFT", "110.123456"), nil).Once()

	_, err := suite.service.Buy(suite.ctx, testAccountID, trade("MSFT", "2"))
	suite.Require().NoError(err)
	res, err := suite.service.Buy(suite.ctx, testAccountID, trade("MSFT", " 3 "))
	suite.Require().NoError(err)

	suite.Equal(int64(5), res.Holding.Shares)
	// Prices are kept at four decimal places.
	suite.True(decimal.RequireFromString("110.1235").Equal(res.Entry.Price))
	suite.assertCash(testAccountID, "9469.6295")
}

func (suite *LedgerServiceTestSuite) TestSell_HoldingNotFound() {
	_, err := suite.service.Sell(suite.ctx, testAccountID, trade("AAPL", "1"))
	suite.ErrorIs(err, apperrors.ErrHoldingNotFound)
	suite.quotes.AssertNotCalled(suite.T(), "Lookup", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestSell_InsufficientShares() {
	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("AAPL", "10"), nil).Once()
	_, err := suite.service.Buy(suite.ctx, testAccountID, trade("AAPL", "5"))
	suite.Require().NoError(err)

	_, err = suite.service.Sell(suite.ctx, testAccountID, trade("AAPL", "6"))
	suite.Require().ErrorIs(err, apperrors.ErrInsufficientShares)
	var sharesErr *apperrors.InsufficientSharesError
	suite.Require().True(errors.As(err, &sharesErr))
	suite.Equal(int64(5), sharesErr.Held)
	suite.Equal("AAPL", sharesErr.Symbol)
	suite.Contains(err.Error(), "only have 5 shares of AAPL")
	suite.quotes.AssertNumberOfCalls(suite.T(), "Lookup", 1)
}

func (suite *LedgerServiceTestSuite) TestSell_QuoteUnavailableLeavesStoresUntouched() {
	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("AAPL", "10"), nil).Once()
	_, err := suite.service.Buy(suite.ctx, testAccountID, trade("AAPL", "5"))
	suite.Require().NoError(err)

	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(nil, apperrors.ErrQuoteUnavailable).Once()
	_, err = suite.service.Sell(suite.ctx, testAccountID, trade("AAPL", "5"))
	suite.ErrorIs(err, apperrors.ErrQuoteUnavailable)

	suite.assertCash(testAccountID, "9950")
	h, err := suite.repos.HoldingRepo.FindHolding(suite.ctx, testAccountID, "AAPL")
	suite.Require().NoError(err)
	suite.Equal(int64(5), h.Shares)
	suite.Len(suite.history(testAccountID), 1)
}

func (suite *LedgerServiceTestSuite) TestSell_PartialKeepsHolding() {
	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("AAPL", "10"), nil).Twice()
	_, err := suite.service.Buy(suite.ctx, testAccountID, trade("AAPL", "5"))
	suite.Require().NoError(err)

	res, err := suite.service.Sell(suite.ctx, testAccountID, trade("AAPL", "2"))
	suite.Require().NoError(err)
	suite.Require().NotNil(res.Holding)
	suite.Equal(int64(3), res.Holding.Shares)
	suite.assertCash(testAccountID, "9970")
}

func (suite *LedgerServiceTestSuite) TestDeposit() {
	res, err := suite.service.Deposit(suite.ctx, testAccountID, dto.DepositRequest{Amount: "250.75"})
	suite.Require().NoError(err)
	suite.True(decimal.RequireFromString("10250.75").Equal(res.CashBalance))
	suite.Nil(res.Holding)
	suite.Equal(domain.ActionDeposit, res.Entry.Action)
	suite.Nil(res.Entry.Symbol)
	suite.Nil(res.Entry.Shares)
	suite.True(decimal.RequireFromString("250.75").Equal(res.Entry.Price))

	for _, amount := range []string{"0", "-5", "abc", "1.005", "12abc"} {
		_, err := suite.service.Deposit(suite.ctx, testAccountID, dto.DepositRequest{Amount: dto.RawNumber(amount)})
		suite.ErrorIs(err, apperrors.ErrInvalidAmount, "amount %q", amount)
	}
	suite.assertCash(testAccountID, "10250.75")

	_, err = suite.service.Deposit(suite.ctx, "ghost", dto.DepositRequest{Amount: "5"})
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)
}

func (suite *LedgerServiceTestSuite) TestPortfolioSnapshot_DegradesToLastPrice() {
	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("AAPL", "100"), nil).Once()
	suite.quotes.On("Lookup", mock.Anything, "MSFT").Return(quote("MSFT", "50"), nil).Once()
	_, err := suite.service.Buy(suite.ctx, testAccountID, trade("AAPL", "10"))
	suite.Require().NoError(err)
	_, err = suite.service.Buy(suite.ctx, testAccountID, trade("MSFT", "4"))
	suite.Require().NoError(err)

	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("AAPL", "120"), nil).Once()
	suite.quotes.On("Lookup", mock.Anything, "MSFT").Return(nil, apperrors.ErrQuoteUnavailable).Once()

	snap, err := suite.service.PortfolioSnapshot(suite.ctx, testAccountID)
	suite.Require().NoError(err)
	suite.Require().Len(snap.Positions, 2)

	aapl, msft := snap.Positions[0], snap.Positions[1]
	suite.Equal("AAPL", aapl.Symbol)
	suite.False(aapl.Stale)
	suite.True(decimal.RequireFromString("1200").Equal(aapl.CurrentValue))
	suite.Equal("MSFT", msft.Symbol)
	suite.True(msft.Stale)
	suite.True(decimal.RequireFromString("50").Equal(msft.Price))
	suite.True(decimal.RequireFromString("200").Equal(msft.CurrentValue))

	suite.True(decimal.RequireFromString("8800").Equal(snap.CashBalance))
	suite.True(decimal.RequireFromString("1400").Equal(snap.HoldingsValue))
	suite.True(decimal.RequireFromString("10200").Equal(snap.GrandTotal))

	// Only fresh quotes are written back, and never to share counts.
	h, err := suite.repos.HoldingRepo.FindHolding(suite.ctx, testAccountID, "AAPL")
	suite.Require().NoError(err)
	suite.True(decimal.RequireFromString("120").Equal(*h.LastPrice))
	suite.Equal(int64(10), h.Shares)
	h, err = suite.repos.HoldingRepo.FindHolding(suite.ctx, testAccountID, "MSFT")
	suite.Require().NoError(err)
	suite.True(decimal.RequireFromString("50").Equal(*h.LastPrice))
}

func (suite *LedgerServiceTestSuite) TestPortfolioSnapshot_AccountNotFound() {
	_, err := suite.service.PortfolioSnapshot(suite.ctx, "ghost")
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)
}

func (suite *LedgerServiceTestSuite) TestListHistory_OrderAndPagination() {
	for i := 1; i <= 5; i++ {
		_, err := suite.service.Deposit(suite.ctx, testAccountID, dto.DepositRequest{Amount: dto.RawNumber(fmt.Sprint(i))})
		suite.Require().NoError(err)
	}

	first, err := suite.service.ListHistory(suite.ctx, testAccountID, dto.ListHistoryParams{Limit: 3})
	suite.Require().NoError(err)
	suite.Require().Len(first.Entries, 3)
	suite.Require().NotNil(first.NextToken)
	for i, e := range first.Entries {
		suite.True(decimal.NewFromInt(int64(i + 1)).Equal(e.Price))
	}

	second, err := suite.service.ListHistory(suite.ctx, testAccountID, dto.ListHistoryParams{Limit: 3, NextToken: first.NextToken})
	suite.Require().NoError(err)
	suite.Require().Len(second.Entries, 2)
	suite.Nil(second.NextToken)
	suite.Greater(second.Entries[0].ID, first.Entries[2].ID)

	bad := "%%%"
	_, err = suite.service.ListHistory(suite.ctx, testAccountID, dto.ListHistoryParams{Limit: 3, NextToken: &bad})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.ListHistory(suite.ctx, "ghost", dto.ListHistoryParams{})
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)
}

func (suite *LedgerServiceTestSuite) TestReconcile() {
	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("AAPL", "100"), nil)
	_, err := suite.service.Buy(suite.ctx, testAccountID, trade("AAPL", "7"))
	suite.Require().NoError(err)
	_, err = suite.service.Sell(suite.ctx, testAccountID, trade("AAPL", "2"))
	suite.Require().NoError(err)
	_, err = suite.service.Deposit(suite.ctx, testAccountID, dto.DepositRequest{Amount: "10"})
	suite.Require().NoError(err)

	rec, err := suite.service.Reconcile(suite.ctx, testAccountID)
	suite.Require().NoError(err)
	suite.True(rec.Consistent(), "discrepancies: %v", rec.Discrepancies)
	suite.Equal(3, rec.Entries)
	suite.Equal(int64(5), rec.ExpectedShares["AAPL"])
	suite.True(decimal.RequireFromString("9510").Equal(rec.ExpectedCash))

	// Tamper with the balance behind the ledger's back.
	suite.Require().NoError(suite.repos.TxManager.WithinTx(suite.ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.UpdateCashBalance(ctx, testAccountID, decimal.RequireFromString("1"), time.Now())
	}))
	rec, err = suite.service.Reconcile(suite.ctx, testAccountID)
	suite.Require().NoError(err)
	suite.False(rec.Consistent())
	suite.Require().Len(rec.Discrepancies, 1)
	suite.Contains(rec.Discrepancies[0], "history replays to 9510.00")
}

func (suite *LedgerServiceTestSuite) TestEventsArePublishedAfterCommit() {
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.LedgerEvent) bool {
		return e.Action == domain.ActionDeposit && e.AccountID == testAccountID && e.Amount.Equal(decimal.NewFromInt(5))
	})).Return(errors.New("broker down")).Once()

	svc := services.NewLedgerService(suite.repos, suite.quotes, services.WithEventPublisher(publisher))
	res, err := svc.Deposit(suite.ctx, testAccountID, dto.DepositRequest{Amount: "5"})
	suite.Require().NoError(err, "publish failures must not fail the operation")
	suite.True(decimal.RequireFromString("10005").Equal(res.CashBalance))
	publisher.AssertExpectations(suite.T())

	_, err = svc.Deposit(suite.ctx, testAccountID, dto.DepositRequest{Amount: "0"})
	suite.Error(err)
	publisher.AssertNumberOfCalls(suite.T(), "Publish", 1)
}

func (suite *LedgerServiceTestSuite) TestGetQuote() {
	suite.quotes.On("Lookup", mock.Anything, "AAPL").Return(quote("aapl", "150.5"), nil).Once()
	q, err := suite.service.GetQuote(suite.ctx, " aapl ")
	suite.Require().NoError(err)
	suite.Equal("AAPL", q.Symbol)

	_, err = suite.service.GetQuote(suite.ctx, "")
	suite.ErrorIs(err, apperrors.ErrUnknownSymbol)
}

// TestLedgerServiceTestSuite runs the test suite
func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func TestConcurrentBuys_NoDoubleSpend(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()
	require.NoError(t, repos.AccountRepo.SaveAccount(ctx, domain.Account{
		AccountID: "acc", Username: "acc",
		CashBalance: decimal.NewFromInt(1000), OpeningBalance: decimal.NewFromInt(1000),
	}))
	svc := services.NewLedgerService(repos, newPriceBoard(map[string]string{"AAPL": "100"}))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Buy(ctx, "acc", trade("AAPL", "1"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 40, rejected)

	acc, err := repos.AccountRepo.FindAccountByID(ctx, "acc")
	require.NoError(t, err)
	assert.True(t, acc.CashBalance.IsZero(), "cash is %s", acc.CashBalance)
	h, err := repos.HoldingRepo.FindHolding(ctx, "acc", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(10), h.Shares)

	rec, err := svc.Reconcile(ctx, "acc")
	require.NoError(t, err)
	assert.True(t, rec.Consistent(), "discrepancies: %v", rec.Discrepancies)
}

func TestConcurrentAccountsProceedIndependently(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()
	svc := services.NewLedgerService(repos, newPriceBoard(map[string]string{"AAPL": "1"}))

	const accounts = 8
	for i := 0; i < accounts; i++ {
		id := fmt.Sprintf("acc-%d", i)
		require.NoError(t, repos.AccountRepo.SaveAccount(ctx, domain.Account{
			AccountID: id, Username: id,
			CashBalance: decimal.NewFromInt(100), OpeningBalance: decimal.NewFromInt(100),
		}))
	}

	var wg sync.WaitGroup
	for i := 0; i < accounts; i++ {
		id := fmt.Sprintf("acc-%d", i)
		for j := 0; j < 10; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Buy(ctx, id, trade("AAPL", "3")); err != nil {
					t.Errorf("buy on %s: %v", id, err)
				}
			}()
		}
	}
	wg.Wait()

	for i := 0; i < accounts; i++ {
		id := fmt.Sprintf("acc-%d", i)
		acc, err := repos.AccountRepo.FindAccountByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(70).Equal(acc.CashBalance), "%s cash %s", id, acc.CashBalance)
	}
}
