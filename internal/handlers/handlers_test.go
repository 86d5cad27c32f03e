package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/handlers"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/SscSPs/portfolio_ledger/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type HandlerTestSuite struct {
	suite.Suite
	cfg         *config.Config
	router      *gin.Engine
	ledger      *MockLedgerService
	auth        *MockAuthService
	accountID   string
	accessToken string
}

func testConfig() *config.Config {
	return &config.Config{
		IsProduction:      true,
		JWTSecret:         "test-secret-key-that-is-long-enough",
		JWTIssuer:         "ledger-test",
		JWTExpiryDuration: time.Hour,
		RateLimit:         "1000-M",
		AuthRateLimit:     "1000-M",
	}
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.cfg = testConfig()
	s.ledger = new(MockLedgerService)
	s.auth = new(MockAuthService)
	s.router = s.newRouter(s.cfg)

	s.accountID = uuid.NewString()
	token, err := utils.GenerateJWT(s.accountID, s.cfg.JWTSecret, time.Hour, s.cfg.JWTIssuer)
	s.Require().NoError(err)
	s.accessToken = token
}

func (s *HandlerTestSuite) TearDownTest() {
	s.ledger.AssertExpectations(s.T())
	s.auth.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) newRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	err := handlers.RegisterRoutes(r, cfg, &portssvc.ServiceContainer{Ledger: s.ledger, Auth: s.auth})
	s.Require().NoError(err)
	return r
}

func (s *HandlerTestSuite) do(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) authed(method, path, body string) *httptest.ResponseRecorder {
	return s.do(s.router, method, path, body, s.accessToken)
}

func (s *HandlerTestSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func buyResult(accountID string) *domain.OperationResult {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := domain.NewTradeEntry(accountID, domain.ActionBought, "AAPL", 10, decimal.RequireFromString("150.1234"), at)
	entry.ID = 7
	holding := &domain.Holding{AccountID: accountID, Symbol: "AAPL", Name: "Apple Inc.", Shares: 10}
	holding.MarkPrice(decimal.RequireFromString("150.1234"), at)
	return &domain.OperationResult{
		CashBalance: decimal.RequireFromString("8498.766"),
		Holding:     holding,
		Entry:       entry,
	}
}

func (s *HandlerTestSuite) TestHealth() {
	w := s.do(s.router, http.MethodGet, "/health", "", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("OK", w.Body.String())
}

func (s *HandlerTestSuite) TestAuthRequired() {
	w := s.do(s.router, http.MethodGet, "/api/v1/portfolio", "", "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(s.router, http.MethodGet, "/api/v1/portfolio", "", "not-a-jwt")
	s.Equal(http.StatusUnauthorized, w.Code)

	expired, err := utils.GenerateJWT(s.accountID, s.cfg.JWTSecret, -time.Minute, s.cfg.JWTIssuer)
	s.Require().NoError(err)
	w = s.do(s.router, http.MethodGet, "/api/v1/portfolio", "", expired)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Contains(w.Body.String(), "Token has expired")

	forged, err := utils.GenerateJWT(s.accountID, "some-other-secret-entirely", time.Hour, s.cfg.JWTIssuer)
	s.Require().NoError(err)
	w = s.do(s.router, http.MethodGet, "/api/v1/portfolio", "", forged)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerTestSuite) TestBuy_Success() {
	s.ledger.On("Buy", mock.Anything, s.accountID, dto.TradeRequest{Symbol: "AAPL", Quantity: "10"}).
		Return(buyResult(s.accountID), nil).Once()

	w := s.authed(http.MethodPost, "/api/v1/portfolio/buy", `{"symbol":"AAPL","quantity":10}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.OperationResponse
	s.decode(w, &resp)
	s.True(resp.CashBalance.Equal(decimal.RequireFromString("8498.766")))
	s.Require().NotNil(resp.Holding)
	s.Equal(int64(10), resp.Holding.Shares)
	s.Equal(int64(7), resp.Entry.ID)
	s.Equal(domain.ActionBought, resp.Entry.Action)
}

func (s *HandlerTestSuite) TestBuy_QuantityPassedVerbatim() {
	// Parsing belongs to the service; the handler forwards the literal text.
	s.ledger.On("Buy", mock.Anything, s.accountID, dto.TradeRequest{Symbol: "AAPL", Quantity: "1.5"}).
		Return(nil, apperrors.ErrInvalidQuantity).Once()

	w := s.authed(http.MethodPost, "/api/v1/portfolio/buy", `{"symbol":"AAPL","quantity":"1.5"}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestBuy_BindingFailure() {
	w := s.authed(http.MethodPost, "/api/v1/portfolio/buy", `{"quantity":10}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "Invalid request")
	s.ledger.AssertNotCalled(s.T(), "Buy", mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestErrorStatusMapping() {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"account not found", apperrors.ErrAccountNotFound, http.StatusNotFound},
		{"invalid quantity", apperrors.ErrInvalidQuantity, http.StatusBadRequest},
		{"unknown symbol", fmt.Errorf("%w: ZZZZ", apperrors.ErrUnknownSymbol), http.StatusBadRequest},
		{"insufficient funds", &apperrors.InsufficientFundsError{Required: decimal.NewFromInt(2000), Available: decimal.NewFromInt(10)}, http.StatusUnprocessableEntity},
		{"quote unavailable", fmt.Errorf("%w: timeout", apperrors.ErrQuoteUnavailable), http.StatusServiceUnavailable},
		{"duplicate", apperrors.ErrDuplicate, http.StatusConflict},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{"internal", errors.New("connection reset by peer"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.ledger.On("Buy", mock.Anything, s.accountID, mock.Anything).Return(nil, tc.err).Once()
			w := s.authed(http.MethodPost, "/api/v1/portfolio/buy", `{"symbol":"AAPL","quantity":1}`)
			s.Equal(tc.status, w.Code)
		})
	}
}

func (s *HandlerTestSuite) TestInternalErrorIsHidden() {
	s.ledger.On("Deposit", mock.Anything, s.accountID, dto.DepositRequest{Amount: "100"}).
		Return(nil, errors.New("pq: password authentication failed")).Once()

	w := s.authed(http.MethodPost, "/api/v1/portfolio/deposit", `{"amount":100}`)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "password")

	var resp handlers.ErrorResponse
	s.decode(w, &resp)
	s.Equal("Failed to deposit cash", resp.Error)
}

func (s *HandlerTestSuite) TestInsufficientDetails() {
	s.ledger.On("Buy", mock.Anything, s.accountID, mock.Anything).
		Return(nil, &apperrors.InsufficientFundsError{Required: decimal.RequireFromString("1501.234"), Available: decimal.NewFromInt(1000)}).Once()
	s.ledger.On("Sell", mock.Anything, s.accountID, mock.Anything).
		Return(nil, &apperrors.InsufficientSharesError{Symbol: "AAPL", Held: 5, Requested: 10}).Once()

	w := s.authed(http.MethodPost, "/api/v1/portfolio/buy", `{"symbol":"AAPL","quantity":10}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	var funds handlers.ErrorResponse
	s.decode(w, &funds)
	s.Equal("1501.23", funds.Details["required"])
	s.Equal("1000.00", funds.Details["available"])

	w = s.authed(http.MethodPost, "/api/v1/portfolio/sell", `{"symbol":"AAPL","quantity":10}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	var shares handlers.ErrorResponse
	s.decode(w, &shares)
	s.Equal("AAPL", shares.Details["symbol"])
	s.EqualValues(5, shares.Details["held"])
	s.EqualValues(10, shares.Details["requested"])
}

func (s *HandlerTestSuite) TestSell_ClosedPosition() {
	at := time.Now().UTC()
	s.ledger.On("Sell", mock.Anything, s.accountID, dto.TradeRequest{Symbol: "aapl", Quantity: "10"}).
		Return(&domain.OperationResult{
			CashBalance: decimal.NewFromInt(10000),
			Entry:       domain.NewTradeEntry(s.accountID, domain.ActionSold, "AAPL", 10, decimal.NewFromInt(150), at),
		}, nil).Once()

	w := s.authed(http.MethodPost, "/api/v1/portfolio/sell", `{"symbol":"aapl","quantity":"10"}`)
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotContains(w.Body.String(), `"holding"`)
}

func (s *HandlerTestSuite) TestPortfolio() {
	s.ledger.On("PortfolioSnapshot", mock.Anything, s.accountID).Return(&domain.PortfolioSnapshot{
		AccountID:   s.accountID,
		CashBalance: decimal.NewFromInt(8500),
		Positions: []domain.Position{
			{Symbol: "AAPL", Name: "Apple Inc.", Shares: 10, Price: decimal.NewFromInt(150), CurrentValue: decimal.NewFromInt(1500), Stale: true},
		},
		HoldingsValue: decimal.NewFromInt(1500),
		GrandTotal:    decimal.NewFromInt(10000),
		TakenAt:       time.Now().UTC(),
	}, nil).Once()

	w := s.authed(http.MethodGet, "/api/v1/portfolio", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.PortfolioResponse
	s.decode(w, &resp)
	s.Require().Len(resp.Positions, 1)
	s.True(resp.Positions[0].Stale)
	s.True(resp.GrandTotal.Equal(decimal.NewFromInt(10000)))
}

func (s *HandlerTestSuite) TestListHistory_QueryBinding() {
	token := "opaque-token"
	next := "next-page"
	s.ledger.On("ListHistory", mock.Anything, s.accountID, mock.MatchedBy(func(p dto.ListHistoryParams) bool {
		return p.Limit == 5 && p.NextToken != nil && *p.NextToken == token
	})).Return(&dto.ListHistoryResponse{Entries: []dto.HistoryEntryResponse{}, NextToken: &next}, nil).Once()
	s.ledger.On("ListHistory", mock.Anything, s.accountID, mock.MatchedBy(func(p dto.ListHistoryParams) bool {
		return p.Limit == 20 && p.NextToken == nil
	})).Return(&dto.ListHistoryResponse{Entries: []dto.HistoryEntryResponse{}}, nil).Once()

	w := s.authed(http.MethodGet, "/api/v1/history?limit=5&nextToken="+token, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var page dto.ListHistoryResponse
	s.decode(w, &page)
	s.Require().NotNil(page.NextToken)
	s.Equal(next, *page.NextToken)

	w = s.authed(http.MethodGet, "/api/v1/history", "")
	s.Equal(http.StatusOK, w.Code)

	w = s.authed(http.MethodGet, "/api/v1/history?limit=500", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestQuote() {
	s.ledger.On("GetQuote", mock.Anything, "aapl").
		Return(&domain.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.RequireFromString("150.1235")}, nil).Once()
	s.ledger.On("GetQuote", mock.Anything, "NOPE").Return(nil, apperrors.ErrUnknownSymbol).Once()

	w := s.authed(http.MethodGet, "/api/v1/quotes/aapl", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var q dto.QuoteResponse
	s.decode(w, &q)
	s.Equal("AAPL", q.Symbol)
	s.True(q.Price.Equal(decimal.RequireFromString("150.1235")))

	w = s.authed(http.MethodGet, "/api/v1/quotes/NOPE", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestAccountAndAudit() {
	s.ledger.On("GetAccount", mock.Anything, s.accountID).
		Return(&domain.Account{AccountID: s.accountID, Username: "alice", CashBalance: decimal.NewFromInt(10000)}, nil).Once()
	s.ledger.On("Reconcile", mock.Anything, s.accountID).
		Return(&domain.Reconciliation{AccountID: s.accountID, Entries: 2, Discrepancies: []string{"cash mismatch"}}, nil).Once()

	w := s.authed(http.MethodGet, "/api/v1/account", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotContains(w.Body.String(), "passwordHash")
	var acct dto.AccountResponse
	s.decode(w, &acct)
	s.Equal("alice", acct.Username)

	w = s.authed(http.MethodGet, "/api/v1/account/audit", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var rec dto.ReconciliationResponse
	s.decode(w, &rec)
	s.False(rec.Consistent)
	s.Equal([]string{"cash mismatch"}, rec.Discrepancies)
}

func (s *HandlerTestSuite) TestReport() {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ledger.On("GetAccount", mock.Anything, s.accountID).
		Return(&domain.Account{AccountID: s.accountID, Username: "alice"}, nil).Once()
	s.ledger.On("PortfolioSnapshot", mock.Anything, s.accountID).Return(&domain.PortfolioSnapshot{
		CashBalance:   decimal.NewFromInt(8500),
		Positions:     []domain.Position{{Symbol: "AAPL", Name: "Apple Inc.", Shares: 10, Price: decimal.NewFromInt(150), CurrentValue: decimal.NewFromInt(1500)}},
		HoldingsValue: decimal.NewFromInt(1500),
		GrandTotal:    decimal.NewFromInt(10000),
		TakenAt:       at,
	}, nil).Once()
	s.ledger.On("ListHistory", mock.Anything, s.accountID, dto.ListHistoryParams{Limit: 100}).
		Return(dto.ToListHistoryResponse([]domain.HistoryEntry{
			domain.NewTradeEntry(s.accountID, domain.ActionBought, "AAPL", 10, decimal.NewFromInt(150), at),
		}, nil), nil).Once()
	s.ledger.On("Reconcile", mock.Anything, s.accountID).
		Return(&domain.Reconciliation{AccountID: s.accountID, Entries: 1}, nil).Once()

	w := s.authed(http.MethodGet, "/api/v1/portfolio/report", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.True(strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	s.Contains(w.Body.String(), "<h1>Portfolio of alice</h1>")
	s.Contains(w.Body.String(), "<td>AAPL</td>")
}

func (s *HandlerTestSuite) TestRegister() {
	created := &domain.Account{AccountID: uuid.NewString(), Username: "alice", CashBalance: decimal.NewFromInt(10000)}
	s.auth.On("Register", mock.Anything, dto.RegisterRequest{Username: "alice", Password: "correct-horse"}).Return(created, nil).Once()
	s.auth.On("Register", mock.Anything, dto.RegisterRequest{Username: "bob", Password: "correct-horse"}).
		Return(nil, fmt.Errorf("%w: username taken", apperrors.ErrDuplicate)).Once()

	w := s.do(s.router, http.MethodPost, "/api/v1/auth/register", `{"username":"alice","password":"correct-horse"}`, "")
	s.Require().Equal(http.StatusCreated, w.Code)
	var acct dto.AccountResponse
	s.decode(w, &acct)
	s.Equal(created.AccountID, acct.AccountID)

	w = s.do(s.router, http.MethodPost, "/api/v1/auth/register", `{"username":"bob","password":"correct-horse"}`, "")
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(s.router, http.MethodPost, "/api/v1/auth/register", `{"username":"carol","password":"short"}`, "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestLoginAndRefresh() {
	issued := &dto.LoginResponse{AccountID: s.accountID, Token: "jwt", ExpiresAt: time.Now().Add(time.Hour), RefreshToken: "refresh"}
	s.auth.On("Login", mock.Anything, dto.LoginRequest{Username: "alice", Password: "correct-horse"}).Return(issued, nil).Once()
	s.auth.On("Login", mock.Anything, dto.LoginRequest{Username: "alice", Password: "wrong"}).Return(nil, apperrors.ErrUnauthorized).Once()
	s.auth.On("RefreshToken", mock.Anything, dto.RefreshTokenRequest{AccountID: s.accountID, RefreshToken: "stale"}).
		Return(nil, apperrors.ErrRefreshTokenExpired).Once()

	w := s.do(s.router, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"correct-horse"}`, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var resp dto.LoginResponse
	s.decode(w, &resp)
	s.Equal("refresh", resp.RefreshToken)

	w = s.do(s.router, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"wrong"}`, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	body := fmt.Sprintf(`{"accountID":%q,"refreshToken":"stale"}`, s.accountID)
	w = s.do(s.router, http.MethodPost, "/api/v1/auth/refresh", body, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerTestSuite) TestLogout() {
	s.auth.On("Logout", mock.Anything, s.accountID).Return(nil).Once()

	w := s.authed(http.MethodPost, "/api/v1/auth/logout", "")
	s.Equal(http.StatusNoContent, w.Code)
	s.Empty(w.Body.String())

	// No token, no revocation.
	w = s.do(s.router, http.MethodPost, "/api/v1/auth/logout", "", "")
	s.Equal(http.StatusUnauthorized, w.Code)

	s.auth.On("Logout", mock.Anything, s.accountID).Return(errors.New("db down")).Once()
	w = s.authed(http.MethodPost, "/api/v1/auth/logout", "")
	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "db down")
}

func (s *HandlerTestSuite) TestRateLimitPerAccount() {
	cfg := testConfig()
	cfg.RateLimit = "2-M"
	r := s.newRouter(cfg)
	s.ledger.On("GetQuote", mock.Anything, "AAPL").
		Return(&domain.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(150)}, nil).Twice()

	for i := 0; i < 2; i++ {
		w := s.do(r, http.MethodGet, "/api/v1/quotes/AAPL", "", s.accessToken)
		s.Require().Equal(http.StatusOK, w.Code)
	}
	w := s.do(r, http.MethodGet, "/api/v1/quotes/AAPL", "", s.accessToken)
	s.Equal(http.StatusTooManyRequests, w.Code)

	other, err := utils.GenerateJWT(uuid.NewString(), cfg.JWTSecret, time.Hour, cfg.JWTIssuer)
	s.Require().NoError(err)
	s.ledger.On("GetQuote", mock.Anything, "AAPL").
		Return(&domain.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(150)}, nil).Once()
	w = s.do(r, http.MethodGet, "/api/v1/quotes/AAPL", "", other)
	s.Equal(http.StatusOK, w.Code)
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
