package handlers_test

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/stretchr/testify/mock"
)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) result(args mock.Arguments) (*domain.OperationResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OperationResult), args.Error(1)
}

func (m *MockLedgerService) Buy(ctx context.Context, accountID string, req dto.TradeRequest) (*domain.OperationResult, error) {
	return m.result(m.Called(ctx, accountID, req))
}
func (m *MockLedgerService) Sell(ctx context.Context, accountID string, req dto.TradeRequest) (*domain.OperationResult, error) {
	return m.result(m.Called(ctx, accountID, req))
}
func (m *MockLedgerService) Deposit(ctx context.Context, accountID string, req dto.DepositRequest) (*domain.OperationResult, error) {
	return m.result(m.Called(ctx, accountID, req))
}
func (m *MockLedgerService) PortfolioSnapshot(ctx context.Context, accountID string) (*domain.PortfolioSnapshot, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PortfolioSnapshot), args.Error(1)
}
func (m *MockLedgerService) ListHistory(ctx context.Context, accountID string, params dto.ListHistoryParams) (*dto.ListHistoryResponse, error) {
	args := m.Called(ctx, accountID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListHistoryResponse), args.Error(1)
}
func (m *MockLedgerService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockLedgerService) Reconcile(ctx context.Context, accountID string) (*domain.Reconciliation, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reconciliation), args.Error(1)
}
func (m *MockLedgerService) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

// --- Mock AuthService ---
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) login(args mock.Arguments) (*dto.LoginResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LoginResponse), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, req dto.RegisterRequest) (*domain.Account, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	return m.login(m.Called(ctx, req))
}
func (m *MockAuthService) RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (*dto.LoginResponse, error) {
	return m.login(m.Called(ctx, req))
}
func (m *MockAuthService) LoginWithGoogle(ctx context.Context, req dto.GoogleLoginRequest) (*dto.LoginResponse, error) {
	return m.login(m.Called(ctx, req))
}

func (m *MockAuthService) Logout(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

var _ portssvc.AuthSvcFacade = (*MockAuthService)(nil)
