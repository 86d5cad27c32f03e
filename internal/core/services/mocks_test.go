package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockQuoteProvider is a mock type for the QuoteProvider interface
type MockQuoteProvider struct {
	mock.Mock
}

func (m *MockQuoteProvider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

// MockEventPublisher is a mock type for the EventPublisher interface
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// priceBoard is a concurrency-safe quote provider whose prices tests can move.
type priceBoard struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	down   map[string]bool
}

func newPriceBoard(prices map[string]string) *priceBoard {
	b := &priceBoard{prices: make(map[string]decimal.Decimal), down: make(map[string]bool)}
	for sym, p := range prices {
		b.prices[sym] = decimal.RequireFromString(p)
	}
	return b
}

func (b *priceBoard) set(symbol string, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[symbol] = price
}

func (b *priceBoard) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down[symbol] {
		return nil, fmt.Errorf("%w: provider down", apperrors.ErrQuoteUnavailable)
	}
	p, ok := b.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSymbol, symbol)
	}
	return &domain.Quote{Symbol: symbol, Name: symbol + " Inc.", Price: p}, nil
}

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func quote(symbol, price string) *domain.Quote {
	return &domain.Quote{Symbol: symbol, Name: symbol + " Inc.", Price: decimal.RequireFromString(price)}
}
