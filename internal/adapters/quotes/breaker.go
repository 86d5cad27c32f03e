package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/sony/gobreaker"
)

// BreakerSettings tunes GuardedProvider.
type BreakerSettings struct {
	Name string
	// MaxFailures consecutive upstream failures open the breaker.
	MaxFailures uint32
	// ResetAfter is how long the breaker stays open before letting a trial request through.
	ResetAfter time.Duration
	// Timeout bounds every lookup; zero means no extra bound.
	Timeout time.Duration
}

// GuardedProvider wraps a provider with a per-lookup timeout and a circuit breaker.
// While the breaker is open lookups fail fast with ErrQuoteUnavailable.
type GuardedProvider struct {
	next    portssvc.QuoteProvider
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

var _ portssvc.QuoteProvider = (*GuardedProvider)(nil)

func NewGuardedProvider(next portssvc.QuoteProvider, s BreakerSettings, logger *slog.Logger) *GuardedProvider {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.Name == "" {
		s.Name = "quotes"
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    s.Name,
		Timeout: s.ResetAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		// An unknown symbol is a valid answer, not an upstream fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperrors.ErrUnknownSymbol)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Quote provider breaker changed state",
				slog.String("breaker", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})
	return &GuardedProvider{next: next, cb: cb, timeout: s.Timeout}
}

func (p *GuardedProvider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	res, err := p.cb.Execute(func() (interface{}, error) {
		return p.next.Lookup(ctx, symbol)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrQuoteUnavailable, symbol, err)
		}
		return nil, err
	}
	return res.(*domain.Quote), nil
}

// State reports the breaker state, for health output.
func (p *GuardedProvider) State() string {
	return p.cb.State().String()
}
