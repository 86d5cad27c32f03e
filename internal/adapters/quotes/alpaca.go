package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

const (
	assetNameCacheSize = 1024
	assetNameTTL       = 24 * time.Hour
)

type latestTrader interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

type assetGetter interface {
	GetAsset(symbol string) (*alpaca.Asset, error)
}

// AlpacaProvider prices symbols at their latest trade and names them from the asset catalogue.
type AlpacaProvider struct {
	trades latestTrader
	assets assetGetter
	names  *expirable.LRU[string, string]
}

var _ portssvc.QuoteProvider = (*AlpacaProvider)(nil)

// AlpacaConfig carries the Alpaca credentials; empty URLs use the SDK defaults.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	DataURL   string
}

func NewAlpacaProvider(cfg AlpacaConfig) *AlpacaProvider {
	mdOpts := marketdata.ClientOpts{APIKey: cfg.APIKey, APISecret: cfg.APISecret}
	if cfg.DataURL != "" {
		mdOpts.BaseURL = cfg.DataURL
	}
	trOpts := alpaca.ClientOpts{APIKey: cfg.APIKey, APISecret: cfg.APISecret}
	if cfg.BaseURL != "" {
		trOpts.BaseURL = cfg.BaseURL
	}
	return newAlpacaProvider(marketdata.NewClient(mdOpts), alpaca.NewClient(trOpts))
}

func newAlpacaProvider(trades latestTrader, assets assetGetter) *AlpacaProvider {
	return &AlpacaProvider{
		trades: trades,
		assets: assets,
		names:  expirable.NewLRU[string, string](assetNameCacheSize, nil, assetNameTTL),
	}
}

func (p *AlpacaProvider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	trade, err := withContext(ctx, func() (*marketdata.Trade, error) {
		return p.trades.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	})
	if err != nil {
		if isAlpacaNotFound(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSymbol, symbol)
		}
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrQuoteUnavailable, symbol, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSymbol, symbol)
	}

	return &domain.Quote{
		Symbol: symbol,
		Name:   p.assetName(ctx, symbol),
		Price:  decimal.NewFromFloat(trade.Price),
	}, nil
}

// assetName falls back to the symbol itself; a missing name never fails a quote.
func (p *AlpacaProvider) assetName(ctx context.Context, symbol string) string {
	if name, ok := p.names.Get(symbol); ok {
		return name
	}
	asset, err := withContext(ctx, func() (*alpaca.Asset, error) { return p.assets.GetAsset(symbol) })
	if err != nil || asset == nil || asset.Name == "" {
		return symbol
	}
	p.names.Add(symbol, asset.Name)
	return asset.Name
}

func isAlpacaNotFound(err error) bool {
	var apiErr *alpaca.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// withContext bounds a context-unaware SDK call by ctx. The call keeps running in the
// background after ctx ends; its result is dropped.
func withContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
