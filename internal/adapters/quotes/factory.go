package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
)

// NewFromConfig builds the configured provider behind a GuardedProvider.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portssvc.QuoteProvider, error) {
	var (
		base portssvc.QuoteProvider
		err  error
	)
	switch cfg.QuoteProvider {
	case config.QuoteProviderStatic:
		base, err = LoadStaticProvider(cfg.QuoteStaticFile)
	case config.QuoteProviderAlpaca:
		base = NewAlpacaProvider(AlpacaConfig{
			APIKey:    cfg.AlpacaAPIKey,
			APISecret: cfg.AlpacaAPISecret,
			BaseURL:   cfg.AlpacaBaseURL,
			DataURL:   cfg.AlpacaDataURL,
		})
	case config.QuoteProviderHTTP:
		base, err = NewHTTPProvider(ctx, HTTPConfig{
			URLTemplate:  cfg.QuoteHTTPURL,
			PricePath:    cfg.QuoteHTTPPricePath,
			NamePath:     cfg.QuoteHTTPNamePath,
			SymbolPath:   cfg.QuoteHTTPSymbolPath,
			TokenURL:     cfg.QuoteOAuthTokenURL,
			ClientID:     cfg.QuoteOAuthClientID,
			ClientSecret: cfg.QuoteOAuthClientSecret,
		}, &http.Client{Timeout: cfg.QuoteTimeout})
	default:
		err = fmt.Errorf("unknown quote provider %q", cfg.QuoteProvider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Quote provider configured", slog.String("provider", cfg.QuoteProvider))
	return NewGuardedProvider(base, BreakerSettings{
		Name:        cfg.QuoteProvider,
		MaxFailures: cfg.QuoteBreakerFailures,
		ResetAfter:  cfg.QuoteBreakerReset,
		Timeout:     cfg.QuoteTimeout,
	}, logger), nil
}
