package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// HTTPConfig describes a JSON quote endpoint. URLTemplate must contain "{symbol}".
// The paths are JSONPath expressions evaluated against the response body.
type HTTPConfig struct {
	URLTemplate string
	PricePath   string
	NamePath    string
	SymbolPath  string

	// OAuth2 client credentials; the provider authenticates only when TokenURL is set.
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// HTTPProvider fetches quotes from a JSON HTTP API.
type HTTPProvider struct {
	client *http.Client
	cfg    HTTPConfig
}

var _ portssvc.QuoteProvider = (*HTTPProvider)(nil)

// NewHTTPProvider builds the provider on base (http.DefaultClient when nil).
func NewHTTPProvider(ctx context.Context, cfg HTTPConfig, base *http.Client) (*HTTPProvider, error) {
	if !strings.Contains(cfg.URLTemplate, "{symbol}") {
		return nil, fmt.Errorf("quote URL %q has no {symbol} placeholder", cfg.URLTemplate)
	}
	if cfg.PricePath == "" {
		cfg.PricePath = "$.price"
	}
	if base == nil {
		base = http.DefaultClient
	}
	client := base
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		// Token requests go through base too, so they share its timeout and transport.
		client = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	}
	return &HTTPProvider{client: client, cfg: cfg}, nil
}

func (p *HTTPProvider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	addr := strings.ReplaceAll(p.cfg.URLTemplate, "{symbol}", url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQuoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrQuoteUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSymbol, symbol)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s: upstream returned %s", apperrors.ErrQuoteUnavailable, symbol, resp.Status)
	}

	var body any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %s: bad response body: %v", apperrors.ErrQuoteUnavailable, symbol, err)
	}

	price, err := decimalAt(p.cfg.PricePath, body)
	if err != nil {
		// An answer without a price means the upstream does not know the symbol.
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrUnknownSymbol, symbol, err)
	}

	q := domain.Quote{Symbol: symbol, Name: symbol, Price: price}
	if name, ok := stringAt(p.cfg.NamePath, body); ok {
		q.Name = name
	}
	if sym, ok := stringAt(p.cfg.SymbolPath, body); ok {
		q.Symbol = sym
	}
	return &q, nil
}

// first unwraps the single-element lists jsonpath returns for filter and slice expressions.
func first(path string, body any) (any, error) {
	v, err := jsonpath.Get(path, body)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("%s matched nothing", path)
		}
		v = list[0]
	}
	return v, nil
}

func decimalAt(path string, body any) (decimal.Decimal, error) {
	v, err := first(path, body)
	if err != nil {
		return decimal.Zero, err
	}
	switch t := v.(type) {
	case json.Number:
		return decimal.NewFromString(t.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(t))
	case float64:
		return decimal.NewFromFloat(t), nil
	case nil:
		return decimal.Zero, errors.New("price is null")
	}
	return decimal.Zero, fmt.Errorf("price at %s is a %T", path, v)
}

func stringAt(path string, body any) (string, bool) {
	if path == "" {
		return "", false
	}
	v, err := first(path, body)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
