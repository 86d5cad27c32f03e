// Package quotes holds the QuoteProvider implementations the ledger can be wired to.
package quotes

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// staticFile is the on-disk layout of a static quote table:
//
//	quotes:
//	  - symbol: AAPL
//	    name: Apple Inc.
//	    price: "150.00"
type staticFile struct {
	Quotes []struct {
		Symbol string `yaml:"symbol"`
		Name   string `yaml:"name"`
		Price  string `yaml:"price"`
	} `yaml:"quotes"`
}

// StaticProvider serves quotes from an in-memory table. Prices can be changed at runtime with Set.
type StaticProvider struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

var _ portssvc.QuoteProvider = (*StaticProvider)(nil)

func NewStaticProvider(quotes ...domain.Quote) *StaticProvider {
	p := &StaticProvider{quotes: make(map[string]domain.Quote, len(quotes))}
	for _, q := range quotes {
		p.Set(q)
	}
	return p
}

// LoadStaticProvider reads a YAML quote table from path.
func LoadStaticProvider(path string) (*StaticProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote file %s: %w", path, err)
	}
	return ParseStaticQuotes(raw)
}

func ParseStaticQuotes(raw []byte) (*StaticProvider, error) {
	var f staticFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse quote table: %w", err)
	}
	p := NewStaticProvider()
	for i, q := range f.Quotes {
		symbol := strings.TrimSpace(q.Symbol)
		if symbol == "" {
			return nil, fmt.Errorf("quote table entry %d has no symbol", i)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(q.Price))
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("quote table entry %s has invalid price %q", symbol, q.Price)
		}
		p.Set(domain.Quote{Symbol: symbol, Name: q.Name, Price: price})
	}
	return p, nil
}

// Set adds or replaces the quote for q.Symbol.
func (p *StaticProvider) Set(q domain.Quote) {
	q = q.Normalized()
	p.mu.Lock()
	p.quotes[q.Symbol] = q
	p.mu.Unlock()
}

func (p *StaticProvider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQuoteUnavailable, err)
	}
	p.mu.RLock()
	q, ok := p.quotes[strings.ToUpper(strings.TrimSpace(symbol))]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSymbol, symbol)
	}
	return &q, nil
}
