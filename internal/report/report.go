// Package report renders account reports as markdown, and markdown as HTML.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.md
var templates embed.FS

// Portfolio is everything a portfolio report shows. History and Reconciliation are optional.
type Portfolio struct {
	Account        *domain.Account
	Snapshot       *domain.PortfolioSnapshot
	History        []dto.HistoryEntryResponse
	Reconciliation *domain.Reconciliation
}

var funcs = template.FuncMap{
	"money": utils.FormatMoney,
	"price": func(d decimal.Decimal) string { return "$" + utils.FormatWithPrecision(d, 2) },
	"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
}

var portfolioTmpl = template.Must(
	template.New("portfolio.md").Funcs(funcs).ParseFS(templates,
		"templates/portfolio.md", "templates/positions.md", "templates/history.md", "templates/audit.md"))

// Markdown renders the portfolio report.
func Markdown(p Portfolio) (string, error) {
	if p.Account == nil || p.Snapshot == nil {
		return "", fmt.Errorf("portfolio report needs an account and a snapshot")
	}
	var b strings.Builder
	if err := portfolioTmpl.ExecuteTemplate(&b, "portfolio.md", p); err != nil {
		return "", fmt.Errorf("failed to render portfolio report: %w", err)
	}
	return b.String(), nil
}

// HistoryMarkdown renders a history table on its own.
func HistoryMarkdown(entries []dto.HistoryEntryResponse) (string, error) {
	var b strings.Builder
	if err := portfolioTmpl.ExecuteTemplate(&b, "history.md", Portfolio{History: entries}); err != nil {
		return "", fmt.Errorf("failed to render history: %w", err)
	}
	return b.String(), nil
}

// AuditMarkdown renders a reconciliation result on its own.
func AuditMarkdown(rec *domain.Reconciliation) (string, error) {
	var b strings.Builder
	if err := portfolioTmpl.ExecuteTemplate(&b, "audit.md", rec); err != nil {
		return "", fmt.Errorf("failed to render audit: %w", err)
	}
	return b.String(), nil
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML converts markdown into a standalone HTML page.
func HTML(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("failed to convert report to HTML: %w", err)
	}
	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	template.HTMLEscape(&page, []byte(title))
	page.WriteString("</title></head><body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return page.Bytes(), nil
}
