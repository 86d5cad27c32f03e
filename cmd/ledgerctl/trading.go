package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/utils"
	"github.com/google/subcommands"
)

// tradeCmd serves both 'buy' and 'sell'.
type tradeCmd struct {
	action  string
	account string
	symbol  string
	qty     string
}

func (c *tradeCmd) Name() string { return c.action }
func (c *tradeCmd) Synopsis() string {
	return c.action + " whole shares at the current quoted price"
}
func (c *tradeCmd) Usage() string {
	return fmt.Sprintf(`ledgerctl %s -account <username> -symbol <ticker> -qty <shares>
`, c.action)
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "username of the account")
	f.StringVar(&c.symbol, "symbol", "", "ticker symbol")
	f.StringVar(&c.qty, "qty", "", "number of shares")
}

func (c *tradeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app) error {
		accountID, err := a.accountID(ctx, c.account)
		if err != nil {
			return err
		}
		req := dto.TradeRequest{Symbol: c.symbol, Quantity: dto.RawNumber(c.qty)}
		var res *domain.OperationResult
		if c.action == "sell" {
			res, err = a.services.Ledger.Sell(ctx, accountID, req)
		} else {
			res, err = a.services.Ledger.Buy(ctx, accountID, req)
		}
		if err != nil {
			return err
		}
		e := res.Entry
		fmt.Printf("%s %d %s at $%s; cash is now %s\n",
			e.Action, *e.Shares, *e.Symbol, utils.FormatWithPrecision(e.Price, domain.PriceScale), utils.FormatMoney(res.CashBalance))
		return nil
	})
}

type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "look up current prices" }
func (*quoteCmd) Usage() string {
	return `ledgerctl quote <symbol>...
`
}
func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one symbol is required")
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(ctx context.Context, a *app) error {
		for _, symbol := range f.Args() {
			q, err := a.services.Ledger.GetQuote(ctx, symbol)
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			fmt.Printf("%-8s $%-12s %s\n", q.Symbol, utils.FormatWithPrecision(q.Price, domain.PriceScale), q.Name)
		}
		return nil
	})
}
