package main

import (
	"context"
	"flag"

	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/report"
	"github.com/google/subcommands"
)

// portfolioCmd holds the flags for the 'portfolio' subcommand.
type portfolioCmd struct {
	account string
	audit   bool
	raw     bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "value an account's holdings at current prices" }
func (*portfolioCmd) Usage() string {
	return `ledgerctl portfolio -account <username> [-audit] [-raw]

  Holdings whose quote could not be fetched are shown at their last known price, marked stale.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "username of the account")
	f.BoolVar(&c.audit, "audit", false, "append a reconciliation of the history")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app) error {
		accountID, err := a.accountID(ctx, c.account)
		if err != nil {
			return err
		}
		p := report.Portfolio{}
		if p.Account, err = a.services.Ledger.GetAccount(ctx, accountID); err != nil {
			return err
		}
		if p.Snapshot, err = a.services.Ledger.PortfolioSnapshot(ctx, accountID); err != nil {
			return err
		}
		if c.audit {
			if p.Reconciliation, err = a.services.Ledger.Reconcile(ctx, accountID); err != nil {
				return err
			}
		}
		md, err := report.Markdown(p)
		if err != nil {
			return err
		}
		printMarkdown(md, c.raw)
		return nil
	})
}

// historyCmd holds the flags for the 'history' subcommand.
type historyCmd struct {
	account string
	limit   int
	raw     bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list an account's operations, oldest first" }
func (*historyCmd) Usage() string {
	return `ledgerctl history -account <username> [-limit <n>] [-raw]

  -limit 0 lists the whole history.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "username of the account")
	f.IntVar(&c.limit, "limit", 20, "number of entries to show (1-100, or 0 for all)")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app) error {
		accountID, err := a.accountID(ctx, c.account)
		if err != nil {
			return err
		}
		var rows []dto.HistoryEntryResponse
		if c.limit == 0 {
			entries, err := allHistory(ctx, a, accountID)
			if err != nil {
				return err
			}
			rows = toResponses(entries)
		} else {
			page, err := a.services.Ledger.ListHistory(ctx, accountID, dto.ListHistoryParams{Limit: c.limit})
			if err != nil {
				return err
			}
			rows = page.Entries
		}
		md, err := report.HistoryMarkdown(rows)
		if err != nil {
			return err
		}
		printMarkdown(md, c.raw)
		return nil
	})
}
