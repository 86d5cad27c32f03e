package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/report"
	"github.com/SscSPs/portfolio_ledger/internal/utils"
	"github.com/google/subcommands"
)

// registerCmd holds the flags for the 'register' subcommand.
type registerCmd struct {
	username string
	password string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account funded with the starting cash" }
func (*registerCmd) Usage() string {
	return `ledgerctl register -username <name> [-password <password>]

  The password defaults to $LEDGER_PASSWORD.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "login name of the new account")
	f.StringVar(&c.password, "password", os.Getenv("LEDGER_PASSWORD"), "password of the new account")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" || c.password == "" {
		fmt.Fprintln(os.Stderr, "Error: -username and -password are required")
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(ctx context.Context, a *app) error {
		acct, err := a.services.Auth.Register(ctx, dto.RegisterRequest{Username: c.username, Password: c.password})
		if err != nil {
			return err
		}
		fmt.Printf("Registered %s (%s) with %s\n", acct.Username, acct.AccountID, utils.FormatMoney(acct.CashBalance))
		return nil
	})
}

// depositCmd holds the flags for the 'deposit' subcommand.
type depositCmd struct {
	account string
	amount  string
}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "credit cash to an account" }
func (*depositCmd) Usage() string {
	return `ledgerctl deposit -account <username> -amount <amount>

  The amount must be positive with at most two decimal places.
`
}

func (c *depositCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "username of the account")
	f.StringVar(&c.amount, "amount", "", "amount to deposit, e.g. 250.00")
}

func (c *depositCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app) error {
		accountID, err := a.accountID(ctx, c.account)
		if err != nil {
			return err
		}
		res, err := a.services.Ledger.Deposit(ctx, accountID, dto.DepositRequest{Amount: dto.RawNumber(c.amount)})
		if err != nil {
			return err
		}
		fmt.Printf("Deposited %s; cash is now %s\n", utils.FormatMoney(res.Entry.Price), utils.FormatMoney(res.CashBalance))
		return nil
	})
}

// auditCmd holds the flags for the 'audit' subcommand.
type auditCmd struct {
	account string
	raw     bool
}

func (*auditCmd) Name() string     { return "audit" }
func (*auditCmd) Synopsis() string { return "replay an account's history against its stored balances" }
func (*auditCmd) Usage() string {
	return `ledgerctl audit -account <username>

  Exits non-zero when the stored cash or holdings disagree with the history.
`
}

func (c *auditCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "username of the account")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
}

func (c *auditCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app) error {
		accountID, err := a.accountID(ctx, c.account)
		if err != nil {
			return err
		}
		rec, err := a.services.Ledger.Reconcile(ctx, accountID)
		if err != nil {
			return err
		}
		md, err := report.AuditMarkdown(rec)
		if err != nil {
			return err
		}
		printMarkdown(md, c.raw)
		if !rec.Consistent() {
			return fmt.Errorf("%d discrepancies found", len(rec.Discrepancies))
		}
		return nil
	})
}
