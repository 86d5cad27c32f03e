package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/report"
	"github.com/google/subcommands"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "bring the configured store's schema up to date" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate

  Opens the store named by DATABASE_DRIVER and applies pending migrations.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app) error {
		fmt.Printf("Store %s is up to date.\n", a.cfg.DatabaseDriver)
		return nil
	})
}

// exportCmd holds the flags for the 'export' subcommand.
type exportCmd struct {
	account string
	output  string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export an account's full history to a parquet file" }
func (*exportCmd) Usage() string {
	return `ledgerctl export -account <username> [-o <file>]

  Writes every history entry, oldest first, as one parquet row.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "username of the account")
	f.StringVar(&c.output, "o", "history.parquet", "output file")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app) error {
		accountID, err := a.accountID(ctx, c.account)
		if err != nil {
			return err
		}
		entries, err := allHistory(ctx, a, accountID)
		if err != nil {
			return err
		}
		if err := report.WriteHistoryParquet(c.output, entries); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d entries to %s\n", len(entries), c.output)
		return nil
	})
}

// allHistory walks every page of the account's history.
func allHistory(ctx context.Context, a *app, accountID string) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	var token *string
	for {
		page, next, err := a.repos.HistoryRepo.ListHistoryByAccount(ctx, accountID, 100, token)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page...)
		if next == nil {
			return entries, nil
		}
		token = next
	}
}

// toResponses adapts entries for the markdown renderers.
func toResponses(entries []domain.HistoryEntry) []dto.HistoryEntryResponse {
	return dto.ToListHistoryResponse(entries, nil).Entries
}
