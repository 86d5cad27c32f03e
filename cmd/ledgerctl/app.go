package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/portfolio_ledger/internal/adapters/events"
	"github.com/SscSPs/portfolio_ledger/internal/adapters/quotes"
	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/core/services"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/SscSPs/portfolio_ledger/internal/platform/store"
	"github.com/SscSPs/portfolio_ledger/internal/utils"
	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

// app is the wired ledger a subcommand runs against.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	repos    portsrepo.RepositoryProvider
	services *portssvc.ServiceContainer
	closers  []func()
}

// openApp loads the configuration from the environment and opens the store it names.
// Logs go to stderr so stdout carries only command output.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	repos, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, repos: repos, closers: []func(){repos.Close}}

	quoteProvider, err := quotes.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	publisher, closeEvents := events.NewFromConfig(cfg, posthogClient, logger)
	a.closers = append(a.closers, posthogClient.Close, closeEvents)

	a.services = services.NewServiceContainer(cfg, repos, quoteProvider, publisher)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// accountID resolves a username to its account id.
func (a *app) accountID(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: -account is required", apperrors.ErrValidation)
	}
	acct, err := a.repos.AccountRepo.FindAccountByUsername(ctx, username)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", fmt.Errorf("no account named %q", username)
	}
	if err != nil {
		return "", err
	}
	return acct.AccountID, nil
}

// withApp opens the ledger, runs fn and maps its error onto an exit status.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, apperrors.ErrValidation) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal, or prints it verbatim when raw is set
// or rendering fails.
func printMarkdown(md string, raw bool) {
	if !raw {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Print(md)
}
