package services

import (
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// events may be nil, in which case committed operations are not announced.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, quotes portssvc.QuoteProvider, events portssvc.EventPublisher) *portssvc.ServiceContainer {
	ledgerOpts := []LedgerOption{WithSnapshotConcurrency(cfg.SnapshotConcurrency)}
	if events != nil {
		ledgerOpts = append(ledgerOpts, WithEventPublisher(events))
	}

	var authOpts []AuthOption
	if v := NewGoogleIDTokenValidator(cfg.GoogleClientID); v != nil {
		authOpts = append(authOpts, WithGoogleValidator(v))
	}

	return &portssvc.ServiceContainer{
		Ledger: NewLedgerService(repos, quotes, ledgerOpts...),
		Auth:   NewAuthService(cfg, repos.AccountRepo, authOpts...),
	}
}
