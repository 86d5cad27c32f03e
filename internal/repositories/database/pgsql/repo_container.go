package pgsql

import (
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo: newPgxAccountRepository(dbPool),
		HoldingRepo: newPgxHoldingRepository(dbPool),
		HistoryRepo: newPgxHistoryRepository(dbPool),
		TxManager:   &PgxTransactionManager{BaseRepository{Pool: dbPool}},
		Close:       func() { database.ClosePgxPool(dbPool) },
	}
}
