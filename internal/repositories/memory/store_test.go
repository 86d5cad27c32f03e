package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seedAccount(t *testing.T, s *Store, id string, cash string) {
	t.Helper()
	c := decimal.RequireFromString(cash)
	require.NoError(t, s.SaveAccount(context.Background(), domain.Account{
		AccountID:      id,
		Username:       "user-" + id,
		CashBalance:    c,
		OpeningBalance: c,
		AuditFields:    domain.AuditFields{CreatedAt: t0, LastUpdatedAt: t0},
	}))
}

func TestSaveAccount_Duplicates(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a1", "100")

	err := s.SaveAccount(context.Background(), domain.Account{AccountID: "a2", Username: "user-a1"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	_, err = s.FindAccountByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWithinTx_RollsBackEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "a1", "1000")

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		require.NoError(t, tx.UpdateCashBalance(ctx, "a1", decimal.RequireFromString("400"), t0))
		require.NoError(t, tx.SaveHolding(ctx, domain.Holding{AccountID: "a1", Symbol: "AAPL", Shares: 4}))
		_, err := tx.AppendHistory(ctx, domain.NewTradeEntry("a1", domain.ActionBought, "AAPL", 4, decimal.RequireFromString("150"), t0))
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	acc, err := s.FindAccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1000").Equal(acc.CashBalance))

	_, err = s.FindHolding(ctx, "a1", "AAPL")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	entries, _, err := s.ListHistoryByAccount(ctx, "a1", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// IDs handed out by the rolled back unit are reused.
	err = s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		e, err := tx.AppendHistory(ctx, domain.NewDepositEntry("a1", decimal.RequireFromString("5"), t0))
		require.NoError(t, err)
		assert.Equal(t, int64(1), e.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestSaveHolding_RejectsNonPositiveShares(t *testing.T) {
	s := NewStore()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.SaveHolding(ctx, domain.Holding{AccountID: "a1", Symbol: "AAPL", Shares: 0})
	})
	assert.Error(t, err)
}

func TestListHistoryByAccount_Pagination(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "a1", "0")
	seedAccount(t, s, "a2", "0")

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		for i := 0; i < 5; i++ {
			// two entries share each timestamp so the id tiebreak is exercised
			at := t0.Add(time.Duration(i/2) * time.Second)
			if _, err := tx.AppendHistory(ctx, domain.NewDepositEntry("a1", decimal.NewFromInt(int64(i+1)), at)); err != nil {
				return err
			}
			if _, err := tx.AppendHistory(ctx, domain.NewDepositEntry("a2", decimal.NewFromInt(1), at)); err != nil {
				return err
			}
		}
		return nil
	}))

	var (
		got   []int64
		token *string
		pages int
	)
	for {
		page, next, err := s.ListHistoryByAccount(ctx, "a1", 2, token)
		require.NoError(t, err)
		pages++
		for _, e := range page {
			assert.Equal(t, "a1", e.AccountID)
			got = append(got, e.Price.IntPart())
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, got)
	assert.Equal(t, 3, pages)

	bad := "not-a-token"
	_, _, err := s.ListHistoryByAccount(ctx, "a1", 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateHoldingQuoteCache(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.SaveHolding(ctx, domain.Holding{AccountID: "a1", Symbol: "MSFT", Shares: 3})
	}))

	require.NoError(t, s.UpdateHoldingQuoteCache(ctx, "a1", "MSFT", decimal.RequireFromString("10"), decimal.RequireFromString("30"), t0))
	h, err := s.FindHolding(ctx, "a1", "MSFT")
	require.NoError(t, err)
	require.NotNil(t, h.LastPrice)
	assert.True(t, decimal.RequireFromString("30").Equal(*h.LastTotal))
	assert.Equal(t, int64(3), h.Shares)

	// Missing rows are ignored.
	assert.NoError(t, s.UpdateHoldingQuoteCache(ctx, "a1", "NOPE", decimal.Zero, decimal.Zero, t0))
}
