// Package memory is an in-process ledger store. All state lives in maps guarded by one mutex;
// a unit of work holds the write lock for its whole duration and undoes its writes on error.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/portfolio_ledger/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

// Store keeps accounts, holdings and history in memory.
type Store struct {
	mu             sync.RWMutex
	accounts       map[string]domain.Account
	usernames      map[string]string // username -> account id
	googleSubjects map[string]string // google subject -> account id
	holdings       map[string]map[string]domain.Holding
	history        map[string][]domain.HistoryEntry
	lastHistoryID  int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		accounts:       make(map[string]domain.Account),
		usernames:      make(map[string]string),
		googleSubjects: make(map[string]string),
		holdings:       make(map[string]map[string]domain.Holding),
		history:        make(map[string][]domain.HistoryEntry),
	}
}

// NewRepositoryProvider exposes a fresh store through the repository ports.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	s := NewStore()
	return portsrepo.RepositoryProvider{
		AccountRepo: s,
		HoldingRepo: s,
		HistoryRepo: s,
		TxManager:   s,
		Close:       func() {},
	}
}

var (
	_ portsrepo.AccountRepositoryFacade = (*Store)(nil)
	_ portsrepo.HoldingRepositoryFacade = (*Store)(nil)
	_ portsrepo.HistoryReader           = (*Store)(nil)
	_ portsrepo.TransactionManager      = (*Store)(nil)
)

// --- accounts ---

func (s *Store) SaveAccount(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.AccountID]; ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, account.AccountID)
	}
	if _, ok := s.usernames[account.Username]; ok {
		return fmt.Errorf("%w: username %s", apperrors.ErrDuplicate, account.Username)
	}
	if account.GoogleSubject != "" {
		if _, ok := s.googleSubjects[account.GoogleSubject]; ok {
			return fmt.Errorf("%w: google subject", apperrors.ErrDuplicate)
		}
		s.googleSubjects[account.GoogleSubject] = account.AccountID
	}
	s.accounts[account.AccountID] = account
	s.usernames[account.Username] = account.AccountID
	return nil
}

func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountByID(accountID)
}

func (s *Store) FindAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[username]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return s.accountByID(id)
}

func (s *Store) FindAccountByGoogleSubject(ctx context.Context, subject string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.googleSubjects[subject]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return s.accountByID(id)
}

func (s *Store) UpdateRefreshToken(ctx context.Context, accountID string, tokenHash string, expiresAt *time.Time, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	acc.RefreshTokenHash = tokenHash
	acc.RefreshTokenExpiryTime = expiresAt
	if tokenHash == "" {
		acc.RefreshTokenExpiryTime = nil
	}
	acc.LastUpdatedAt = now
	s.accounts[accountID] = acc
	return nil
}

func (s *Store) accountByID(accountID string) (*domain.Account, error) {
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &acc, nil
}

// --- holdings ---

func (s *Store) FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holding(accountID, symbol)
}

func (s *Store) ListHoldingsByAccount(ctx context.Context, accountID string) ([]domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.holdings[accountID]
	out := make([]domain.Holding, 0, len(rows))
	for _, h := range rows {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *Store) UpdateHoldingQuoteCache(ctx context.Context, accountID, symbol string, price, total decimal.Decimal, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holdings[accountID][symbol]
	if !ok {
		return nil
	}
	h.LastPrice = &price
	h.LastTotal = &total
	h.UpdatedAt = now
	s.holdings[accountID][symbol] = h
	return nil
}

func (s *Store) holding(accountID, symbol string) (*domain.Holding, error) {
	h, ok := s.holdings[accountID][symbol]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &h, nil
}

// --- history ---

func (s *Store) ListHistoryByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.HistoryEntry, *string, error) {
	s.mu.RLock()
	entries := append([]domain.HistoryEntry(nil), s.history[accountID]...)
	s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})

	start := 0
	if nextToken != nil && *nextToken != "" {
		afterTime, afterID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		start = sort.Search(len(entries), func(i int) bool {
			e := entries[i]
			return e.CreatedAt.After(afterTime) || (e.CreatedAt.Equal(afterTime) && e.ID > afterID)
		})
	}
	entries = entries[start:]

	if limit <= 0 || len(entries) <= limit {
		return entries, nil, nil
	}
	page := entries[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeToken(last.CreatedAt, last.ID)
	return page, &token, nil
}

// --- unit of work ---

// WithinTx holds the store's write lock while fn runs. Writes made through the
// LedgerTx are undone in reverse order if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type memoryTx struct {
	store *Store
	undo  []func()
}

func (t *memoryTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memoryTx) FindAccountForUpdate(ctx context.Context, accountID string) (*domain.Account, error) {
	return t.store.accountByID(accountID)
}

func (t *memoryTx) UpdateCashBalance(ctx context.Context, accountID string, cash decimal.Decimal, now time.Time) error {
	if cash.IsNegative() {
		return fmt.Errorf("cash balance would be negative: %s", cash)
	}
	prev, ok := t.store.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	next := prev
	next.CashBalance = cash
	next.LastUpdatedAt = now
	t.store.accounts[accountID] = next
	t.undo = append(t.undo, func() { t.store.accounts[accountID] = prev })
	return nil
}

func (t *memoryTx) FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	return t.store.holding(accountID, symbol)
}

func (t *memoryTx) SaveHolding(ctx context.Context, holding domain.Holding) error {
	if holding.Shares <= 0 {
		return fmt.Errorf("holding %s must have positive shares, got %d", holding.Symbol, holding.Shares)
	}
	rows := t.store.holdings[holding.AccountID]
	if rows == nil {
		rows = make(map[string]domain.Holding)
		t.store.holdings[holding.AccountID] = rows
	}
	prev, existed := rows[holding.Symbol]
	rows[holding.Symbol] = holding
	t.undo = append(t.undo, func() {
		if existed {
			rows[holding.Symbol] = prev
		} else {
			delete(rows, holding.Symbol)
		}
	})
	return nil
}

func (t *memoryTx) DeleteHolding(ctx context.Context, accountID, symbol string) error {
	rows := t.store.holdings[accountID]
	prev, existed := rows[symbol]
	if !existed {
		return apperrors.ErrNotFound
	}
	delete(rows, symbol)
	t.undo = append(t.undo, func() { rows[symbol] = prev })
	return nil
}

func (t *memoryTx) AppendHistory(ctx context.Context, entry domain.HistoryEntry) (*domain.HistoryEntry, error) {
	if !entry.Action.Valid() {
		return nil, fmt.Errorf("unknown history action %q", entry.Action)
	}
	s := t.store
	prevID := s.lastHistoryID
	s.lastHistoryID++
	entry.ID = s.lastHistoryID
	s.history[entry.AccountID] = append(s.history[entry.AccountID], entry)
	t.undo = append(t.undo, func() {
		list := s.history[entry.AccountID]
		s.history[entry.AccountID] = list[:len(list)-1]
		s.lastHistoryID = prevID
	})
	return &entry, nil
}
