package services

import (
	"context"
	"sync"
)

// accountLocker serializes mutations per account while letting different accounts proceed in parallel.
// Entries are reference counted and removed once no goroutine holds or waits for them.
type accountLocker struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	ch   chan struct{} // buffered(1); a token in the channel means "held"
	refs int
}

func newAccountLocker() *accountLocker {
	return &accountLocker{locks: make(map[string]*accountLock)}
}

// Lock blocks until the account's lock is acquired or ctx is done.
// The returned unlock func must be called exactly once.
func (l *accountLocker) Lock(ctx context.Context, accountID string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[accountID]
	if !ok {
		lk = &accountLock{ch: make(chan struct{}, 1)}
		l.locks[accountID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(accountID, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.release(accountID, lk)
		})
	}, nil
}

func (l *accountLocker) release(accountID string, lk *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, accountID)
	}
}

// size is the number of accounts currently tracked.
func (l *accountLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
