// Package store holds the latest known accounts and balances and streams the
// pair whenever either side changes.
package store

import (
	"context"
	"sync"

	"tableflip.dev/acctview/pkg/account"
	"tableflip.dev/acctview/pkg/latest"
)

// Snapshot is the current pair of collections. Rev increases with every
// replacement of either side. Callers must treat the slices as read-only.
type Snapshot struct {
	Accounts []account.Account
	Balances []account.Balance
	Rev      uint64
}

// Store keeps the authoritative snapshots. Updates may arrive from any
// goroutine.
type Store struct {
	mu          sync.Mutex
	accounts    []account.Account
	balances    []account.Balance
	hasAccounts bool
	hasBalances bool
	rev         uint64

	out latest.Value[Snapshot]
}

// New returns an empty store. Nothing is emitted until both collections have
// been set at least once.
func New() *Store {
	return &Store{}
}

// SetAccounts replaces the account snapshot.
func (s *Store) SetAccounts(list []account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = account.CloneAccounts(list)
	s.hasAccounts = true
	s.publishLocked()
}

// SetBalances replaces the balance snapshot.
func (s *Store) SetBalances(list []account.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = account.CloneBalances(list)
	s.hasBalances = true
	s.publishLocked()
}

// Snapshot returns the current pair. It reports false until both sides were
// set.
func (s *Store) Snapshot() (Snapshot, bool) {
	return s.out.Get()
}

// Subscribe streams combined snapshots until ctx is done. The current pair is
// replayed immediately when available; a slow reader only ever sees the most
// recent pair.
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	return s.out.Subscribe(ctx)
}

// Bind copies values from the two source streams into the store until ctx is
// done or both sources are closed.
func (s *Store) Bind(ctx context.Context, accounts <-chan []account.Account, balances <-chan []account.Balance) {
	for accounts != nil || balances != nil {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-accounts:
			if !ok {
				accounts = nil
				continue
			}
			s.SetAccounts(list)
		case list, ok := <-balances:
			if !ok {
				balances = nil
				continue
			}
			s.SetBalances(list)
		}
	}
}

func (s *Store) publishLocked() {
	s.rev++
	if !s.hasAccounts || !s.hasBalances {
		return
	}
	// Each snapshot gets its own copies so later Set calls never alias a
	// pair already handed to a subscriber.
	s.out.Set(Snapshot{
		Accounts: account.CloneAccounts(s.accounts),
		Balances: account.CloneBalances(s.balances),
		Rev:      s.rev,
	})
}
