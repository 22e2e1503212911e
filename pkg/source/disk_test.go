package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"tableflip.dev/acctview/pkg/account"
	"tableflip.dev/acctview/pkg/store"
)

type testConfig struct {
	path string
}

func (t testConfig) BasePath() string {
	return t.path
}

func load(t *testing.T) *Disk {
	t.Helper()
	d, err := Load(testConfig{path: t.TempDir()})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return d
}

func TestLoadRequiresBasePath(t *testing.T) {
	if _, err := Load(testConfig{}); !errors.Is(err, ErrNoPersistence) {
		t.Fatalf("expected ErrNoPersistence, got %v", err)
	}
	if _, err := Load(nil); !errors.Is(err, ErrNoPersistence) {
		t.Fatalf("expected ErrNoPersistence for nil config, got %v", err)
	}
}

func TestStoreAndListSortedByID(t *testing.T) {
	d := load(t)
	ctx := context.Background()

	for _, a := range []account.Account{{ID: "b-2", Name: "Two"}, {ID: "a-1", Name: "One"}} {
		if err := d.StoreAccount(a); err != nil {
			t.Fatalf("store account: %v", err)
		}
	}
	if err := d.StoreBalance(account.NewBalance("x", "a-1", "3.5")); err != nil {
		t.Fatalf("store balance: %v", err)
	}

	accts, err := d.Accounts(ctx)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(accts) != 2 || accts[0].ID != "a-1" || accts[1].Name != "Two" {
		t.Fatalf("unexpected accounts %+v", accts)
	}
	bals, err := d.Balances(ctx)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(bals) != 1 || bals[0].AccountID != "a-1" || bals[0].Amount.String() != "3.5" {
		t.Fatalf("unexpected balances %+v", bals)
	}

	if err := d.StoreAccount(account.Account{ID: "a-1", Name: "Renamed"}); err != nil {
		t.Fatalf("replace account: %v", err)
	}
	if err := d.DeleteAccount("b-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	accts, _ = d.Accounts(ctx)
	if len(accts) != 1 || accts[0].Name != "Renamed" {
		t.Fatalf("unexpected accounts after edit %+v", accts)
	}
}

func TestStoreRejectsMissingID(t *testing.T) {
	d := load(t)
	if err := d.StoreAccount(account.Account{Name: "nameless"}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestEmptyTreeListsNothing(t *testing.T) {
	d := load(t)
	accts, err := d.Accounts(context.Background())
	if err != nil || len(accts) != 0 {
		t.Fatalf("expected no accounts, got %+v (%v)", accts, err)
	}
}

func TestSeedReset(t *testing.T) {
	d := load(t)
	if err := d.StoreAccount(account.Account{ID: "stray"}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := d.Seed(true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	accts, _ := d.Accounts(context.Background())
	if len(accts) != len(SampleAccounts()) {
		t.Fatalf("expected %d accounts, got %d", len(SampleAccounts()), len(accts))
	}
	for _, a := range accts {
		if a.ID == "stray" {
			t.Fatal("reset kept a stray record")
		}
	}
}

func TestWatchEmitsCollectionChanges(t *testing.T) {
	d := load(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := d.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	// Allow the watcher goroutine to subscribe before writing.
	time.Sleep(50 * time.Millisecond)

	if err := d.StoreBalance(account.NewBalance("b1", "a1", "1")); err != nil {
		t.Fatalf("store balance: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type == EventInvalidated {
				return
			}
			if evt.Collection != Balances {
				t.Fatalf("expected balances change, got %q", evt.Collection)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for change event")
		}
	}
}

func TestFeedKeepsStoreCurrent(t *testing.T) {
	d := load(t)
	if err := d.Seed(false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New()
	snaps := st.Subscribe(ctx)
	errc := make(chan error, 1)
	go func() { errc <- d.Feed(ctx, st) }()

	wait := func(what string, ok func(store.Snapshot) bool) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case snap := <-snaps:
				if ok(snap) {
					return
				}
			case err := <-errc:
				t.Fatalf("feed exited: %v", err)
			case <-deadline:
				t.Fatalf("timed out waiting for %s", what)
			}
		}
	}

	wait("initial load", func(s store.Snapshot) bool {
		return len(s.Accounts) == len(SampleAccounts()) && len(s.Balances) == len(SampleBalances())
	})

	time.Sleep(50 * time.Millisecond)
	if err := d.StoreAccount(account.Account{ID: "acc-900", Name: "New"}); err != nil {
		t.Fatalf("store: %v", err)
	}
	wait("reload", func(s store.Snapshot) bool {
		return len(s.Accounts) == len(SampleAccounts())+1
	})

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
}
