package orchestrator

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"tableflip.dev/acctview/pkg/account"
	"tableflip.dev/acctview/pkg/account/viewmodel"
	"tableflip.dev/acctview/pkg/bus"
	"tableflip.dev/acctview/pkg/dispatch"
	"tableflip.dev/acctview/pkg/events"
	"tableflip.dev/acctview/pkg/store"
)

type fakeChannel struct {
	sent    chan events.BlockRequest
	results chan events.BlockResult
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		sent:    make(chan events.BlockRequest, 16),
		results: make(chan events.BlockResult, 16),
	}
}

func (f *fakeChannel) Send(_ context.Context, req events.BlockRequest) error {
	f.sent <- req
	return nil
}

func (f *fakeChannel) Results() <-chan events.BlockResult {
	return f.results
}

type recordingSink struct {
	mu      sync.Mutex
	reports []dispatch.Report
}

func (r *recordingSink) Report(accountID string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, dispatch.Report{AccountID: accountID, Cause: cause})
}

func (r *recordingSink) list() []dispatch.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.Report(nil), r.reports...)
}

func waitFor(t *testing.T, ch <-chan Snapshot, what string, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, open := <-ch:
			if !open {
				t.Fatalf("states closed while waiting for %s", what)
			}
			if ok(snap) {
				return snap
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func ids(state viewmodel.State) []string {
	items, ok := state.(viewmodel.Items)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func hasIDs(want ...string) func(Snapshot) bool {
	return func(s Snapshot) bool {
		got := ids(s.State)
		if got == nil {
			return false
		}
		return reflect.DeepEqual(got, want)
	}
}

func TestTapBlockRemovesRow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New()
	ch := newFakeChannel()
	o := New(st, ch, WithRequestIDs(func() string { return "r1" }))
	defer o.Close()

	states := o.States(ctx)
	first := waitFor(t, states, "initial", func(Snapshot) bool { return true })
	if _, ok := first.State.(viewmodel.Empty); !ok || first.Hint != HintInitial {
		t.Fatalf("expected initial Empty, got %+v", first)
	}

	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	st.SetAccounts([]account.Account{{ID: "E1", Name: "Alpha"}, {ID: "E2", Name: "Beta"}})
	st.SetBalances([]account.Balance{account.NewBalance("B1", "E1", "10")})

	snap := waitFor(t, states, "reduction", hasIDs("E1", "E2"))
	items := snap.State.(viewmodel.Items)
	if items[0].Amount != "10.00" || items[1].Amount != viewmodel.Unknown {
		t.Fatalf("unexpected amounts: %+v", items)
	}
	if snap.Hint != HintReplace {
		t.Fatalf("expected replace hint, got %s", snap.Hint)
	}

	o.OnItemTapped("E1")
	select {
	case req := <-ch.sent:
		if req.AccountID != "E1" || req.RequestID != "r1" {
			t.Fatalf("unexpected request %s", req.Describe())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no block request sent")
	}

	ch.results <- events.Blocked("E1", "r1")
	snap = waitFor(t, states, "patch", hasIDs("E2"))
	if snap.Hint != HintPatch || snap.Removed != "E1" {
		t.Fatalf("expected patch removing E1, got %+v", snap)
	}
	if got := snap.State.(viewmodel.Items)[0]; got.Name != "Beta" || got.Amount != viewmodel.Unknown {
		t.Fatalf("unexpected remaining item %+v", got)
	}
}

func TestFailedAndDeclinedResultsKeepState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New()
	ch := newFakeChannel()
	sink := &recordingSink{}
	o := New(st, ch, WithErrorSink(sink))
	defer o.Close()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	states := o.States(ctx)

	st.SetAccounts([]account.Account{{ID: "E1"}, {ID: "E2"}, {ID: "E3"}})
	st.SetBalances(nil)
	before := waitFor(t, states, "reduction", hasIDs("E1", "E2", "E3"))

	cause := errors.New("backend down")
	ch.results <- events.Failed("E1", "r1", cause)
	ch.results <- events.Declined("E2", "r2")
	ch.results <- events.Blocked("E9", "r3")
	ch.results <- events.Blocked("E3", "r4")

	after := waitFor(t, states, "patch of E3", hasIDs("E1", "E2"))
	if after.Seq != before.Seq+1 {
		t.Fatalf("expected exactly one commit, seq %d -> %d", before.Seq, after.Seq)
	}
	reports := sink.list()
	if len(reports) != 1 || reports[0].AccountID != "E1" || !errors.Is(reports[0].Cause, cause) {
		t.Fatalf("unexpected reports %+v", reports)
	}
}

func TestResultBeforeDataIsNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := newFakeChannel()
	b := bus.New()
	o := New(store.New(), ch, WithBus(b))
	defer o.Close()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	ch.results <- events.Blocked("E1", "r1")
	deadline := time.Now().Add(2 * time.Second)
	for b.Len() > 0 || len(ch.results) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("result never drained")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	cur := o.Current()
	if _, ok := cur.State.(viewmodel.Empty); !ok || cur.Seq != 0 {
		t.Fatalf("expected untouched Empty, got %+v", cur)
	}
}

func TestInitialStateCanBePatched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial := viewmodel.Items{{ID: "E1"}, {ID: "E2"}}
	ch := newFakeChannel()
	o := New(nil, ch, WithInitialState(initial))
	defer o.Close()

	cur := o.Current()
	if cur.Hint != HintInitial || !reflect.DeepEqual(cur.State, initial) {
		t.Fatalf("unexpected initial snapshot %+v", cur)
	}
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	states := o.States(ctx)
	ch.results <- events.Blocked("E2", "r")
	waitFor(t, states, "patch", hasIDs("E1"))

	ch.results <- events.Blocked("E1", "r")
	snap := waitFor(t, states, "last removal", func(s Snapshot) bool { return s.State.Len() == 0 })
	if _, ok := snap.State.(viewmodel.Items); !ok {
		t.Fatalf("expected empty Items after removing the last row, got %T", snap.State)
	}
}

func TestReductionWinsOverPendingPatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New()
	st.SetAccounts([]account.Account{{ID: "E1"}, {ID: "E2"}})
	st.SetBalances(nil)

	b := bus.New()
	if err := b.PublishResult(events.Blocked("E1", "r")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	o := New(st, nil, WithBus(b), WithInitialState(viewmodel.Items{{ID: "E1"}, {ID: "E2"}}))
	defer o.Close()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	states := o.States(ctx)

	snap := waitFor(t, states, "reduction", func(s Snapshot) bool { return s.Hint == HintReplace })
	if got := ids(snap.State); !reflect.DeepEqual(got, []string{"E1", "E2"}) {
		t.Fatalf("expected reduction to win, got %v", got)
	}
	time.Sleep(20 * time.Millisecond)
	if cur := o.Current(); cur.Seq != snap.Seq {
		t.Fatalf("expected reduction to be the last commit, got %+v", cur)
	}
}

func TestTapsBeforeStartAreDispatched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := newFakeChannel()
	o := New(store.New(), ch)
	defer o.Close()

	o.OnItemTapped("E1")
	o.OnItemTapped("E1")
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case req := <-ch.sent:
			if req.AccountID != "E1" {
				t.Fatalf("unexpected request %s", req.Describe())
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("expected two requests, got %d", i)
		}
	}
}

func TestLifecycle(t *testing.T) {
	o := New(store.New(), newFakeChannel())
	states := o.States(context.Background())
	<-states

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	o.Close()
	o.Close()

	select {
	case _, ok := <-states:
		if ok {
			t.Fatal("expected states closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("states not closed by Close")
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	o.OnItemTapped("E1")
}

func TestStaleFailuresAreNotReported(t *testing.T) {
	tests := []struct {
		name    string
		initial viewmodel.State
		res     events.BlockResult
	}{
		{name: "undisplayed id", initial: viewmodel.Items{{ID: "E1"}}, res: events.Failed("E9", "r1", errors.New("backend down"))},
		{name: "no data yet", initial: viewmodel.Empty{}, res: events.Failed("E1", "r1", errors.New("backend down"))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ch := newFakeChannel()
			b := bus.New()
			sink := &recordingSink{}
			o := New(nil, ch, WithBus(b), WithErrorSink(sink), WithInitialState(tc.initial))
			defer o.Close()
			if err := o.Start(ctx); err != nil {
				t.Fatalf("start: %v", err)
			}

			ch.results <- tc.res
			deadline := time.Now().Add(2 * time.Second)
			for b.Len() > 0 || len(ch.results) > 0 {
				if time.Now().After(deadline) {
					t.Fatal("result never drained")
				}
				time.Sleep(5 * time.Millisecond)
			}
			time.Sleep(20 * time.Millisecond)

			if reports := sink.list(); len(reports) != 0 {
				t.Fatalf("expected no reports, got %+v", reports)
			}
			if cur := o.Current(); cur.Seq != 0 {
				t.Fatalf("expected no commit, got %+v", cur)
			}
		})
	}
}

func TestActionsFollowArrivalOrderAroundReduction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.New()
	o := New(nil, nil, WithBus(b), WithInitialState(viewmodel.Items{{ID: "E1"}, {ID: "E2"}, {ID: "E3"}}))

	// E1 was blocked against the old rows, E2 after the new rows arrived.
	if err := b.PublishResult(events.Blocked("E1", "r1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	data := make(chan arrival, 1)
	data <- arrival{
		snap: store.Snapshot{Accounts: []account.Account{{ID: "E1"}, {ID: "E2"}, {ID: "E3"}}, Rev: 2},
		seq:  b.Mark(),
	}
	if err := b.PublishResult(events.Blocked("E2", "r2")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.run(ctx, data)
	}()

	states := o.States(ctx)
	snap := waitFor(t, states, "patch after reduction", hasIDs("E1", "E3"))
	if snap.Hint != HintPatch || snap.Removed != "E2" {
		t.Fatalf("expected E2 patched on top of the reduction, got %+v", snap)
	}
	cancel()
	<-done
}

func TestBusClosesWhenStartContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	b := bus.New()
	o := New(store.New(), newFakeChannel(), WithBus(b))
	defer o.Close()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for !errors.Is(b.PublishGesture(events.ItemTapped{ID: "E1"}), bus.ErrClosed) {
		if time.Now().After(deadline) {
			t.Fatal("bus still open after the loop stopped")
		}
		time.Sleep(5 * time.Millisecond)
	}
	b.Drain()

	o.OnItemTapped("E1")
	if n := b.Len(); n != 0 {
		t.Fatalf("expected taps to be dropped, %d pending", n)
	}
}
