// Package orchestrator owns the current display state. It binds the domain
// store and the command channel to a single serial loop so that every state
// transition is computed and published by one goroutine.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tableflip.dev/acctview/pkg/account/viewmodel"
	"tableflip.dev/acctview/pkg/bus"
	"tableflip.dev/acctview/pkg/dispatch"
	"tableflip.dev/acctview/pkg/events"
	"tableflip.dev/acctview/pkg/latest"
	"tableflip.dev/acctview/pkg/metrics"
	"tableflip.dev/acctview/pkg/store"
)

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("orchestrator: already started")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("orchestrator: closed")
)

// Hint tells renderers how a snapshot came about.
type Hint int

const (
	// HintInitial marks the state the orchestrator was created with.
	HintInitial Hint = iota
	// HintReplace marks a full reduction of new domain data.
	HintReplace
	// HintPatch marks the removal of a single row.
	HintPatch
)

func (h Hint) String() string {
	switch h {
	case HintInitial:
		return "initial"
	case HintReplace:
		return "replace"
	case HintPatch:
		return "patch"
	default:
		return "unknown"
	}
}

// Snapshot is one committed display state. Snapshots are never mutated after
// publication, so two of them can be diffed safely.
type Snapshot struct {
	Seq   uint64
	State viewmodel.State
	Hint  Hint
	// Removed names the row dropped by a HintPatch snapshot.
	Removed string
}

// Orchestrator is the view-model. Create it with New, run it with Start and
// release it with Close.
type Orchestrator struct {
	store      *store.Store
	channel    dispatch.Channel
	bus        *bus.Bus
	dispatcher *dispatch.Dispatcher

	formatter viewmodel.Formatter
	sink      dispatch.ErrorSink
	log       *slog.Logger
	metrics   *metrics.Metrics
	requestID func() string

	out latest.Value[Snapshot]

	// Owned by the loop goroutine once started.
	state viewmodel.State
	seq   uint64

	life context.Context
	kill context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithInitialState starts from state instead of Empty.
func WithInitialState(state viewmodel.State) Option {
	return func(o *Orchestrator) {
		if state != nil {
			o.state = state
		}
	}
}

// WithFormatter sets the amount formatter used by reductions.
func WithFormatter(f viewmodel.Formatter) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.formatter = f
		}
	}
}

// WithErrorSink receives failed command outcomes.
func WithErrorSink(sink dispatch.ErrorSink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics records engine activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithBus uses b instead of a private bus.
func WithBus(b *bus.Bus) Option {
	return func(o *Orchestrator) {
		if b != nil {
			o.bus = b
		}
	}
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(fn func() string) Option {
	return func(o *Orchestrator) {
		o.requestID = fn
	}
}

// New builds an orchestrator over st and ch. The initial state is published
// immediately.
func New(st *store.Store, ch dispatch.Channel, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		channel:   ch,
		formatter: viewmodel.DefaultFormatter(),
		sink:      dispatch.NopSink{},
		log:       slog.New(slog.DiscardHandler),
		state:     viewmodel.Empty{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.bus == nil {
		o.bus = bus.New()
	}
	dopts := []dispatch.Option{
		dispatch.WithErrorSink(o.sink),
		dispatch.WithLogger(o.log),
	}
	if o.requestID != nil {
		dopts = append(dopts, dispatch.WithRequestIDs(o.requestID))
	}
	var sender dispatch.Sender
	if ch != nil {
		sender = ch
	}
	o.dispatcher = dispatch.New(sender, dopts...)
	o.life, o.kill = context.WithCancel(context.Background())
	o.out.Set(Snapshot{State: o.state, Hint: HintInitial})
	return o
}

// Start subscribes to the store and the command channel and begins
// processing. Everything started here stops when ctx is done or Close is
// called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.started {
		return ErrAlreadyStarted
	}
	o.started = true

	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(o.life, cancel)

	var data <-chan arrival
	if o.store != nil {
		in := o.store.Subscribe(runCtx)
		out := make(chan arrival, 1)
		data = out
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.pumpData(in, out)
		}()
	}
	if o.channel != nil {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.pumpResults(runCtx, o.channel.Results())
		}()
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer stop()
		defer cancel()
		// Taps after the loop exits have no consumer.
		defer o.bus.Close()
		o.run(runCtx, data)
	}()
	return nil
}

// States streams committed snapshots until ctx is done or the orchestrator
// is closed. The latest snapshot is replayed on subscribe.
func (o *Orchestrator) States(ctx context.Context) <-chan Snapshot {
	sub, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(o.life, cancel)
	context.AfterFunc(sub, func() { stop() })
	return o.out.Subscribe(sub)
}

// Current returns the latest committed snapshot.
func (o *Orchestrator) Current() Snapshot {
	snap, _ := o.out.Get()
	return snap
}

// OnItemTapped records a tap on the row for id. It never blocks.
func (o *Orchestrator) OnItemTapped(id string) {
	if err := o.bus.PublishGesture(events.ItemTapped{ID: id}); err != nil {
		o.log.Debug("tap dropped", "id", id, "err", err)
	}
}

// Close cancels every subscription and waits for the loop to exit. It is
// safe to call more than once.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.kill()
	o.bus.Close()
	o.wg.Wait()
}

func (o *Orchestrator) pumpResults(ctx context.Context, results <-chan events.BlockResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			if err := o.bus.PublishResult(res); err != nil {
				return
			}
		}
	}
}

// arrival is a store snapshot stamped with its place in the bus order.
type arrival struct {
	snap store.Snapshot
	seq  uint64
}

// pumpData stamps each store snapshot and keeps only the newest one waiting
// for the loop. It closes out once in is closed.
func (o *Orchestrator) pumpData(in <-chan store.Snapshot, out chan arrival) {
	defer close(out)
	for snap := range in {
		a := arrival{snap: snap, seq: o.bus.Mark()}
		select {
		case <-out:
		default:
		}
		out <- a
	}
}

// run is the single consumer. Actions and snapshots are applied in arrival
// order: actions stamped before the pending snapshot are applied first, so
// the full reduction wins over patches of older data, and actions stamped
// after it are applied on top of the reduction.
func (o *Orchestrator) run(ctx context.Context, data <-chan arrival) {
	for {
		var pending *arrival
		select {
		case <-ctx.Done():
			return
		case a, ok := <-data:
			if !ok {
				data = nil
				continue
			}
			pending = &a
		case <-o.bus.Ready():
		}

		// Pick up a waiting snapshot before draining so every action
		// older than it is part of this drain.
		if pending == nil {
			select {
			case a, ok := <-data:
				if ok {
					pending = &a
				}
			default:
			}
		}
		actions := o.bus.Drain()
		if pending == nil {
			o.handle(ctx, actions)
			continue
		}

		split := len(actions)
		for i, a := range actions {
			if a.Seq > pending.seq {
				split = i
				break
			}
		}
		o.handle(ctx, actions[:split])
		o.reduce(pending.snap)
		o.handle(ctx, actions[split:])
	}
}

func (o *Orchestrator) handle(ctx context.Context, actions []bus.Action) {
	for _, a := range actions {
		o.log.Debug("action", "seq", a.Seq, "event", a.Describe())
		switch {
		case a.Gesture != nil:
			if _, err := o.dispatcher.HandleGesture(ctx, a.Gesture); err != nil {
				o.log.Warn("dispatch failed", "err", err)
				continue
			}
			o.metrics.Requested()
		case a.Result != nil:
			o.metrics.Resulted(outcomeLabel(a.Result.Outcome))
			next, changed := o.dispatcher.HandleResult(o.state, *a.Result)
			if changed {
				o.commit(next, HintPatch, a.Result.AccountID)
			}
		}
	}
}

func (o *Orchestrator) reduce(snap store.Snapshot) {
	items := viewmodel.Reduce(snap.Accounts, snap.Balances, o.formatter)
	o.log.Debug("reduced", "rev", snap.Rev, "items", len(items))
	o.commit(viewmodel.Items(items), HintReplace, "")
}

func (o *Orchestrator) commit(state viewmodel.State, hint Hint, removed string) {
	o.seq++
	o.state = state
	o.out.Set(Snapshot{Seq: o.seq, State: state, Hint: hint, Removed: removed})
	o.metrics.Committed(hint.String(), state.Len())
}

func outcomeLabel(o events.Outcome) string {
	switch v := o.(type) {
	case events.Success:
		if v.Blocked {
			return "blocked"
		}
		return "declined"
	case events.Failure:
		return "failed"
	default:
		return "unknown"
	}
}
