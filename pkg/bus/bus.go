// Package bus carries application actions to the single consumer that owns
// display state. Gestures and command results travel on separate typed lanes
// that share one arrival order.
package bus

import (
	"errors"
	"sync"

	"tableflip.dev/acctview/pkg/events"
)

// ErrClosed is returned when publishing to a closed bus.
var ErrClosed = errors.New("bus: closed")

// Action is one delivered item. Exactly one of Gesture or Result is set.
type Action struct {
	Seq     uint64
	Gesture events.Gesture
	Result  *events.BlockResult
}

// Describe renders the action for logs.
func (a Action) Describe() string {
	switch {
	case a.Gesture != nil:
		return a.Gesture.Describe()
	case a.Result != nil:
		return a.Result.Describe()
	default:
		return "empty"
	}
}

// Bus is an unbounded, ordered mailbox. Gestures are never coalesced; a
// result supersedes any undelivered result for the same account.
type Bus struct {
	mu      sync.Mutex
	seq     uint64
	pending []Action
	closed  bool

	ready chan struct{}
}

// New returns an open bus.
func New() *Bus {
	return &Bus{ready: make(chan struct{}, 1)}
}

// PublishGesture appends a gesture.
func (b *Bus) PublishGesture(g events.Gesture) error {
	if g == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.appendLocked(Action{Gesture: g})
	return nil
}

// PublishResult appends a result, dropping any undelivered result for the
// same account. The new result takes its own arrival position.
func (b *Bus) PublishResult(r events.BlockResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	kept := b.pending[:0]
	for _, a := range b.pending {
		if a.Result != nil && a.Result.AccountID == r.AccountID {
			continue
		}
		kept = append(kept, a)
	}
	b.pending = kept
	b.appendLocked(Action{Result: &r})
	return nil
}

// Mark reserves the next position in arrival order without enqueuing
// anything. Callers use it to order outside deliveries against actions: every
// action with a smaller Seq is already pending or drained.
func (b *Bus) Mark() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	return b.seq
}

// Ready fires whenever actions may be waiting. Consumers call Drain after a
// receive; a spurious wake-up yields an empty drain.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

// Drain removes and returns every pending action in arrival order.
func (b *Bus) Drain() []Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = nil
	return out
}

// Len reports the number of pending actions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close rejects further publications. Pending actions stay drainable.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func (b *Bus) appendLocked(a Action) {
	b.seq++
	a.Seq = b.seq
	b.pending = append(b.pending, a)
	select {
	case b.ready <- struct{}{}:
	default:
	}
}
