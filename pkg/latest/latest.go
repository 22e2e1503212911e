// Package latest provides a latest-value cell: each new value supersedes any
// value a subscriber has not consumed yet.
package latest

import (
	"context"
	"sync"
)

// Value holds the most recent T and fans it out to subscribers. The zero
// value is ready to use.
type Value[T any] struct {
	mu   sync.Mutex
	val  T
	set  bool
	subs map[chan T]struct{}
}

// Set replaces the current value and offers it to every subscriber. A
// subscriber that has not drained its previous value loses it.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.val = x
	v.set = true
	for ch := range v.subs {
		offer(ch, x)
	}
}

// Get returns the current value and whether one was ever set.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.val, v.set
}

// Subscribe streams values until ctx is done, then closes the channel. The
// current value, if any, is replayed immediately.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	v.mu.Lock()
	if v.subs == nil {
		v.subs = make(map[chan T]struct{})
	}
	v.subs[ch] = struct{}{}
	if v.set {
		ch <- v.val
	}
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.subs, ch)
		close(ch)
		v.mu.Unlock()
	}()
	return ch
}

// Subscribers reports the number of live subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// offer must be called with the owning lock held so no other writer can
// refill ch between the drain and the send.
func offer[T any](ch chan T, x T) {
	select {
	case ch <- x:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- x
}
