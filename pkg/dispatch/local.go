package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tableflip.dev/acctview/pkg/events"
)

var (
	// ErrThrottled is the failure cause for requests the local service
	// refused to admit.
	ErrThrottled = errors.New("dispatch: request throttled")

	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("dispatch: channel closed")
)

// LocalOptions configures the in-process block service.
type LocalOptions struct {
	// Latency delays every answer.
	Latency time.Duration
	// Limiter admits requests; nil admits everything. Requests over the
	// limit are answered with a Failure carrying ErrThrottled.
	Limiter *rate.Limiter
	// Decide produces the outcome for an admitted request. Nil blocks every
	// account.
	Decide func(accountID string) events.Outcome
}

// Local is an in-process command channel standing in for a remote block
// service.
type Local struct {
	opts    LocalOptions
	results chan events.BlockResult

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewLocal starts a local block service.
func NewLocal(opts LocalOptions) *Local {
	if opts.Decide == nil {
		opts.Decide = func(string) events.Outcome { return events.Success{Blocked: true} }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Local{
		opts:    opts,
		results: make(chan events.BlockResult, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RefuseIDs returns a Decide function that declines the given accounts and
// blocks every other one.
func RefuseIDs(ids ...string) func(string) events.Outcome {
	refused := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		refused[id] = struct{}{}
	}
	return func(id string) events.Outcome {
		if _, ok := refused[id]; ok {
			return events.Success{Blocked: false}
		}
		return events.Success{Blocked: true}
	}
}

// Send implements Sender. The answer arrives later on Results.
func (l *Local) Send(_ context.Context, req events.BlockRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	var outcome events.Outcome
	if l.opts.Limiter != nil && !l.opts.Limiter.Allow() {
		outcome = events.Failure{Cause: ErrThrottled}
	}
	l.wg.Add(1)
	go l.answer(req, outcome)
	return nil
}

func (l *Local) answer(req events.BlockRequest, outcome events.Outcome) {
	defer l.wg.Done()
	if l.opts.Latency > 0 {
		timer := time.NewTimer(l.opts.Latency)
		defer timer.Stop()
		select {
		case <-l.ctx.Done():
			return
		case <-timer.C:
		}
	}
	if outcome == nil {
		outcome = l.opts.Decide(req.AccountID)
	}
	res := events.BlockResult{AccountID: req.AccountID, RequestID: req.RequestID, Outcome: outcome}
	select {
	case <-l.ctx.Done():
	case l.results <- res:
	}
}

// Results implements Channel. The channel is closed by Close.
func (l *Local) Results() <-chan events.BlockResult {
	return l.results
}

// Close abandons in-flight requests and closes Results.
func (l *Local) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
	close(l.results)
}
