// Package dispatch correlates user gestures with outbound block commands and
// command results with display patches. It keeps no state of its own: both
// directions are keyed by the account id carried in the messages.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tableflip.dev/acctview/pkg/account/viewmodel"
	"tableflip.dev/acctview/pkg/events"
)

// Sender delivers block requests. Send must not wait for the result.
type Sender interface {
	Send(ctx context.Context, req events.BlockRequest) error
}

// Channel is the command channel: fire-and-forget requests plus a stream of
// results.
type Channel interface {
	Sender
	Results() <-chan events.BlockResult
}

// Dispatcher turns taps into requests and results into patches.
type Dispatcher struct {
	sender Sender
	sink   ErrorSink
	log    *slog.Logger
	newID  func() string
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithErrorSink routes failed outcomes and send errors to sink.
func WithErrorSink(sink ErrorSink) Option {
	return func(d *Dispatcher) {
		if sink != nil {
			d.sink = sink
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// New returns a dispatcher sending through sender.
func New(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		sink:   NopSink{},
		log:    slog.New(slog.DiscardHandler),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleGesture sends exactly one request per tap. Repeated taps are not
// deduplicated.
func (d *Dispatcher) HandleGesture(ctx context.Context, g events.Gesture) (events.BlockRequest, error) {
	switch v := g.(type) {
	case events.ItemTapped:
		req := events.BlockRequest{AccountID: v.ID, RequestID: d.newID()}
		if d.sender == nil {
			err := fmt.Errorf("dispatch: send %s: no command channel", v.ID)
			d.sink.Report(v.ID, err)
			return req, err
		}
		if err := d.sender.Send(ctx, req); err != nil {
			err = fmt.Errorf("dispatch: send %s: %w", v.ID, err)
			d.sink.Report(v.ID, err)
			return req, err
		}
		d.log.Debug("dispatched", "request", req.Describe())
		return req, nil
	default:
		return events.BlockRequest{}, fmt.Errorf("dispatch: unsupported gesture %T", g)
	}
}

// HandleResult applies res to state and forwards failures to the error sink.
// A result for an account that is not displayed is stale: it is ignored
// without a report whatever its outcome.
func (d *Dispatcher) HandleResult(state viewmodel.State, res events.BlockResult) (viewmodel.State, bool) {
	if !Displayed(state, res.AccountID) {
		d.log.Debug("stale result", "result", res.Describe())
		return state, false
	}
	if f, ok := res.Outcome.(events.Failure); ok {
		d.sink.Report(res.AccountID, f.Cause)
	}
	return Apply(state, res)
}

// Displayed reports whether state currently shows a row for id.
func Displayed(state viewmodel.State, id string) bool {
	items, ok := state.(viewmodel.Items)
	return ok && items.Index(id) >= 0
}

// Apply computes the state patch for res. Only a successful block of a
// displayed account changes anything; every other combination returns state
// unchanged and false.
func Apply(state viewmodel.State, res events.BlockResult) (viewmodel.State, bool) {
	switch o := res.Outcome.(type) {
	case events.Success:
		if !o.Blocked {
			return state, false
		}
		return viewmodel.Remove(state, res.AccountID)
	case events.Failure:
		return state, false
	default:
		return state, false
	}
}
