package dispatch

import (
	"log/slog"
)

// ErrorSink receives failed command outcomes together with the account they
// were issued for.
type ErrorSink interface {
	Report(accountID string, cause error)
}

// Report is one failure delivered by ChanSink.
type Report struct {
	AccountID string
	Cause     error
}

// NopSink discards reports.
type NopSink struct{}

// Report implements ErrorSink.
func (NopSink) Report(string, error) {}

// LogSink writes reports to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Report implements ErrorSink.
func (s LogSink) Report(accountID string, cause error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Error("block command failed", "account", accountID, "err", cause)
}

// ChanSink buffers reports for a UI to pick up. When the buffer is full new
// reports are dropped so callers never block.
type ChanSink struct {
	ch chan Report
}

// NewChanSink returns a sink buffering up to size reports.
func NewChanSink(size int) *ChanSink {
	if size <= 0 {
		size = 16
	}
	return &ChanSink{ch: make(chan Report, size)}
}

// Report implements ErrorSink.
func (s *ChanSink) Report(accountID string, cause error) {
	select {
	case s.ch <- Report{AccountID: accountID, Cause: cause}:
	default:
	}
}

// C exposes the report stream.
func (s *ChanSink) C() <-chan Report {
	return s.ch
}

// MultiSink fans a report out to several sinks.
type MultiSink []ErrorSink

// Report implements ErrorSink.
func (m MultiSink) Report(accountID string, cause error) {
	for _, s := range m {
		if s != nil {
			s.Report(accountID, cause)
		}
	}
}
