package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"tableflip.dev/acctview/pkg/account/viewmodel"
	"tableflip.dev/acctview/pkg/config"
	"tableflip.dev/acctview/pkg/dispatch"
	"tableflip.dev/acctview/pkg/metrics"
	"tableflip.dev/acctview/pkg/orchestrator"
	"tableflip.dev/acctview/pkg/source"
	"tableflip.dev/acctview/pkg/store"
)

var (
	// ErrNoPersistence is returned when the service has no disk source.
	ErrNoPersistence = errors.New("app: no persistence configured")
	// ErrNotStarted is returned by calls that need a running engine.
	ErrNotStarted = errors.New("app: not started")
)

// Service wires the disk source, the domain store, the block service and the
// orchestrator so UIs and CLIs can share one engine.
type Service struct {
	Config config.Config
	Disk   *source.Disk
	// Logger defaults to a discard logger.
	Logger *slog.Logger
	// Registerer receives the engine metrics when set.
	Registerer prometheus.Registerer
	// Sink receives failed block outcomes in addition to the log.
	Sink dispatch.ErrorSink

	mu      sync.Mutex
	orch    *orchestrator.Orchestrator
	channel *dispatch.Local
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	feedErr error
}

// Formatter returns the amount formatter for the configured locale.
func Formatter(cfg config.Config) viewmodel.Formatter {
	if cfg == nil {
		return viewmodel.DefaultFormatter()
	}
	return viewmodel.NewLocaleFormatter(viewmodel.ParseLocale(cfg.Locale()))
}

// NewChannel builds the in-process block service from the block config.
func NewChannel(b config.Block) *dispatch.Local {
	opts := dispatch.LocalOptions{
		Latency: b.Latency,
		Decide:  dispatch.RefuseIDs(b.Refuse...),
	}
	if b.Rate > 0 {
		burst := b.Burst
		if burst < 1 {
			burst = 1
		}
		opts.Limiter = rate.NewLimiter(rate.Limit(b.Rate), burst)
	}
	return dispatch.NewLocal(opts)
}

// Start loads the disk source into a fresh store and starts the orchestrator.
// The engine runs until ctx is done or Close is called.
func (s *Service) Start(ctx context.Context) (*orchestrator.Orchestrator, error) {
	if s.Disk == nil {
		return nil, ErrNoPersistence
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orch != nil {
		return nil, orchestrator.ErrAlreadyStarted
	}

	log := s.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	var block config.Block
	if s.Config != nil {
		block = s.Config.Block()
	}

	sink := dispatch.MultiSink{dispatch.LogSink{Logger: log}}
	if s.Sink != nil {
		sink = append(sink, s.Sink)
	}
	var m *metrics.Metrics
	if s.Registerer != nil {
		m = metrics.New(s.Registerer)
	}

	st := store.New()
	s.channel = NewChannel(block)
	s.orch = orchestrator.New(st, s.channel,
		orchestrator.WithFormatter(Formatter(s.Config)),
		orchestrator.WithErrorSink(sink),
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(m),
	)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if err := s.orch.Start(runCtx); err != nil {
		cancel()
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Disk.Feed(runCtx, st); err != nil {
			log.Error("feed stopped", "err", err)
			s.mu.Lock()
			s.feedErr = err
			s.mu.Unlock()
		}
	}()
	return s.orch, nil
}

// First waits for the first reduced state.
func (s *Service) First(ctx context.Context) (viewmodel.State, error) {
	s.mu.Lock()
	orch := s.orch
	s.mu.Unlock()
	if orch == nil {
		return nil, ErrNotStarted
	}

	sub, cancel := context.WithCancel(ctx)
	defer cancel()
	for snap := range orch.States(sub) {
		if snap.Hint != orchestrator.HintInitial {
			return snap.State, nil
		}
	}
	if err := s.err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("app: waiting for accounts: %w", err)
	}
	return nil, ErrNotStarted
}

func (s *Service) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedErr
}

// Close stops the engine and the block service.
func (s *Service) Close() {
	s.mu.Lock()
	orch, channel, cancel := s.orch, s.channel, s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if orch != nil {
		orch.Close()
	}
	s.wg.Wait()
	if channel != nil {
		channel.Close()
	}
}
