package ui

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"tableflip.dev/acctview/pkg/app"
	"tableflip.dev/acctview/pkg/dispatch"
	"tableflip.dev/acctview/pkg/metrics"
	"tableflip.dev/acctview/pkg/tui"
)

// UI runs the interactive account list.
type UI struct {
	Service *app.Service
	// MetricsAddr serves /metrics while the UI runs when set.
	MetricsAddr string
	Logger      *slog.Logger
}

// Do starts the engine and blocks until the user quits.
func (u *UI) Do(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := u.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	reg := prometheus.NewRegistry()
	u.Service.Registerer = reg
	u.Service.Logger = log
	reports := dispatch.NewChanSink(8)
	u.Service.Sink = reports

	if u.MetricsAddr != "" {
		go func() {
			if err := metrics.ListenAndServe(ctx, u.MetricsAddr, reg); err != nil {
				log.Error("metrics server", "addr", u.MetricsAddr, "err", err)
			}
		}()
	}

	orch, err := u.Service.Start(ctx)
	if err != nil {
		return err
	}
	defer u.Service.Close()

	return tui.Run(ctx, orch, reports.C())
}
