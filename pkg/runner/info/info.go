package info

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"tableflip.dev/acctview/pkg/config"
	"tableflip.dev/acctview/pkg/source"
)

type Info struct {
	Config config.Config
	Disk   *source.Disk
	Out    io.Writer
}

func (n *Info) Do(ctx context.Context) error {
	out := n.Out
	if out == nil {
		out = color.Output
	}

	if override := os.Getenv("ACCTVIEW_CONFIG_PATH"); override != "" {
		_, _ = fmt.Fprintln(out, "ACCTVIEW_CONFIG_PATH found on env, using", override)
	} else {
		_, _ = fmt.Fprintln(out, "ACCTVIEW_CONFIG_PATH env var not set")
	}

	if n.Config == nil {
		var err error
		n.Config, err = config.LoadConfig()
		if err != nil {
			return err
		}
	}

	b := n.Config.Block()
	_, _ = fmt.Fprintln(out, "Config.path:", n.Config.BasePath())
	_, _ = fmt.Fprintln(out, "Config.locale:", n.Config.Locale())
	_, _ = fmt.Fprintf(out, "Config.block: latency=%s rate=%g burst=%d refuse=%v\n", b.Latency, b.Rate, b.Burst, b.Refuse)
	if addr := n.Config.MetricsAddr(); addr != "" {
		_, _ = fmt.Fprintln(out, "Config.metrics.addr:", addr)
	}

	if n.Disk == nil {
		return fmt.Errorf("failed to create persistence object")
	}

	accts, err := n.Disk.Accounts(ctx)
	if err != nil {
		return err
	}
	bals, err := n.Disk.Balances(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Accounts: %d\n", len(accts))
	_, _ = fmt.Fprintf(out, "Balances: %d\n", len(bals))
	if len(accts) == 0 {
		_, _ = fmt.Fprintln(out, "  no accounts, run `acctview seed`")
	}
	return nil
}
