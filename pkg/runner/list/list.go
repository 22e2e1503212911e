// Package list prints the reduced account list once.
package list

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/acctview/pkg/account/viewmodel"
	"tableflip.dev/acctview/pkg/app"
	"tableflip.dev/acctview/pkg/printers"
)

// List loads the accounts, reduces them and prints the result.
type List struct {
	Service *app.Service
	ShowID  bool
	JSON    bool
	// Timeout bounds the wait for the first reduction.
	Timeout time.Duration
	Out     io.Writer
}

// Do prints the first reduced state.
func (l *List) Do(ctx context.Context) error {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	out := l.Out
	if out == nil {
		out = color.Output
	}

	if _, err := l.Service.Start(ctx); err != nil {
		return err
	}
	defer l.Service.Close()

	state, err := l.Service.First(ctx)
	if err != nil {
		return err
	}

	if l.JSON {
		items, _ := state.(viewmodel.Items)
		if items == nil {
			items = viewmodel.Items{}
		}
		b, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(b))
		return nil
	}

	pp := printers.PrettyPrint{ShowID: l.ShowID, Out: out}
	pp.Items("Accounts", state)
	return nil
}
