// Package seed writes sample records to the data directory.
package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/acctview/pkg/source"
)

// Seed writes the sample accounts and balances.
type Seed struct {
	Disk  *source.Disk
	Reset bool
	Out   io.Writer
}

func (s *Seed) Do(_ context.Context) error {
	if s.Disk == nil {
		return source.ErrNoPersistence
	}
	out := s.Out
	if out == nil {
		out = color.Output
	}
	if err := s.Disk.Seed(s.Reset); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "seeded %d accounts and %d balances into %s\n",
		len(source.SampleAccounts()), len(source.SampleBalances()), s.Disk.BasePath())
	return nil
}
