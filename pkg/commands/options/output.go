package options

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tableflip.dev/acctview/pkg/app"
)

// OutputOptions selects machine readable output.
type OutputOptions struct {
	JSON bool
	// Out defaults to color.Output.
	Out io.Writer
}

func AddOutputArg(cmd *cobra.Command, po *OutputOptions) {
	cmd.Flags().BoolVar(&po.JSON, "json", false,
		"Output as JSON.")
}

// ErrorOutput is the JSON body written for a failed command.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail classifies a failure so scripts can branch on Kind.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorKind maps err to a stable kind.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, app.ErrNoPersistence):
		return "no_persistence"
	case errors.Is(err, app.ErrNotStarted):
		return "not_started"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}

// HandleError prints err as JSON and swallows it when --json is set;
// otherwise err is returned for cobra to print.
func (o *OutputOptions) HandleError(err error) error {
	if !o.JSON || err == nil {
		return err
	}
	b, merr := json.Marshal(ErrorOutput{Error: ErrorDetail{Kind: ErrorKind(err), Message: err.Error()}})
	if merr != nil {
		return err
	}
	out := o.Out
	if out == nil {
		out = color.Output
	}
	_, _ = fmt.Fprintln(out, string(b))
	return nil
}
