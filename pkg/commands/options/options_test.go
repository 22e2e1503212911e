package options

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tableflip.dev/acctview/pkg/app"
)

func TestWrap(t *testing.T) {
	got := Wrap("block   the\tselected account\n now", 12)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 12 {
			t.Fatalf("line %q exceeds width in %q", line, got)
		}
	}
	if strings.Join(strings.Fields(got), " ") != "block the selected account now" {
		t.Fatalf("words changed: %q", got)
	}
	if Wrap("   ", 10) != "   " {
		t.Fatal("expected blank text untouched")
	}
}

func TestHandleErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	o := &OutputOptions{JSON: true, Out: &buf}

	err := fmt.Errorf("list: %w", context.DeadlineExceeded)
	if got := o.HandleError(err); got != nil {
		t.Fatalf("expected error swallowed, got %v", got)
	}
	var out ErrorOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if out.Error.Kind != "timeout" || out.Error.Message != err.Error() {
		t.Fatalf("unexpected body %+v", out)
	}
}

func TestHandleErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	o := &OutputOptions{}
	if got := o.HandleError(boom); got != boom {
		t.Fatalf("expected boom, got %v", got)
	}
	o.JSON = true
	if got := o.HandleError(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestErrorKind(t *testing.T) {
	tests := map[error]string{
		app.ErrNoPersistence: "no_persistence",
		app.ErrNotStarted:    "not_started",
		context.Canceled:     "canceled",
		errors.New("x"):      "failed",
	}
	for err, want := range tests {
		if got := ErrorKind(err); got != want {
			t.Fatalf("%v: expected %q, got %q", err, want, got)
		}
	}
}
