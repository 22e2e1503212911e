package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/acctview/pkg/account/viewmodel"
)

// PrettyPrint renders display states for the terminal.
type PrettyPrint struct {
	ShowID bool
	// Out defaults to color.Output.
	Out io.Writer
}

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d", count)

	switch count {
	case 1:
		_, _ = c.Fprintln(pp.out(), " account")
	default:
		_, _ = c.Fprintln(pp.out(), " accounts")
	}
}

// Items prints state as a table. Empty prints a waiting notice, an empty
// Items list prints "none".
func (pp *PrettyPrint) Items(title string, state viewmodel.State) {
	f := color.New(color.Faint, color.Italic)

	items, ok := state.(viewmodel.Items)
	if !ok {
		pp.Title(title)
		_, _ = f.Fprint(pp.out(), " no data yet\n\n")
		return
	}
	pp.TitleWithCount(title, len(items))
	if len(items) == 0 {
		_, _ = f.Fprint(pp.out(), " none\n\n")
		return
	}

	bold := color.New(color.Bold)
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	unknown := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	header := []interface{}{bold.Sprint("Account"), bold.Sprint("Balance")}
	if pp.ShowID {
		header = append([]interface{}{bold.Sprint("ID")}, header...)
	}
	tbl.AddRow(header...)
	for _, it := range items {
		amount := it.Amount
		if amount == viewmodel.Unknown {
			amount = unknown.Sprint(strings.ToLower(amount))
		}
		row := []interface{}{it.Name, amount}
		if pp.ShowID {
			row = append([]interface{}{y.Sprint(it.ID)}, row...)
		}
		tbl.AddRow(row...)
	}
	tbl.RightAlign(len(header) - 1)

	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}
