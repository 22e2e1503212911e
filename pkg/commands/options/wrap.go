package options

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

// HelpWidth is the column help text is wrapped at.
const HelpWidth = 80

// Wrap80 wraps flag and command help at HelpWidth.
func Wrap80(text string) string {
	return Wrap(text, HelpWidth)
}

// Wrap collapses runs of whitespace in text and wraps it at width columns.
// Words longer than width are kept whole on their own line.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 || width <= 0 {
		return text
	}
	return wordwrap.String(strings.Join(words, " "), width)
}
