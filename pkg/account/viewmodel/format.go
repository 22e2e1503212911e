package viewmodel

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ErrUnrepresentable is returned by formatters that cannot render a value.
var ErrUnrepresentable = errors.New("viewmodel: amount not representable")

// Formatter renders an amount for display.
type Formatter interface {
	Format(decimal.Decimal) (string, error)
}

// FormatterFunc adapts a function into a Formatter.
type FormatterFunc func(decimal.Decimal) (string, error)

// Format implements Formatter.
func (f FormatterFunc) Format(d decimal.Decimal) (string, error) {
	return f(d)
}

// fractionDigits is the number of decimals every formatted amount carries.
const fractionDigits = 2

// maxExact is the largest magnitude whose cents survive a float64 round trip.
var maxExact = decimal.New(1, 13)

type localeFormatter struct {
	printer *message.Printer
}

// NewLocaleFormatter returns a formatter that groups and punctuates amounts
// according to tag and always prints two fraction digits.
func NewLocaleFormatter(tag language.Tag) Formatter {
	return &localeFormatter{printer: message.NewPrinter(tag)}
}

// DefaultFormatter formats for American English.
func DefaultFormatter() Formatter {
	return NewLocaleFormatter(language.AmericanEnglish)
}

func (f *localeFormatter) Format(d decimal.Decimal) (string, error) {
	rounded := d.Round(fractionDigits)
	if rounded.Abs().GreaterThanOrEqual(maxExact) {
		return "", ErrUnrepresentable
	}
	v := rounded.InexactFloat64()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", ErrUnrepresentable
	}
	return f.printer.Sprint(number.Decimal(v, number.Scale(fractionDigits))), nil
}

// ParseLocale resolves a BCP 47 tag, falling back to American English when
// raw is empty or malformed.
func ParseLocale(raw string) language.Tag {
	if raw == "" {
		return language.AmericanEnglish
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}
