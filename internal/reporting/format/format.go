// Package format renders amounts, dates and growth figures for tables and exports.
package format

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotAvailable is shown wherever a figure has no meaningful value.
const NotAvailable = "N/A"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"02/01/2006",
}

// Formatter formats numbers for one locale and currency.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// New builds a Formatter for a BCP 47 locale and an ISO 4217 currency code.
func New(locale, currencyCode string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("format: locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("format: currency %q: %w", currencyCode, err)
	}
	printer := message.NewPrinter(tag)
	symbol := strings.TrimSpace(printer.Sprint(currency.NarrowSymbol(unit)))
	if symbol == "" {
		symbol = unit.String()
	}
	return &Formatter{printer: printer, symbol: symbol}, nil
}

// Currency renders v with the currency symbol and two grouped decimals.
func (f *Formatter) Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	sign := ""
	if v < 0 {
		sign = "-"
	}
	return sign + f.symbol + " " + f.printer.Sprintf("%.2f", math.Abs(v))
}

// Number renders v with locale grouping and the given precision.
func (f *Formatter) Number(v float64, precision int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	return f.printer.Sprintf("%.*f", precision, v)
}

// Growth renders a percentage change, or N/A when there is no baseline.
func Growth(pct *float64) string {
	if pct == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%+.1f%%", *pct)
}

// ParseDate accepts the date layouts the API is known to emit.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("format: empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("format: unrecognised date %q", s)
}

// Date renders an API date as "02 Jan 2006", passing unknown input through.
func Date(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format("02 Jan 2006")
}

// DaysBetween returns whole days from a to b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
