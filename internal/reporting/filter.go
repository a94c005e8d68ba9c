// Package reporting holds the filter and status types shared by report services.
package reporting

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/retailhq/headoffice/internal/upstream"
)

const dateLayout = "2006-01-02"

// MaxRangeDays caps how wide a single report window may be.
const MaxRangeDays = 366

// ErrInvalidFilter is wrapped by every filter validation failure.
var ErrInvalidFilter = errors.New("invalid filter")

var validate = validator.New(validator.WithRequiredStructEnabled())

// DateFilter is an inclusive reporting window.
type DateFilter struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// ParseDateFilter reads from/to from query, defaulting to month-to-date.
func ParseDateFilter(q url.Values, now time.Time) (DateFilter, error) {
	now = now.UTC()
	f := DateFilter{
		From: strings.TrimSpace(q.Get("from")),
		To:   strings.TrimSpace(q.Get("to")),
	}
	if f.From == "" {
		f.From = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	}
	if f.To == "" {
		f.To = now.Format(dateLayout)
	}
	return f, f.Validate()
}

// Validate checks formats, ordering and the maximum span.
func (f DateFilter) Validate() error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidFilter, strings.ToLower(verrs[0].Field()))
		}
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	from, to := f.Bounds()
	if from.After(to) {
		return fmt.Errorf("%w: from must not be after to", ErrInvalidFilter)
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxRangeDays {
		return fmt.Errorf("%w: window of %d days exceeds %d", ErrInvalidFilter, days, MaxRangeDays)
	}
	return nil
}

// Bounds returns the parsed window. Call Validate first.
func (f DateFilter) Bounds() (time.Time, time.Time) {
	from, _ := time.ParseInLocation(dateLayout, f.From, time.UTC)
	to, _ := time.ParseInLocation(dateLayout, f.To, time.UTC)
	return from, to
}

// Days returns the number of days in the window, inclusive.
func (f DateFilter) Days() int {
	from, to := f.Bounds()
	return int(to.Sub(from).Hours()/24) + 1
}

// Previous returns the window of equal length that ends the day before From.
func (f DateFilter) Previous() DateFilter {
	from, _ := f.Bounds()
	days := f.Days()
	prevTo := from.AddDate(0, 0, -1)
	prevFrom := prevTo.AddDate(0, 0, -(days - 1))
	return DateFilter{From: prevFrom.Format(dateLayout), To: prevTo.Format(dateLayout)}
}

// Range converts the filter into the API query shape.
func (f DateFilter) Range() upstream.DateRange {
	return upstream.DateRange{From: f.From, To: f.To}
}

// CacheKey returns the filter's cache key segment.
func (f DateFilter) CacheKey() string {
	return f.From + "_" + f.To
}
