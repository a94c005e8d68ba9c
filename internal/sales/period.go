package sales

import (
	"strconv"
	"strings"
	"time"

	"github.com/retailhq/headoffice/internal/reporting/compare"
	"github.com/retailhq/headoffice/internal/reporting/format"
)

// Granularity is the bucket size of a sales series.
type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// DefaultJoin is the alignment used when the caller does not pick one. Day
// labels never repeat across windows, so days pair by position; months and
// years pair by label.
func (g Granularity) DefaultJoin() compare.JoinMode {
	if g == Daily {
		return compare.ByIndex
	}
	return compare.ByKey
}

// monthLabel normalises the month labels the API emits ("2025-01",
// "2025-01-01", "Jan", "January", "1") to a short month name so that the same
// month in two years shares a key.
func monthLabel(label string) string {
	label = strings.TrimSpace(label)
	for _, layout := range []string{"2006-01", "Jan 2006", "January 2006", "Jan", "January"} {
		if t, err := time.Parse(layout, label); err == nil {
			return t.Month().String()[:3]
		}
	}
	if t, err := format.ParseDate(label); err == nil {
		return t.Month().String()[:3]
	}
	if n, err := strconv.Atoi(label); err == nil && n >= 1 && n <= 12 {
		return time.Month(n).String()[:3]
	}
	return label
}

func relabel(buckets []compare.Bucket, fn func(string) string) []compare.Bucket {
	out := make([]compare.Bucket, len(buckets))
	for i, b := range buckets {
		b.Period = fn(b.Period)
		out[i] = b
	}
	return out
}

// shiftYear moves a year label forward by n so last year's bucket lines up
// with this year's key.
func shiftYear(n int) func(string) string {
	return func(label string) string {
		y, err := strconv.Atoi(strings.TrimSpace(label))
		if err != nil {
			return label
		}
		return strconv.Itoa(y + n)
	}
}

func splitYears(buckets []compare.Bucket, from, to int) []compare.Bucket {
	out := make([]compare.Bucket, 0, len(buckets))
	for _, b := range buckets {
		y, err := strconv.Atoi(strings.TrimSpace(b.Period))
		if err != nil || y < from || y > to {
			continue
		}
		out = append(out, b)
	}
	return out
}
