package compare

import (
	"fmt"
	"math"
	"strings"

	"github.com/retailhq/headoffice/internal/upstream"
)

// JoinMode selects how a previous series is aligned to the current one.
type JoinMode int

const (
	// ByIndex pairs current[i] with previous[i]. Used for day-wise windows whose
	// labels do not line up across periods.
	ByIndex JoinMode = iota
	// ByKey pairs records carrying the same period label, e.g. "Jan".
	ByKey
)

func (m JoinMode) String() string {
	if m == ByKey {
		return "key"
	}
	return "index"
}

// ParseJoinMode parses "index" or "key".
func ParseJoinMode(s string) (JoinMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "index", "byindex":
		return ByIndex, nil
	case "key", "bykey":
		return ByKey, nil
	}
	return ByIndex, fmt.Errorf("compare: unknown join mode %q", s)
}

// Bucket is one time bucket of a sales series.
type Bucket struct {
	Period      string  `json:"period"`
	NOB         int64   `json:"nob"`
	GrossAmount float64 `json:"grossAmount"`
}

// BucketsFromRows normalizes API rows into buckets.
func BucketsFromRows(rows []upstream.SalesRow) []Bucket {
	buckets := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, Bucket{
			Period:      row.Period(),
			NOB:         row.NOB.Int64(),
			GrossAmount: row.GrossAmount.Float64(),
		})
	}
	return buckets
}

// Record is a current bucket joined with its previous-period counterpart.
type Record struct {
	Period          string   `json:"period"`
	NOB             int64    `json:"nob"`
	GrossAmount     float64  `json:"grossAmount"`
	PrevNOB         int64    `json:"prevNob"`
	PrevGrossAmount float64  `json:"prevGrossAmount"`
	NOBGrowth       *float64 `json:"nobGrowth"`
	RevenueGrowth   *float64 `json:"revenueGrowth"`
}

// CombinePeriods joins previous into current using mode. The output follows
// the order of current; previous buckets without a counterpart are dropped.
func CombinePeriods(current, previous []Bucket, mode JoinMode) []Record {
	records := make([]Record, 0, len(current))
	switch mode {
	case ByKey:
		lookup := make(map[string]Bucket, len(previous))
		for _, prev := range previous {
			if _, seen := lookup[prev.Period]; seen {
				continue
			}
			lookup[prev.Period] = prev
		}
		for _, cur := range current {
			prev, ok := lookup[cur.Period]
			records = append(records, join(cur, prev, ok))
		}
	default:
		for i, cur := range current {
			if i < len(previous) {
				records = append(records, join(cur, previous[i], true))
				continue
			}
			records = append(records, join(cur, Bucket{}, false))
		}
	}
	return records
}

func join(cur, prev Bucket, matched bool) Record {
	rec := Record{
		Period:      cur.Period,
		NOB:         cur.NOB,
		GrossAmount: cur.GrossAmount,
	}
	if !matched {
		return rec
	}
	rec.PrevNOB = prev.NOB
	rec.PrevGrossAmount = prev.GrossAmount
	rec.NOBGrowth = PercentChange(float64(cur.NOB), float64(prev.NOB))
	rec.RevenueGrowth = PercentChange(cur.GrossAmount, prev.GrossAmount)
	return rec
}

// Summary totals a joined series for headline cards.
type Summary struct {
	NOB             int64    `json:"nob"`
	GrossAmount     float64  `json:"grossAmount"`
	PrevNOB         int64    `json:"prevNob"`
	PrevGrossAmount float64  `json:"prevGrossAmount"`
	NOBGrowth       *float64 `json:"nobGrowth"`
	RevenueGrowth   *float64 `json:"revenueGrowth"`
	AvgBillValue    *float64 `json:"avgBillValue"`
}

// Totals sums records and derives growth on the totals.
func Totals(records []Record) Summary {
	var s Summary
	for _, rec := range records {
		s.NOB += rec.NOB
		s.GrossAmount += rec.GrossAmount
		s.PrevNOB += rec.PrevNOB
		s.PrevGrossAmount += rec.PrevGrossAmount
	}
	s.NOBGrowth = PercentChange(float64(s.NOB), float64(s.PrevNOB))
	s.RevenueGrowth = PercentChange(s.GrossAmount, s.PrevGrossAmount)
	if s.NOB > 0 {
		abv := round2(s.GrossAmount / float64(s.NOB))
		s.AvgBillValue = &abv
	}
	return s
}

// ChartSeries splits records into the parallel arrays chart widgets consume.
type ChartSeries struct {
	Labels   []string  `json:"labels"`
	Current  []float64 `json:"current"`
	Previous []float64 `json:"previous"`
}

// Chart builds the revenue chart arrays for records.
func Chart(records []Record) ChartSeries {
	series := ChartSeries{
		Labels:   make([]string, 0, len(records)),
		Current:  make([]float64, 0, len(records)),
		Previous: make([]float64, 0, len(records)),
	}
	for _, rec := range records {
		series.Labels = append(series.Labels, rec.Period)
		series.Current = append(series.Current, rec.GrossAmount)
		series.Previous = append(series.Previous, rec.PrevGrossAmount)
	}
	return series
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
