// Package sales builds current-versus-previous sales series for the day, month
// and year views.
package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/retailhq/headoffice/internal/platform/cache"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/reporting/compare"
	"github.com/retailhq/headoffice/internal/upstream"
)

// YearsInView is how many years the yearly view shows by default.
const YearsInView = 5

// Source is the subset of the API client the sales views read from.
type Source interface {
	SalesDayWise(ctx context.Context, r upstream.DateRange) ([]upstream.SalesRow, error)
	SalesMonthWise(ctx context.Context, year int) ([]upstream.SalesRow, error)
	SalesYearWise(ctx context.Context, fromYear, toYear int) ([]upstream.SalesRow, error)
}

// Series is a comparison series ready for a trend chart and its KPI cards.
type Series struct {
	Granularity Granularity         `json:"granularity"`
	Join        string              `json:"join"`
	Current     string              `json:"current"`
	Previous    string              `json:"previous"`
	Records     []compare.Record    `json:"records"`
	Totals      compare.Summary     `json:"totals"`
	Chart       compare.ChartSeries `json:"chart"`
	reporting.Status
}

// Overview bundles the three views for the landing page.
type Overview struct {
	Filter  reporting.DateFilter `json:"filter"`
	Daily   Series               `json:"daily"`
	Monthly Series               `json:"monthly"`
	Yearly  Series               `json:"yearly"`
	reporting.Status
}

// Service loads sales series, caching the raw buckets per window.
type Service struct {
	source Source
	cache  *cache.Versioned
	logger *slog.Logger
}

// NewService constructs the sales service. cache may be nil.
func NewService(source Source, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: c, logger: logger}
}

// Daily compares the window with the window of equal length before it.
// join overrides the default alignment when non-nil.
func (s *Service) Daily(ctx context.Context, f reporting.DateFilter, join *compare.JoinMode) (Series, error) {
	prev := f.Previous()
	return s.series(ctx, Daily, join,
		fmt.Sprintf("%s..%s", f.From, f.To), fmt.Sprintf("%s..%s", prev.From, prev.To),
		func(ctx context.Context) ([]compare.Bucket, error) {
			return s.dayWise(ctx, f)
		},
		func(ctx context.Context) ([]compare.Bucket, error) {
			return s.dayWise(ctx, prev)
		},
	)
}

// Monthly compares each month of year with the same month of the year before.
func (s *Service) Monthly(ctx context.Context, year int, join *compare.JoinMode) (Series, error) {
	return s.series(ctx, Monthly, join, strconv.Itoa(year), strconv.Itoa(year-1),
		func(ctx context.Context) ([]compare.Bucket, error) {
			b, err := s.monthWise(ctx, year)
			return relabel(b, monthLabel), err
		},
		func(ctx context.Context) ([]compare.Bucket, error) {
			b, err := s.monthWise(ctx, year-1)
			return relabel(b, monthLabel), err
		},
	)
}

// Yearly compares each year in [fromYear, toYear] with the year before it.
// Both sides come from a single call spanning fromYear-1..toYear; the previous
// side is shifted forward a year so it joins on the current year's label.
func (s *Service) Yearly(ctx context.Context, fromYear, toYear int, join *compare.JoinMode) (Series, error) {
	all, err := s.yearWise(ctx, fromYear-1, toYear)
	return s.series(ctx, Yearly, join,
		fmt.Sprintf("%d..%d", fromYear, toYear), fmt.Sprintf("%d..%d", fromYear-1, toYear-1),
		func(context.Context) ([]compare.Bucket, error) {
			return splitYears(all, fromYear, toYear), err
		},
		func(context.Context) ([]compare.Bucket, error) {
			return relabel(splitYears(all, fromYear-1, toYear-1), shiftYear(1)), err
		},
	)
}

// Overview loads the day, month and year views for f concurrently. The month
// and year views are anchored on the year of f.To.
func (s *Service) Overview(ctx context.Context, f reporting.DateFilter) (Overview, error) {
	_, to := f.Bounds()
	year := to.Year()
	out := Overview{Filter: f}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		series, err := s.Daily(gctx, f, nil)
		out.Daily = series
		return err
	})
	g.Go(func() error {
		series, err := s.Monthly(gctx, year, nil)
		out.Monthly = series
		return err
	})
	g.Go(func() error {
		series, err := s.Yearly(gctx, year-YearsInView+1, year, nil)
		out.Yearly = series
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	for _, part := range []reporting.Status{out.Daily.Status, out.Monthly.Status, out.Yearly.Status} {
		if part.Degraded {
			out.Degraded = true
			out.Warnings = append(out.Warnings, part.Warnings...)
		}
	}
	return out, nil
}

func (s *Service) series(ctx context.Context, g Granularity, join *compare.JoinMode, curLabel, prevLabel string,
	loadCurrent, loadPrevious func(context.Context) ([]compare.Bucket, error),
) (Series, error) {
	mode := g.DefaultJoin()
	if join != nil {
		mode = *join
	}

	var (
		current, previous []compare.Bucket
		curErr, prevErr   error
	)
	var eg errgroup.Group
	eg.Go(func() error {
		current, curErr = loadCurrent(ctx)
		return nil
	})
	eg.Go(func() error {
		previous, prevErr = loadPrevious(ctx)
		return nil
	})
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return Series{}, err
	}

	out := Series{Granularity: g, Join: mode.String(), Current: curLabel, Previous: prevLabel}
	if curErr != nil {
		out.Degrade(ctx, s.logger, fmt.Sprintf("%s sales (%s)", g, curLabel), curErr)
		current = nil
	}
	if prevErr != nil && !errors.Is(prevErr, curErr) {
		out.Degrade(ctx, s.logger, fmt.Sprintf("%s sales (%s)", g, prevLabel), prevErr)
		previous = nil
	}
	out.Records = compare.CombinePeriods(current, previous, mode)
	if out.Records == nil {
		out.Records = []compare.Record{}
	}
	out.Totals = compare.Totals(out.Records)
	out.Chart = compare.Chart(out.Records)
	return out, nil
}

func (s *Service) dayWise(ctx context.Context, f reporting.DateFilter) ([]compare.Bucket, error) {
	return s.buckets(ctx, "sales.daily", []string{"sales", "daily", f.CacheKey()}, func(ctx context.Context) ([]upstream.SalesRow, error) {
		return s.source.SalesDayWise(ctx, f.Range())
	})
}

func (s *Service) monthWise(ctx context.Context, year int) ([]compare.Bucket, error) {
	return s.buckets(ctx, "sales.monthly", []string{"sales", "monthly", strconv.Itoa(year)}, func(ctx context.Context) ([]upstream.SalesRow, error) {
		return s.source.SalesMonthWise(ctx, year)
	})
}

func (s *Service) yearWise(ctx context.Context, from, to int) ([]compare.Bucket, error) {
	return s.buckets(ctx, "sales.yearly", []string{"sales", "yearly", strconv.Itoa(from), strconv.Itoa(to)}, func(ctx context.Context) ([]upstream.SalesRow, error) {
		return s.source.SalesYearWise(ctx, from, to)
	})
}

func (s *Service) buckets(ctx context.Context, report string, parts []string, load func(context.Context) ([]upstream.SalesRow, error)) ([]compare.Bucket, error) {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		return nil, err
	}
	var out []compare.Bucket
	err = s.cache.FetchJSON(ctx, report, key, &out, func(ctx context.Context) (interface{}, error) {
		rows, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return compare.BucketsFromRows(rows), nil
	})
	return out, err
}
