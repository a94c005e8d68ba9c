// Package dashboard composes the landing page summary and keeps one
// stale-safe board per session.
package dashboard

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/retailhq/headoffice/internal/exceptions"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/reporting/compare"
	"github.com/retailhq/headoffice/internal/sales"
	"github.com/retailhq/headoffice/internal/vendors"
)

// DefaultTopVendors is how many vendors the summary lists.
const DefaultTopVendors = 5

// SalesView is the sales service subset the summary reads.
type SalesView interface {
	Daily(ctx context.Context, f reporting.DateFilter, join *compare.JoinMode) (sales.Series, error)
}

// ExceptionView is the exceptions service subset the summary reads.
type ExceptionView interface {
	Backdated(ctx context.Context, f reporting.DateFilter) (exceptions.BackdatedReport, error)
	Ranges(ctx context.Context, f reporting.DateFilter) (exceptions.RangeReport, error)
	Refunds(ctx context.Context, f reporting.DateFilter) (exceptions.RefundReport, error)
	CreditNotes(ctx context.Context, f reporting.DateFilter) (exceptions.CreditNoteReport, error)
}

// VendorView is the vendors service subset the summary reads.
type VendorView interface {
	Purchases(ctx context.Context, f reporting.DateFilter) (vendors.Report, error)
}

// ExceptionCounts are the headline exception badges.
type ExceptionCounts struct {
	Backdated      int                        `json:"backdated"`
	RangeBreaches  int                        `json:"rangeBreaches"`
	BySeverity     []exceptions.SeverityCount `json:"bySeverity"`
	Refunds        int                        `json:"refunds"`
	RefundTotal    float64                    `json:"refundTotal"`
	CreditNotes    int                        `json:"creditNotes"`
	CreditNoteDues float64                    `json:"creditNoteDues"`
}

// Summary is the landing page payload for one filter.
type Summary struct {
	Filter     reporting.DateFilter `json:"filter"`
	Sales      compare.Summary      `json:"sales"`
	Chart      compare.ChartSeries  `json:"chart"`
	Exceptions ExceptionCounts      `json:"exceptions"`
	TopVendors []vendors.Summary    `json:"topVendors"`
	reporting.Status
}

// Composer builds a Summary from the domain services.
type Composer struct {
	sales      SalesView
	exceptions ExceptionView
	vendors    VendorView
	topN       int
	logger     *slog.Logger
}

// NewComposer wires the summary sources. topN <= 0 uses DefaultTopVendors.
func NewComposer(s SalesView, e ExceptionView, v VendorView, topN int, logger *slog.Logger) *Composer {
	if topN <= 0 {
		topN = DefaultTopVendors
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{sales: s, exceptions: e, vendors: v, topN: topN, logger: logger}
}

// Load fetches every part concurrently. A failing part degrades the summary;
// only cancellation is returned as an error.
func (c *Composer) Load(ctx context.Context, f reporting.DateFilter) (Summary, error) {
	var (
		series    sales.Series
		backdated exceptions.BackdatedReport
		ranges    exceptions.RangeReport
		refunds   exceptions.RefundReport
		notes     exceptions.CreditNoteReport
		purchases vendors.Report
		errs      [6]error
		g         errgroup.Group
	)
	g.Go(func() error {
		series, errs[0] = c.sales.Daily(ctx, f, nil)
		return nil
	})
	g.Go(func() error {
		backdated, errs[1] = c.exceptions.Backdated(ctx, f)
		return nil
	})
	g.Go(func() error {
		ranges, errs[2] = c.exceptions.Ranges(ctx, f)
		return nil
	})
	g.Go(func() error {
		refunds, errs[3] = c.exceptions.Refunds(ctx, f)
		return nil
	})
	g.Go(func() error {
		notes, errs[4] = c.exceptions.CreditNotes(ctx, f)
		return nil
	})
	g.Go(func() error {
		purchases, errs[5] = c.vendors.Purchases(ctx, f)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	out := Summary{Filter: f, TopVendors: []vendors.Summary{}}
	parts := []string{"sales", "backdated entries", "range exceptions", "refund exceptions", "pending credit notes", "vendor purchases"}
	for i, err := range errs {
		if err != nil {
			out.Degrade(ctx, c.logger, parts[i], err)
		}
	}
	for _, st := range []reporting.Status{series.Status, backdated.Status, ranges.Status, refunds.Status, notes.Status, purchases.Status} {
		if st.Degraded {
			out.Degraded = true
			out.Warnings = append(out.Warnings, st.Warnings...)
		}
	}

	out.Sales = series.Totals
	out.Chart = series.Chart
	out.Exceptions = ExceptionCounts{
		Backdated:      backdated.Count,
		RangeBreaches:  len(ranges.Rows),
		BySeverity:     ranges.BySeverity,
		Refunds:        refunds.Count,
		RefundTotal:    refunds.Total,
		CreditNotes:    notes.Count,
		CreditNoteDues: notes.Total,
	}
	if out.Exceptions.BySeverity == nil {
		_, out.Exceptions.BySeverity = exceptions.ClassifyRanges(nil)
	}
	top := purchases.Vendors
	if len(top) > c.topN {
		top = top[:c.topN]
	}
	out.TopVendors = append(out.TopVendors, top...)
	return out, nil
}
