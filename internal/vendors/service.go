// Package vendors rolls purchase invoice lines up into per-vendor summaries.
package vendors

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/retailhq/headoffice/internal/platform/cache"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/reporting/grouping"
	"github.com/retailhq/headoffice/internal/upstream"
)

// Source is the subset of the API client the purchase report reads from.
type Source interface {
	VendorPurchases(ctx context.Context, r upstream.DateRange) ([]upstream.PurchaseRow, error)
	PaidWithoutStockClearing(ctx context.Context, r upstream.DateRange) ([]upstream.PurchaseRow, error)
}

// Totals summarises the whole report.
type Totals struct {
	Vendors           int     `json:"vendors"`
	Invoices          int     `json:"invoices"`
	UnclearedInvoices int     `json:"unclearedInvoices"`
	Amount            float64 `json:"amount"`
}

// Report is the vendor purchase rollup, largest vendors first.
type Report struct {
	Filter  reporting.DateFilter `json:"filter"`
	Vendors []Summary            `json:"vendors"`
	Totals  Totals               `json:"totals"`
	reporting.Status
}

// Service loads both purchase lists and rolls them up.
type Service struct {
	source Source
	cache  *cache.Versioned
	logger *slog.Logger
}

// NewService constructs the vendor service. cache may be nil.
func NewService(source Source, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: c, logger: logger}
}

// Purchases returns the rollup for f. Each list degrades independently.
func (s *Service) Purchases(ctx context.Context, f reporting.DateFilter) (Report, error) {
	var (
		regular, uncleared       []upstream.PurchaseRow
		regularErr, unclearedErr error
		g                        errgroup.Group
	)
	g.Go(func() error {
		regularErr = s.fetch(ctx, "regular", f, &regular, func(ctx context.Context) (interface{}, error) {
			return s.source.VendorPurchases(ctx, f.Range())
		})
		return nil
	})
	g.Go(func() error {
		unclearedErr = s.fetch(ctx, "uncleared", f, &uncleared, func(ctx context.Context) (interface{}, error) {
			return s.source.PaidWithoutStockClearing(ctx, f.Range())
		})
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report := Report{Filter: f}
	if regularErr != nil {
		report.Degrade(ctx, s.logger, "vendor purchases", regularErr)
	}
	if unclearedErr != nil {
		report.Degrade(ctx, s.logger, "paid without stock clearing", unclearedErr)
	}

	summaries := Rollup(regular, uncleared)
	ordered := grouping.NewOrdered[Summary]()
	total := decimal.Zero
	for _, v := range summaries {
		ordered.Set(v.VendorCode+"\x00"+v.VendorName, v)
		report.Totals.Invoices += v.InvoiceCount
		report.Totals.UnclearedInvoices += v.UnclearedInvoices
		total = total.Add(decimal.NewFromFloat(v.Amount))
	}
	report.Vendors = grouping.SortedBy(ordered, func(a, b Summary) bool { return a.Amount > b.Amount })
	if report.Vendors == nil {
		report.Vendors = []Summary{}
	}
	report.Totals.Vendors = len(summaries)
	report.Totals.Amount = total.InexactFloat64()
	return report, nil
}

func (s *Service) fetch(ctx context.Context, list string, f reporting.DateFilter, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, "vendors", list, f.CacheKey())
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, "vendors."+list, key, dest, loader)
}
