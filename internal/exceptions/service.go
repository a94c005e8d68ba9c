// Package exceptions shapes the financial exception reports: backdated
// vouchers, range breaches, refunds and pending credit notes.
package exceptions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailhq/headoffice/internal/platform/cache"
	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/upstream"
)

// Source is the subset of the API client the exception reports read from.
type Source interface {
	BackdatedEntries(ctx context.Context, r upstream.DateRange) ([]upstream.JournalRow, error)
	RangeExceptions(ctx context.Context, r upstream.DateRange) ([]upstream.RangeRow, error)
	RefundExceptions(ctx context.Context, r upstream.DateRange) ([]upstream.RefundRow, error)
	PendingCreditNotes(ctx context.Context, r upstream.DateRange) ([]upstream.CreditNoteRow, error)
}

// BackdatedReport lists vouchers entered after their bill date.
type BackdatedReport struct {
	Filter   reporting.DateFilter `json:"filter"`
	Vouchers []VoucherRow         `json:"vouchers"`
	Count    int                  `json:"count"`
	Total    float64              `json:"total"`
	reporting.Status
}

// RangeReport lists transactions outside their expected band.
type RangeReport struct {
	Filter     reporting.DateFilter `json:"filter"`
	Rows       []RangeException     `json:"rows"`
	BySeverity []SeverityCount      `json:"bySeverity"`
	reporting.Status
}

// RefundReport groups refunds by terminal.
type RefundReport struct {
	Filter    reporting.DateFilter `json:"filter"`
	Terminals []TerminalRefunds    `json:"terminals"`
	Count     int                  `json:"count"`
	Total     float64              `json:"total"`
	reporting.Status
}

// CreditNoteReport lists unsettled credit notes with their age.
type CreditNoteReport struct {
	Filter reporting.DateFilter `json:"filter"`
	Notes  []CreditNote         `json:"notes"`
	Count  int                  `json:"count"`
	Total  float64              `json:"total"`
	reporting.Status
}

// Service loads and shapes exception reports, caching the shaped result.
type Service struct {
	source Source
	cache  *cache.Versioned
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the exception report service. cache may be nil.
func NewService(source Source, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: c, logger: logger, now: time.Now}
}

// WithNow overrides the clock used to age credit notes.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Backdated returns backdated vouchers for the window. Upstream failures
// produce an empty, degraded report rather than an error.
func (s *Service) Backdated(ctx context.Context, f reporting.DateFilter) (BackdatedReport, error) {
	var report BackdatedReport
	err := s.fetch(ctx, "backdated", f, &report, func(ctx context.Context) (interface{}, error) {
		rows, err := s.source.BackdatedEntries(ctx, f.Range())
		if err != nil {
			return nil, err
		}
		vouchers := Backdated(rows)
		total := decimal.Zero
		for _, v := range vouchers {
			total = total.Add(decimal.NewFromFloat(v.Amount))
		}
		return BackdatedReport{Filter: f, Vouchers: vouchers, Count: len(vouchers), Total: total.InexactFloat64()}, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return BackdatedReport{}, ctxErr
		}
		report = BackdatedReport{Filter: f}
		report.Degrade(ctx, s.logger, "backdated entries", err)
	}
	if report.Vouchers == nil {
		report.Vouchers = []VoucherRow{}
	}
	return report, nil
}

// VoucherDetail returns one backdated voucher by code.
func (s *Service) VoucherDetail(ctx context.Context, f reporting.DateFilter, code string) (VoucherRow, error) {
	code = strings.TrimSpace(code)
	report, err := s.Backdated(ctx, f)
	if err != nil {
		return VoucherRow{}, err
	}
	if report.Degraded {
		return VoucherRow{}, fmt.Errorf("%w: backdated entries could not be loaded", httpx.ErrUnavailable)
	}
	for _, v := range report.Vouchers {
		if strings.EqualFold(v.Code, code) {
			return v, nil
		}
	}
	return VoucherRow{}, fmt.Errorf("%w: no data for voucher %s", httpx.ErrNotFound, code)
}

// Ranges returns range exceptions with their severities.
func (s *Service) Ranges(ctx context.Context, f reporting.DateFilter) (RangeReport, error) {
	var report RangeReport
	err := s.fetch(ctx, "range", f, &report, func(ctx context.Context) (interface{}, error) {
		rows, err := s.source.RangeExceptions(ctx, f.Range())
		if err != nil {
			return nil, err
		}
		classified, counts := ClassifyRanges(rows)
		return RangeReport{Filter: f, Rows: classified, BySeverity: counts}, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return RangeReport{}, ctxErr
		}
		report = RangeReport{Filter: f}
		report.Degrade(ctx, s.logger, "range exceptions", err)
	}
	if report.Rows == nil {
		report.Rows, report.BySeverity = ClassifyRanges(nil)
	}
	return report, nil
}

// Refunds returns refunds grouped by terminal.
func (s *Service) Refunds(ctx context.Context, f reporting.DateFilter) (RefundReport, error) {
	var report RefundReport
	err := s.fetch(ctx, "refunds", f, &report, func(ctx context.Context) (interface{}, error) {
		rows, err := s.source.RefundExceptions(ctx, f.Range())
		if err != nil {
			return nil, err
		}
		terminals := RollupRefunds(rows)
		out := RefundReport{Filter: f, Terminals: terminals}
		total := decimal.Zero
		for _, t := range terminals {
			out.Count += t.Count
			total = total.Add(decimal.NewFromFloat(t.Total))
		}
		out.Total = total.InexactFloat64()
		return out, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return RefundReport{}, ctxErr
		}
		report = RefundReport{Filter: f}
		report.Degrade(ctx, s.logger, "refund exceptions", err)
	}
	if report.Terminals == nil {
		report.Terminals = []TerminalRefunds{}
	}
	return report, nil
}

// CreditNotes returns pending credit notes aged against the service clock.
func (s *Service) CreditNotes(ctx context.Context, f reporting.DateFilter) (CreditNoteReport, error) {
	var report CreditNoteReport
	err := s.fetch(ctx, "credit-notes", f, &report, func(ctx context.Context) (interface{}, error) {
		rows, err := s.source.PendingCreditNotes(ctx, f.Range())
		if err != nil {
			return nil, err
		}
		notes := PendingCreditNotes(rows, s.now())
		total := decimal.Zero
		for _, n := range notes {
			total = total.Add(decimal.NewFromFloat(n.Amount))
		}
		return CreditNoteReport{Filter: f, Notes: notes, Count: len(notes), Total: total.InexactFloat64()}, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CreditNoteReport{}, ctxErr
		}
		report = CreditNoteReport{Filter: f}
		report.Degrade(ctx, s.logger, "pending credit notes", err)
	}
	if report.Notes == nil {
		report.Notes = []CreditNote{}
	}
	return report, nil
}

func (s *Service) fetch(ctx context.Context, report string, f reporting.DateFilter, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	// Ages depend on today, so credit note keys roll over daily.
	parts := []string{"exceptions", report, f.CacheKey()}
	if report == "credit-notes" {
		parts = append(parts, s.now().UTC().Format("20060102"))
	}
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, "exceptions."+report, key, dest, loader)
}
