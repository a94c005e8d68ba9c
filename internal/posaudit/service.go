package posaudit

import (
	"context"
	"log/slog"

	"github.com/retailhq/headoffice/internal/platform/cache"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/upstream"
)

// Source is the subset of the API client the barcode audit reads from.
type Source interface {
	BarcodeMetrics(ctx context.Context, r upstream.DateRange) ([]upstream.BarcodeRow, error)
}

// Report is the ranked barcode audit for a window.
type Report struct {
	Filter    reporting.DateFilter `json:"filter"`
	Threshold float64              `json:"threshold"`
	Terminals []TerminalScan       `json:"terminals"`
	Totals    ScanCount            `json:"totals"`
	Flagged   int                  `json:"flagged"`
	reporting.Status
}

// Service loads barcode counters and ranks them.
type Service struct {
	source Source
	cache  *cache.Versioned
	logger *slog.Logger
}

// NewService constructs the POS audit service. cache may be nil.
func NewService(source Source, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: c, logger: logger}
}

// Barcodes returns terminals ranked by typed ratio. threshold <= 0 uses
// DefaultThreshold.
func (s *Service) Barcodes(ctx context.Context, f reporting.DateFilter, threshold float64) (Report, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var rows []upstream.BarcodeRow
	key, err := s.cache.BuildKey(ctx, "posaudit", "barcodes", f.CacheKey())
	if err == nil {
		err = s.cache.FetchJSON(ctx, "posaudit.barcodes", key, &rows, func(ctx context.Context) (interface{}, error) {
			return s.source.BarcodeMetrics(ctx, f.Range())
		})
	}
	report := Report{Filter: f, Threshold: threshold}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Report{}, ctxErr
		}
		rows = nil
		report.Degrade(ctx, s.logger, "barcode metrics", err)
	}
	report.Terminals = Rank(Aggregate(rows, threshold))
	var scanned, typed int64
	for _, t := range report.Terminals {
		scanned += t.Scanned
		typed += t.Typed
		if t.Flagged {
			report.Flagged++
		}
	}
	report.Totals = newCount(scanned, typed, threshold)
	return report, nil
}
