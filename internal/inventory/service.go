package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/retailhq/headoffice/internal/platform/cache"
	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/upstream"
)

// Source is the subset of the API client the category views read from.
type Source interface {
	CategorySales(ctx context.Context, r upstream.DateRange) ([]upstream.CategoryRow, error)
	CategoryItems(ctx context.Context, category string, r upstream.DateRange) ([]upstream.CategoryItemRow, error)
}

// CategoryReport lists categories for a date window.
type CategoryReport struct {
	Filter     reporting.DateFilter `json:"filter"`
	Categories []CategorySummary    `json:"categories"`
	Totals     Totals               `json:"totals"`
	reporting.Status
}

// ItemReport is the drill-down of one category.
type ItemReport struct {
	Filter   reporting.DateFilter `json:"filter"`
	Category string               `json:"category"`
	Items    []ItemSummary        `json:"items"`
	Totals   Totals               `json:"totals"`
	reporting.Status
}

// Service loads category and item sales.
type Service struct {
	source Source
	cache  *cache.Versioned
	logger *slog.Logger
}

// NewService constructs the inventory service. cache may be nil.
func NewService(source Source, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: c, logger: logger}
}

// Categories returns category sales with GRM for f.
func (s *Service) Categories(ctx context.Context, f reporting.DateFilter) (CategoryReport, error) {
	var rows []upstream.CategoryRow
	key, err := s.cache.BuildKey(ctx, "inventory", "categories", f.CacheKey())
	if err == nil {
		err = s.cache.FetchJSON(ctx, "inventory.categories", key, &rows, func(ctx context.Context) (interface{}, error) {
			return s.source.CategorySales(ctx, f.Range())
		})
	}
	report := CategoryReport{Filter: f}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CategoryReport{}, ctxErr
		}
		rows = nil
		report.Degrade(ctx, s.logger, "category sales", err)
	}
	report.Categories, report.Totals = SummarizeCategories(rows)
	return report, nil
}

// Items returns the item drill-down for one category. A category with no
// items is reported as not found.
func (s *Service) Items(ctx context.Context, f reporting.DateFilter, category string) (ItemReport, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return ItemReport{}, fmt.Errorf("%w: category is required", httpx.ErrValidation)
	}
	var rows []upstream.CategoryItemRow
	key, err := s.cache.BuildKey(ctx, "inventory", "items", strings.ToUpper(category), f.CacheKey())
	if err == nil {
		err = s.cache.FetchJSON(ctx, "inventory.items", key, &rows, func(ctx context.Context) (interface{}, error) {
			return s.source.CategoryItems(ctx, category, f.Range())
		})
	}
	report := ItemReport{Filter: f, Category: category}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ItemReport{}, ctxErr
		}
		report.Degrade(ctx, s.logger, "category items", err)
		report.Items, report.Totals = SummarizeItems(nil)
		return report, nil
	}
	if len(rows) == 0 {
		return ItemReport{}, fmt.Errorf("%w: no data for category %s", httpx.ErrNotFound, category)
	}
	report.Items, report.Totals = SummarizeItems(rows)
	return report, nil
}
