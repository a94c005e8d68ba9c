// Package crm serves the searchable customer list with a spend summary.
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/retailhq/headoffice/internal/platform/cache"
	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/reporting/format"
	"github.com/retailhq/headoffice/internal/shared"
	"github.com/retailhq/headoffice/internal/upstream"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Source is the subset of the API client the customer list reads from.
type Source interface {
	Customers(ctx context.Context, query string, page, perPage int) (upstream.CustomerPage, error)
}

// Query selects one page of customers.
type Query struct {
	Search  string `json:"q" validate:"max=100"`
	Page    int    `json:"page" validate:"min=1"`
	PerPage int    `json:"perPage" validate:"min=1,max=200"`
}

// Validate checks the query bounds.
func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: invalid %s", httpx.ErrValidation, strings.ToLower(verrs[0].Field()))
		}
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}

// Customer is a customer row ready for the table.
type Customer struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email"`
	Visits         int64   `json:"visits"`
	TotalSpend     float64 `json:"totalSpend"`
	LastVisit      string  `json:"lastVisit"`
	DaysSinceVisit *int    `json:"daysSinceVisit"`
}

// Summary describes the customers on the current page.
type Summary struct {
	Customers    int      `json:"customers"`
	Visits       int64    `json:"visits"`
	TotalSpend   float64  `json:"totalSpend"`
	AverageSpend *float64 `json:"averageSpend"`
	AvgBillValue *float64 `json:"avgBillValue"`
}

// List is one page of the customer list.
type List struct {
	Query      Query             `json:"query"`
	Customers  []Customer        `json:"customers"`
	Summary    Summary           `json:"summary"`
	Pagination shared.Pagination `json:"pagination"`
	reporting.Status
}

// Service pages through the CRM customer list.
type Service struct {
	source Source
	cache  *cache.Versioned
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the customer service. cache may be nil.
func NewService(source Source, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: c, logger: logger, now: time.Now}
}

// WithNow overrides the clock used for visit recency.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Customers returns one page of customers matching q.
func (s *Service) Customers(ctx context.Context, q Query) (List, error) {
	q.Search = strings.TrimSpace(q.Search)
	if err := q.Validate(); err != nil {
		return List{}, err
	}
	var page upstream.CustomerPage
	key, err := s.cache.BuildKey(ctx, "crm", "customers", strings.ToLower(q.Search), strconv.Itoa(q.Page), strconv.Itoa(q.PerPage))
	if err == nil {
		err = s.cache.FetchJSON(ctx, "crm.customers", key, &page, func(ctx context.Context) (interface{}, error) {
			return s.source.Customers(ctx, q.Search, q.Page, q.PerPage)
		})
	}
	list := List{Query: q}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return List{}, ctxErr
		}
		page = upstream.CustomerPage{}
		list.Degrade(ctx, s.logger, "customer list", err)
	}
	list.Customers, list.Summary = Summarize(page.Items, s.now())
	total := page.Total
	if total < len(page.Items) {
		total = len(page.Items)
	}
	list.Pagination = shared.NewPagination(q.Page, q.PerPage, total)
	return list, nil
}

// Summarize converts customers into table rows and totals them.
func Summarize(items []upstream.Customer, now time.Time) ([]Customer, Summary) {
	rows := make([]Customer, 0, len(items))
	spend := decimal.Zero
	var visits int64
	for _, c := range items {
		row := Customer{
			ID:         strings.TrimSpace(c.ID),
			Name:       strings.TrimSpace(c.Name),
			Phone:      strings.TrimSpace(c.Phone),
			Email:      strings.TrimSpace(c.Email),
			Visits:     c.Visits.Int64(),
			TotalSpend: c.TotalSpend.Float64(),
			LastVisit:  c.LastVisit.String(),
		}
		if t, err := format.ParseDate(c.LastVisit.String()); err == nil {
			days := format.DaysBetween(t, now)
			row.DaysSinceVisit = &days
		}
		spend = spend.Add(c.TotalSpend.Decimal())
		visits += row.Visits
		rows = append(rows, row)
	}
	summary := Summary{Customers: len(rows), Visits: visits, TotalSpend: spend.InexactFloat64()}
	if len(rows) > 0 {
		avg := spend.Div(decimal.NewFromInt(int64(len(rows)))).Round(2).InexactFloat64()
		summary.AverageSpend = &avg
	}
	if visits > 0 {
		abv := spend.Div(decimal.NewFromInt(visits)).Round(2).InexactFloat64()
		summary.AvgBillValue = &abv
	}
	return rows, summary
}
