package saleshttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/reporting/compare"
	"github.com/retailhq/headoffice/internal/sales"
	"github.com/retailhq/headoffice/internal/shared"
)

const (
	minYear     = 2000
	maxYearSpan = 20
)

// SalesService defines the sales view contract used by the handler.
type SalesService interface {
	Daily(ctx context.Context, f reporting.DateFilter, join *compare.JoinMode) (sales.Series, error)
	Monthly(ctx context.Context, year int, join *compare.JoinMode) (sales.Series, error)
	Yearly(ctx context.Context, fromYear, toYear int, join *compare.JoinMode) (sales.Series, error)
	Overview(ctx context.Context, f reporting.DateFilter) (sales.Overview, error)
}

// Handler serves the sales comparison views.
type Handler struct {
	logger  *slog.Logger
	service SalesService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the sales HTTP handler.
func NewHandler(logger *slog.Logger, service SalesService, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: guard, now: time.Now}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// MountRoutes registers sales endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesView))
		r.Get("/daily", h.handleDaily)
		r.Get("/monthly", h.handleMonthly)
		r.Get("/yearly", h.handleYearly)
		r.Get("/overview", h.handleOverview)
	})
}

func (h *Handler) handleDaily(w http.ResponseWriter, r *http.Request) {
	filter, err := reporting.ParseDateFilter(r.URL.Query(), h.now())
	if err != nil {
		validationFailed(w, err)
		return
	}
	join, err := parseJoin(r)
	if err != nil {
		validationFailed(w, err)
		return
	}
	series, err := h.service.Daily(r.Context(), filter, join)
	h.respond(w, "daily", series, err)
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.URL.Query().Get("year"), h.now().UTC().Year())
	if err != nil {
		validationFailed(w, fmt.Errorf("year: %w", err))
		return
	}
	join, err := parseJoin(r)
	if err != nil {
		validationFailed(w, err)
		return
	}
	series, err := h.service.Monthly(r.Context(), year, join)
	h.respond(w, "monthly", series, err)
}

func (h *Handler) handleYearly(w http.ResponseWriter, r *http.Request) {
	current := h.now().UTC().Year()
	q := r.URL.Query()
	to, err := parseYear(q.Get("to"), current)
	if err != nil {
		validationFailed(w, fmt.Errorf("to: %w", err))
		return
	}
	from, err := parseYear(q.Get("from"), to-sales.YearsInView+1)
	if err != nil {
		validationFailed(w, fmt.Errorf("from: %w", err))
		return
	}
	if from > to || to-from >= maxYearSpan {
		validationFailed(w, fmt.Errorf("year range %d..%d is not allowed", from, to))
		return
	}
	join, err := parseJoin(r)
	if err != nil {
		validationFailed(w, err)
		return
	}
	series, err := h.service.Yearly(r.Context(), from, to, join)
	h.respond(w, "yearly", series, err)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	filter, err := reporting.ParseDateFilter(r.URL.Query(), h.now())
	if err != nil {
		validationFailed(w, err)
		return
	}
	overview, err := h.service.Overview(r.Context(), filter)
	h.respond(w, "overview", overview, err)
}

func (h *Handler) respond(w http.ResponseWriter, view string, payload any, err error) {
	if err != nil {
		h.logger.Error("sales "+view, slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func parseJoin(r *http.Request) (*compare.JoinMode, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("join"))
	if raw == "" {
		return nil, nil
	}
	mode, err := compare.ParseJoinMode(raw)
	if err != nil {
		return nil, err
	}
	return &mode, nil
}

func parseYear(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < minYear || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", raw)
	}
	return year, nil
}

func validationFailed(w http.ResponseWriter, err error) {
	httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
}
