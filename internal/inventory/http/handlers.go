package inventoryhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/retailhq/headoffice/internal/inventory"
	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/shared"
)

// InventoryService defines the category view contract used by the handler.
type InventoryService interface {
	Categories(ctx context.Context, f reporting.DateFilter) (inventory.CategoryReport, error)
	Items(ctx context.Context, f reporting.DateFilter, category string) (inventory.ItemReport, error)
}

// Handler serves category sales and drill-downs.
type Handler struct {
	logger  *slog.Logger
	service InventoryService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the inventory HTTP handler.
func NewHandler(logger *slog.Logger, service InventoryService, guard rbac.Middleware) *Handler {
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

// MountRoutes registers inventory endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/inventory/categories", func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInventoryView))
		r.Get("/", h.handleCategories)
		r.Get("/{code}", h.handleItems)
	})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	report, err := h.service.Categories(r.Context(), filter)
	if err != nil {
		h.logger.Error("inventory categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleItems(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	report, err := h.service.Items(r.Context(), filter, chi.URLParam(r, "code"))
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("inventory items", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (reporting.DateFilter, bool) {
	filter, err := reporting.ParseDateFilter(r.URL.Query(), h.now())
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return reporting.DateFilter{}, false
	}
	return filter, true
}
