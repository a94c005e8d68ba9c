package vendorshttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/shared"
	"github.com/retailhq/headoffice/internal/vendors"
)

// VendorService defines the purchase rollup contract used by the handler.
type VendorService interface {
	Purchases(ctx context.Context, f reporting.DateFilter) (vendors.Report, error)
}

// Handler serves vendor purchase summaries.
type Handler struct {
	logger  *slog.Logger
	service VendorService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the vendors HTTP handler.
func NewHandler(logger *slog.Logger, service VendorService, guard rbac.Middleware) *Handler {
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

// MountRoutes registers vendor endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermVendorsView)).Get("/vendors/purchases", h.handlePurchases)
}

func (h *Handler) handlePurchases(w http.ResponseWriter, r *http.Request) {
	filter, err := reporting.ParseDateFilter(r.URL.Query(), h.now())
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	report, err := h.service.Purchases(r.Context(), filter)
	if err != nil {
		h.logger.Error("vendor purchases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
