package posaudithttp

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
	"github.com/retailhq/headoffice/internal/posaudit"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/shared"
)

// AuditService defines the barcode audit contract used by the handler.
type AuditService interface {
	Barcodes(ctx context.Context, f reporting.DateFilter, threshold float64) (posaudit.Report, error)
}

// Handler serves the POS barcode audit.
type Handler struct {
	logger  *slog.Logger
	service AuditService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the POS audit HTTP handler.
func NewHandler(logger *slog.Logger, service AuditService, guard rbac.Middleware) *Handler {
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

// MountRoutes registers POS audit endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermPOSAuditView)).Get("/pos-audit/barcodes", h.handleBarcodes)
}

func (h *Handler) handleBarcodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := reporting.ParseDateFilter(q, h.now())
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	var threshold float64
	if raw := strings.TrimSpace(q.Get("threshold")); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || threshold < 0 || threshold > 100 {
			httpx.RespondError(w, fmt.Errorf("%w: threshold must be a percentage", httpx.ErrValidation))
			return
		}
	}
	report, err := h.service.Barcodes(r.Context(), filter, threshold)
	if err != nil {
		h.logger.Error("pos audit barcodes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
