package crmhttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/retailhq/headoffice/internal/crm"
	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/shared"
)

// CustomerService defines the customer list contract used by the handler.
type CustomerService interface {
	Customers(ctx context.Context, q crm.Query) (crm.List, error)
}

// Handler serves the CRM customer list.
type Handler struct {
	logger  *slog.Logger
	service CustomerService
	rbac    rbac.Middleware
}

// NewHandler constructs the CRM HTTP handler.
func NewHandler(logger *slog.Logger, service CustomerService, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: guard}
}

// MountRoutes registers CRM endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermCRMView)).Get("/crm/customers", h.handleCustomers)
}

func (h *Handler) handleCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := shared.PageParams(q)
	list, err := h.service.Customers(r.Context(), crm.Query{Search: q.Get("q"), Page: page, PerPage: perPage})
	if err != nil {
		h.logger.Error("crm customers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
