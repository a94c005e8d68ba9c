package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/retailhq/headoffice/internal/auth"
	crmhttp "github.com/retailhq/headoffice/internal/crm/http"
	dashboardhttp "github.com/retailhq/headoffice/internal/dashboard/http"
	exceptionshttp "github.com/retailhq/headoffice/internal/exceptions/http"
	inventoryhttp "github.com/retailhq/headoffice/internal/inventory/http"
	"github.com/retailhq/headoffice/internal/observability"
	"github.com/retailhq/headoffice/internal/platform/httpx"
	posaudithttp "github.com/retailhq/headoffice/internal/posaudit/http"
	"github.com/retailhq/headoffice/internal/rbac"
	saleshttp "github.com/retailhq/headoffice/internal/sales/http"
	"github.com/retailhq/headoffice/internal/shared"
	vendorshttp "github.com/retailhq/headoffice/internal/vendors/http"
	"github.com/retailhq/headoffice/jobs"
)

// APIPrefix is the mount point of the reporting API.
const APIPrefix = "/api/v1"

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	AuthHandler       *auth.Handler
	RolesHandler      *rbac.RolesHandler
	SalesHandler      *saleshttp.Handler
	InventoryHandler  *inventoryhttp.Handler
	CRMHandler        *crmhttp.Handler
	ExceptionsHandler *exceptionshttp.Handler
	VendorsHandler    *vendorshttp.Handler
	POSAuditHandler   *posaudithttp.Handler
	DashboardHandler  *dashboardhttp.Handler
	CacheHandler      *CacheHandler

	JobHandler *jobs.Handler
	Metrics    *observability.Metrics
}

// NewRouter constructs the chi.Router with gateway defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route(APIPrefix, func(r chi.Router) {
		if params.AuthHandler != nil {
			params.AuthHandler.MountRoutes(r)
		}
		if params.RolesHandler != nil {
			params.RolesHandler.MountRoutes(r)
		}
		if params.SalesHandler != nil {
			params.SalesHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.CRMHandler != nil {
			params.CRMHandler.MountRoutes(r)
		}
		if params.ExceptionsHandler != nil {
			params.ExceptionsHandler.MountRoutes(r)
		}
		if params.VendorsHandler != nil {
			params.VendorsHandler.MountRoutes(r)
		}
		if params.POSAuditHandler != nil {
			params.POSAuditHandler.MountRoutes(r)
		}
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		if params.CacheHandler != nil {
			params.CacheHandler.MountRoutes(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, httpx.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "")
	})

	return r
}
