package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/shared"
)

// RolesHandler exposes the role table.
type RolesHandler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewRolesHandler builds a RolesHandler instance.
func NewRolesHandler(logger *slog.Logger, service *Service, rbac Middleware) *RolesHandler {
	return &RolesHandler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView))
		r.Get("/rbac/roles", h.listRoles)
	})
}

func (h *RolesHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}
