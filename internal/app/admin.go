package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/shared"
	"github.com/retailhq/headoffice/jobs"
)

// CacheBumper invalidates every cached report.
type CacheBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// WarmupEnqueuer schedules a dashboard warm-up after invalidation.
type WarmupEnqueuer interface {
	EnqueueDashboardWarmup(ctx context.Context, payload jobs.DashboardWarmupPayload) (*asynq.TaskInfo, error)
}

// CacheHandler exposes cache administration.
type CacheHandler struct {
	logger *slog.Logger
	cache  CacheBumper
	warmer WarmupEnqueuer
	rbac   rbac.Middleware
}

// NewCacheHandler builds a CacheHandler. warmer may be nil.
func NewCacheHandler(logger *slog.Logger, cache CacheBumper, warmer WarmupEnqueuer, guard rbac.Middleware) *CacheHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheHandler{logger: logger, cache: cache, warmer: warmer, rbac: guard}
}

// MountRoutes registers cache routes.
func (h *CacheHandler) MountRoutes(r chi.Router) {
	r.Route("/cache", func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCacheManage))
		r.Post("/bump", h.handleBump)
	})
}

type bumpResponse struct {
	Version int64 `json:"version"`
	Warming bool  `json:"warming"`
}

func (h *CacheHandler) handleBump(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	version, err := h.cache.Bump(r.Context())
	if err != nil {
		h.logger.Error("bump cache", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	h.logger.Info("report cache invalidated", slog.Int64("version", version), slog.String("user", principal.ID))

	resp := bumpResponse{Version: version}
	if h.warmer != nil {
		_, err := h.warmer.EnqueueDashboardWarmup(r.Context(), jobs.DashboardWarmupPayload{})
		switch {
		case err == nil, errors.Is(err, asynq.ErrDuplicateTask):
			resp.Warming = true
		default:
			h.logger.Warn("enqueue warmup", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
