package dashboardhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/retailhq/headoffice/internal/dashboard"
	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/shared"
	"github.com/retailhq/headoffice/internal/viewstate"
)

const maxWait = 30 * time.Second

// Boards is the registry contract used by the handler.
type Boards interface {
	Board(sessionID, token string) *dashboard.Board
	Lookup(sessionID string) (*dashboard.Board, bool)
	Close(sessionID string)
}

// Handler serves the per-session dashboard board.
type Handler struct {
	logger *slog.Logger
	boards Boards
	rbac   rbac.Middleware
	now    func() time.Time
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, boards Boards, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, boards: boards, rbac: guard, now: time.Now}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// MountRoutes registers dashboard endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDashboardView))
		r.Get("/", h.handleGet)
		r.Put("/filter", h.handleDispatch)
		r.Delete("/", h.handleClose)
	})
}

type dispatchResponse struct {
	Generation uint64               `json:"generation"`
	Filter     reporting.DateFilter `json:"filter"`
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var filter reporting.DateFilter
	if err := httpx.DecodeJSON(w, r, &filter); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid filter payload", httpx.ErrValidation))
		return
	}
	if err := filter.Validate(); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	sess := shared.SessionFromContext(r.Context())
	gen := h.boards.Board(sess.ID, sess.Token()).Dispatch(filter)
	httpx.JSON(w, http.StatusAccepted, dispatchResponse{Generation: gen, Filter: filter})
}

// handleGet returns the committed state. A board that has never been
// dispatched starts with month-to-date. ?wait=5s blocks until the latest
// dispatch settles or the wait elapses.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	wait, err := parseWait(r.URL.Query().Get("wait"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	board := h.boards.Board(sess.ID, sess.Token())
	if board.Generation() == 0 {
		filter, err := reporting.ParseDateFilter(nil, h.now())
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		board.Dispatch(filter)
	}
	if wait <= 0 {
		httpx.JSON(w, http.StatusOK, board.Snapshot())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()
	snap, err := board.Wait(ctx)
	switch {
	case err == nil, errors.Is(err, context.DeadlineExceeded):
		httpx.JSON(w, http.StatusOK, snap)
	case errors.Is(err, viewstate.ErrClosed):
		httpx.RespondError(w, fmt.Errorf("%w: dashboard was closed", httpx.ErrNotFound))
	default:
		httpx.RespondError(w, err)
	}
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	h.boards.Close(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func parseWait(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: wait must be a duration like 5s", httpx.ErrValidation)
	}
	if d > maxWait {
		d = maxWait
	}
	return d, nil
}
