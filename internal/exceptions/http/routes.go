package exceptionshttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/shared"
)

// MountRoutes registers exception report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/exceptions", func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermExceptionsView))
		r.Get("/backdated", h.handleBackdated)
		r.Get("/backdated/{code}", h.handleVoucher)
		r.Get("/range", h.handleRanges)
		r.Get("/refunds", h.handleRefunds)
		r.Get("/credit-notes", h.handleCreditNotes)
	})
}

func exportLimiter() func(http.Handler) http.Handler {
	return httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "export limit reached, try again shortly")
		}),
	)
}

func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
