package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, hasAnyPermission)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, hasAllPermissions)
}

func (m Middleware) require(perms []string, check func(granted, required []string) bool) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), principal.Role)
			if err != nil {
				if !errors.Is(err, ErrUnknownRole) {
					if m.Logger != nil {
						m.Logger.Error("rbac resolve permissions", slog.Any("error", err))
					}
					httpx.RespondError(w, err)
					return
				}
				if m.Logger != nil {
					m.Logger.Warn("rbac unknown role", slog.String("role", principal.Role), slog.String("user", principal.ID))
				}
			}
			if check(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

// Can reports whether role holds perm.
func (m Middleware) Can(r *http.Request, perm string) bool {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return false
	}
	granted, err := m.Service.EffectivePermissions(r.Context(), principal.Role)
	if err != nil {
		return false
	}
	return hasAnyPermission(granted, normalizePermissions([]string{perm}))
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = normalize(p)
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	sort.Strings(normalized)
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
