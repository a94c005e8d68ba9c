package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/shared"
)

// BoardCloser releases per-session dashboard state on logout.
type BoardCloser interface {
	Close(sessionID string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	boards         BoardCloser
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance. boards may be nil.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, boards BoardCloser) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		boards:         boards,
		validator:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/csrf", h.handleCSRF)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
	})
}

type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// handleCSRF hands an anonymous client the token it must send with the login POST.
func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, csrfResponse{CSRFToken: token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid login payload", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		var fields []string
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields = append(fields, strings.ToLower(fieldErr.Field()))
			}
		}
		httpx.RespondError(w, fmt.Errorf("%w: check %s", httpx.ErrValidation, strings.Join(fields, ", ")))
		return
	}

	result, perms, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Info("login rejected", slog.String("username", req.Username))
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnauthorized, err))
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, errors.New("session missing"))
		return
	}
	if h.boards != nil {
		h.boards.Close(sess.ID)
	}
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	sess.SetUser(result.User.ID)
	sess.Set(shared.SessionRoleKey, result.User.Role)
	sess.Set(shared.SessionNameKey, result.User.Name)
	sess.Set(shared.SessionTokenKey, result.Token)
	token := h.csrfManager.Rotate(sess)

	principal, _ := shared.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, Me{User: principal, Permissions: perms, CSRFToken: token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if h.boards != nil {
			h.boards.Close(sess.ID)
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	perms, err := h.service.Permissions(r.Context(), principal.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, Me{User: principal, Permissions: perms, CSRFToken: sess.Get(shared.CSRFSessionKey)})
}
