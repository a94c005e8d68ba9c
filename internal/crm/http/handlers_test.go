package crmhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailhq/headoffice/internal/crm"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/shared"
)

type stubService struct{ query crm.Query }

func (s *stubService) Customers(_ context.Context, q crm.Query) (crm.List, error) {
	s.query = q
	return crm.List{Query: q, Customers: []crm.Customer{}, Pagination: shared.NewPagination(q.Page, q.PerPage, 0)}, nil
}

func serve(t *testing.T, svc CustomerService, role, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(nil, svc, rbac.Middleware{Service: rbac.NewService(rbac.DefaultPolicy())})
	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess := &shared.Session{ID: "s"}
	sess.SetUser("5")
	sess.Set(shared.SessionRoleKey, role)
	sess.Set(shared.SessionTokenKey, "tok")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCustomersRoute(t *testing.T) {
	svc := &stubService{}
	rec := serve(t, svc, rbac.RoleStore, "/crm/customers?q=ana&page=3&per_page=999")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, crm.Query{Search: "ana", Page: 3, PerPage: shared.MaxPerPage}, svc.query)
	assert.Contains(t, rec.Body.String(), `"pagination"`)
}

func TestCustomersForbidden(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, serve(t, &stubService{}, rbac.RoleFinance, "/crm/customers").Code)
}
