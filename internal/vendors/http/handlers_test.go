package vendorshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/shared"
	"github.com/retailhq/headoffice/internal/vendors"
)

type stubService struct{ filter reporting.DateFilter }

func (s *stubService) Purchases(_ context.Context, f reporting.DateFilter) (vendors.Report, error) {
	s.filter = f
	return vendors.Report{Filter: f, Vendors: []vendors.Summary{{VendorCode: "V1", InvoiceCount: 2}}}, nil
}

func serve(t *testing.T, svc VendorService, role, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(nil, svc, rbac.Middleware{Service: rbac.NewService(rbac.DefaultPolicy())})
	h.WithNow(func() time.Time { return time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC) })
	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess := &shared.Session{ID: "s"}
	sess.SetUser("1")
	sess.Set(shared.SessionRoleKey, role)
	sess.Set(shared.SessionTokenKey, "tok")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPurchases(t *testing.T) {
	svc := &stubService{}
	rec := serve(t, svc, rbac.RolePurchase, "/vendors/purchases")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reporting.DateFilter{From: "2025-02-01", To: "2025-02-10"}, svc.filter)

	var body vendors.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Vendors[0].InvoiceCount)
}

func TestPurchasesGuards(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, serve(t, &stubService{}, rbac.RoleStore, "/vendors/purchases").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, &stubService{}, rbac.RoleFinance, "/vendors/purchases?from=x").Code)
}
