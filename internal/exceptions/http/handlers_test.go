package exceptionshttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailhq/headoffice/internal/exceptions"
	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/reporting/format"
	"github.com/retailhq/headoffice/internal/shared"
	"github.com/retailhq/headoffice/internal/upstream"
)

type stubService struct {
	lastFilter reporting.DateFilter
	degraded   bool
}

func (s *stubService) Backdated(_ context.Context, f reporting.DateFilter) (exceptions.BackdatedReport, error) {
	s.lastFilter = f
	delay := 3
	return exceptions.BackdatedReport{
		Filter:   f,
		Vouchers: []exceptions.VoucherRow{{Code: "JV1", BillDate: "2025-01-02", EntryDate: "2025-01-05", DelayDays: &delay, Amount: 1200}},
		Count:    1,
		Total:    1200,
	}, nil
}

func (s *stubService) VoucherDetail(_ context.Context, _ reporting.DateFilter, code string) (exceptions.VoucherRow, error) {
	if code == "JV1" {
		return exceptions.VoucherRow{Code: "JV1"}, nil
	}
	return exceptions.VoucherRow{}, fmt.Errorf("%w: no data for voucher %s", httpx.ErrNotFound, code)
}

func (s *stubService) Ranges(_ context.Context, f reporting.DateFilter) (exceptions.RangeReport, error) {
	rows, counts := exceptions.ClassifyRanges([]upstream.RangeRow{{Code: "R1", Amount: upstream.NewAmount(170), MaxAmount: upstream.NewAmount(100)}})
	return exceptions.RangeReport{Filter: f, Rows: rows, BySeverity: counts}, nil
}

func (s *stubService) Refunds(_ context.Context, f reporting.DateFilter) (exceptions.RefundReport, error) {
	report := exceptions.RefundReport{Filter: f, Terminals: []exceptions.TerminalRefunds{}}
	if s.degraded {
		report.Degraded = true
		report.Warnings = []string{"refund exceptions is temporarily unavailable"}
	}
	return report, nil
}

func (s *stubService) CreditNotes(_ context.Context, f reporting.DateFilter) (exceptions.CreditNoteReport, error) {
	return exceptions.CreditNoteReport{Filter: f, Notes: []exceptions.CreditNote{}}, nil
}

func newTestRouter(t *testing.T, svc ExceptionService) http.Handler {
	t.Helper()
	formatter, err := format.New("en-US", "USD")
	require.NoError(t, err)
	guard := rbac.Middleware{Service: rbac.NewService(rbac.DefaultPolicy())}
	h := NewHandler(nil, svc, formatter, guard)
	h.WithNow(func() time.Time { return time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC) })
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func get(router http.Handler, role, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if role != "" {
		sess := &shared.Session{ID: "s-" + role}
		sess.SetUser("u-" + role)
		sess.Set(shared.SessionRoleKey, role)
		sess.Set(shared.SessionTokenKey, "tok")
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBackdatedJSONUsesDefaultWindow(t *testing.T) {
	svc := &stubService{}
	rec := get(newTestRouter(t, svc), rbac.RoleFinance, "/exceptions/backdated")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reporting.DateFilter{From: "2025-01-01", To: "2025-01-20"}, svc.lastFilter)

	var body exceptions.BackdatedReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "JV1", body.Vouchers[0].Code)
	assert.False(t, body.Degraded)
}

func TestRoleGating(t *testing.T) {
	router := newTestRouter(t, &stubService{})
	assert.Equal(t, http.StatusUnauthorized, get(router, "", "/exceptions/range").Code)
	assert.Equal(t, http.StatusForbidden, get(router, rbac.RoleStore, "/exceptions/range").Code)
	assert.Equal(t, http.StatusOK, get(router, rbac.RoleAuditor, "/exceptions/range").Code)
}

func TestRangeJSONCarriesSeverity(t *testing.T) {
	rec := get(newTestRouter(t, &stubService{}), rbac.RoleFinance, "/exceptions/range?from=2025-01-01&to=2025-01-10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"severity":"critical"`)
	assert.Contains(t, rec.Body.String(), `"deviationPercent":70`)
}

func TestInvalidFilterIsBadRequest(t *testing.T) {
	rec := get(newTestRouter(t, &stubService{}), rbac.RoleFinance, "/exceptions/refunds?from=2025-02-01&to=2025-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestUnknownVoucherIsNotFound(t *testing.T) {
	router := newTestRouter(t, &stubService{})
	assert.Equal(t, http.StatusOK, get(router, rbac.RoleFinance, "/exceptions/backdated/JV1").Code)

	rec := get(router, rbac.RoleFinance, "/exceptions/backdated/JV404")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Detail, "no data for voucher JV404")
}

func TestDegradedReportStillRenders(t *testing.T) {
	rec := get(newTestRouter(t, &stubService{degraded: true}), rbac.RoleFinance, "/exceptions/refunds")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded":true`)
	assert.Contains(t, rec.Body.String(), `"terminals":[]`)
}

func TestCSVExport(t *testing.T) {
	rec := get(newTestRouter(t, &stubService{}), rbac.RoleFinance, "/exceptions/backdated?format=csv&from=2025-01-01&to=2025-01-31")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "backdated-entries")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Voucher,"))
	assert.Contains(t, lines[1], "JV1")
	assert.Contains(t, lines[1], "02 Jan 2025")
}

func TestXLSXExport(t *testing.T) {
	rec := get(newTestRouter(t, &stubService{}), rbac.RoleAuditor, "/exceptions/credit-notes?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestExportRequiresPermission(t *testing.T) {
	router := newTestRouter(t, &stubService{})
	assert.Equal(t, http.StatusOK, get(router, rbac.RoleManagement, "/exceptions/backdated").Code)
	assert.Equal(t, http.StatusForbidden, get(router, rbac.RoleManagement, "/exceptions/backdated?format=csv").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, rbac.RoleFinance, "/exceptions/backdated?format=pdf").Code)
}
