package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailhq/headoffice/internal/app"
	"github.com/retailhq/headoffice/internal/auth"
	crmhttp "github.com/retailhq/headoffice/internal/crm/http"
	"github.com/retailhq/headoffice/internal/dashboard"
	dashboardhttp "github.com/retailhq/headoffice/internal/dashboard/http"
	exceptionshttp "github.com/retailhq/headoffice/internal/exceptions/http"
	inventoryhttp "github.com/retailhq/headoffice/internal/inventory/http"
	posaudithttp "github.com/retailhq/headoffice/internal/posaudit/http"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting/format"
	saleshttp "github.com/retailhq/headoffice/internal/sales/http"
	"github.com/retailhq/headoffice/internal/shared"
	_ "github.com/retailhq/headoffice/internal/testing/guard"
	vendorshttp "github.com/retailhq/headoffice/internal/vendors/http"
)

const apiToken = "erp-token"

// erp serves canned envelopes for every report endpoint. Purchases fail while
// failPurchases is set.
type erp struct {
	failPurchases atomic.Bool
	calls         atomic.Int64
}

func (e *erp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.calls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/auth/login" {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Username == "fin" && creds.Password == "pw" {
			_, _ = io.WriteString(w, `{"success":true,"data":{"token":"`+apiToken+`","user":{"id":"11","name":"Finance Desk","role":"FINANCE"}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":false,"errors":["bad credentials"]}`)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+apiToken {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"errors":["token expired"]}`)
		return
	}
	q := r.URL.Query()
	switch r.URL.Path {
	case "/sales/day-wise":
		if q.Get("from") == "2025-03-01" {
			_, _ = io.WriteString(w, `{"success":true,"data":[{"date":"2025-03-01","nob":10,"grossAmount":"1200.50"},{"date":"2025-03-02","nob":"12","grossAmount":800}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":[{"date":"2025-02-27","nob":8,"grossAmount":1000},{"date":"2025-02-28","nob":9,"grossAmount":1000}]}`)
	case "/finance/exceptions/backdated":
		_, _ = io.WriteString(w, `{"success":true,"data":[{"CODE":"JV-1","voucherType":"JV","accountName":"Cash","drCr":"Dr","amount":"500","entryDate":"2025-03-05","billDate":"2025-02-20"}]}`)
	case "/finance/exceptions/range":
		_, _ = io.WriteString(w, `{"success":true,"data":[{"code":"R-1","date":"2025-03-01","category":"Grocery","amount":160,"minAmount":10,"maxAmount":100,"deviationPercent":"60"}]}`)
	case "/finance/exceptions/refunds":
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	case "/finance/credit-notes/pending":
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	case "/purchases/vendors", "/purchases/paid-without-stock-clearing":
		if e.failPurchases.Load() {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"success":false,"errors":["purchases offline"]}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":[{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"INV-1","invoiceDate":"2025-03-02","amount":"2500"}]}`)
	default:
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	}
}

type gateway struct {
	server *httptest.Server
	client *http.Client
	erp    *erp
	csrf   string
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	api := &erp{}
	apiServer := httptest.NewServer(api)
	t.Cleanup(apiServer.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	cfg := &app.Config{
		AppEnv:           "test",
		AppRateLimit:     1000,
		UpstreamBaseURL:  apiServer.URL,
		UpstreamTimeout:  2 * time.Second,
		CacheTTL:         time.Minute,
		DashboardIdleTTL: time.Minute,
	}
	registry := prometheus.NewRegistry()
	services, err := app.NewServices(cfg, redisClient, nil, registry)
	require.NoError(t, err)
	formatter, err := format.New("en-IN", "INR")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	boards := dashboard.NewRegistry(ctx, services.Composer.Load, cfg.DashboardIdleTTL, nil, registry)

	sessions := shared.NewSessionManager(redisClient, "headoffice_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	rbacService := rbac.NewService(rbac.DefaultPolicy())
	guard := rbac.Middleware{Service: rbacService}

	router := app.NewRouter(app.RouterParams{
		Config:            cfg,
		SessionManager:    sessions,
		CSRFManager:       csrf,
		AuthHandler:       auth.NewHandler(nil, auth.NewService(services.API, rbacService), sessions, csrf, boards),
		RolesHandler:      rbac.NewRolesHandler(nil, rbacService, guard),
		SalesHandler:      saleshttp.NewHandler(nil, services.Sales, guard),
		InventoryHandler:  inventoryhttp.NewHandler(nil, services.Inventory, guard),
		CRMHandler:        crmhttp.NewHandler(nil, services.CRM, guard),
		ExceptionsHandler: exceptionshttp.NewHandler(nil, services.Exceptions, formatter, guard),
		VendorsHandler:    vendorshttp.NewHandler(nil, services.Vendors, guard),
		POSAuditHandler:   posaudithttp.NewHandler(nil, services.POSAudit, guard),
		DashboardHandler:  dashboardhttp.NewHandler(nil, boards, guard),
		CacheHandler:      app.NewCacheHandler(nil, services.Cache, nil, guard),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &gateway{server: server, client: &http.Client{Jar: jar}, erp: api}
}

func (g *gateway) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, g.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.csrf != "" {
		req.Header.Set(shared.CSRFHeader, g.csrf)
	}
	resp, err := g.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func (g *gateway) login(t *testing.T) {
	t.Helper()
	var csrf struct {
		CSRFToken string `json:"csrfToken"`
	}
	resp := g.do(t, http.MethodGet, "/api/v1/auth/csrf", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &csrf)
	g.csrf = csrf.CSRFToken

	resp = g.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"fin","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me auth.Me
	decode(t, resp, &me)
	require.Equal(t, rbac.RoleFinance, me.User.Role)
	require.NotEmpty(t, me.CSRFToken)
	g.csrf = me.CSRFToken
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	g := newGateway(t)
	var csrf struct {
		CSRFToken string `json:"csrfToken"`
	}
	resp := g.do(t, http.MethodGet, "/api/v1/auth/csrf", "")
	decode(t, resp, &csrf)
	g.csrf = csrf.CSRFToken

	resp = g.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"fin","password":"nope"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = g.do(t, http.MethodGet, "/api/v1/sales/daily", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDailySalesComparison(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	resp := g.do(t, http.MethodGet, "/api/v1/sales/daily?from=2025-03-01&to=2025-03-02", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var series struct {
		Records []json.RawMessage `json:"records"`
		Totals  struct {
			NOB           int64    `json:"nob"`
			PrevNOB       int64    `json:"prevNob"`
			GrossAmount   float64  `json:"grossAmount"`
			RevenueGrowth *float64 `json:"revenueGrowth"`
		} `json:"totals"`
		Degraded bool `json:"degraded"`
	}
	decode(t, resp, &series)
	assert.False(t, series.Degraded)
	assert.Len(t, series.Records, 2)
	assert.Equal(t, int64(22), series.Totals.NOB)
	assert.Equal(t, int64(17), series.Totals.PrevNOB)
	assert.InDelta(t, 2000.5, series.Totals.GrossAmount, 0.001)
	require.NotNil(t, series.Totals.RevenueGrowth)
}

func TestExceptionExportAndDrillDown(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	resp := g.do(t, http.MethodGet, "/api/v1/exceptions/range?from=2025-03-01&to=2025-03-31&format=csv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "range-exceptions-2025-03-01_2025-03-31.csv")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "R-1")

	resp = g.do(t, http.MethodGet, "/api/v1/exceptions/backdated/JV-1?from=2025-03-01&to=2025-03-31", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = g.do(t, http.MethodGet, "/api/v1/exceptions/backdated/JV-404?from=2025-03-01&to=2025-03-31", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpstreamFailureDegradesReport(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	g.erp.failPurchases.Store(true)
	resp := g.do(t, http.MethodGet, "/api/v1/vendors/purchases?from=2025-03-01&to=2025-03-31", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		Degraded bool     `json:"degraded"`
		Warnings []string `json:"warnings"`
	}
	decode(t, resp, &report)
	assert.True(t, report.Degraded)
	assert.NotEmpty(t, report.Warnings)

	g.erp.failPurchases.Store(false)
	resp = g.do(t, http.MethodGet, "/api/v1/vendors/purchases?from=2025-03-01&to=2025-03-31&refresh=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report.Degraded, report.Warnings = false, nil
	decode(t, resp, &report)
	assert.False(t, report.Degraded)
}

func TestDashboardLifecycle(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	resp := g.do(t, http.MethodPut, "/api/v1/dashboard/filter", `{"from":"2025-03-01","to":"2025-03-02"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = g.do(t, http.MethodGet, "/api/v1/dashboard?wait=5s", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap struct {
		Generation uint64 `json:"generation"`
		Loading    bool   `json:"loading"`
		Filter     struct {
			From string `json:"from"`
		} `json:"filter"`
		Data struct {
			TopVendors []json.RawMessage `json:"topVendors"`
			Degraded   bool              `json:"degraded"`
		} `json:"data"`
	}
	decode(t, resp, &snap)
	assert.Equal(t, uint64(1), snap.Generation)
	assert.False(t, snap.Loading)
	assert.Equal(t, "2025-03-01", snap.Filter.From)
	assert.False(t, snap.Data.Degraded)
	assert.Len(t, snap.Data.TopVendors, 1)

	resp = g.do(t, http.MethodPost, "/api/v1/auth/logout", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = g.do(t, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
