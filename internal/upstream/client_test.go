package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	metrics := NewMetrics(prometheus.NewRegistry())
	client, err := NewClient(Options{BaseURL: srv.URL + "/api", Timeout: time.Second, Metrics: metrics})
	require.NoError(t, err)
	return client, metrics
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "/api"})
	require.Error(t, err)
	_, err = NewClient(Options{})
	require.Error(t, err)
}

func TestGetDecodesEnvelopeAndSendsToken(t *testing.T) {
	client, metrics := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sales/day-wise", r.URL.Path)
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"date":"2025-01-01","nob":"4","grossAmount":"1,250.50"},
			{"date":"2025-01-02","nob":3,"grossAmount":null},
			{"date":"2025-01-03","nob":1,"grossAmount":"abc"}
		]}`))
	}))

	ctx := WithToken(context.Background(), "tok-1")
	rows, err := client.SalesDayWise(ctx, DateRange{From: "2025-01-01", To: "2025-01-03"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(4), rows[0].NOB.Int64())
	assert.InDelta(t, 1250.5, rows[0].GrossAmount.Float64(), 1e-9)
	assert.True(t, rows[1].GrossAmount.IsZero())
	assert.True(t, rows[2].GrossAmount.IsZero())
	assert.Equal(t, "2025-01-02", rows[1].Period())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/sales/day-wise", "2xx")))
}

func TestEnvelopeFailureBecomesAPIError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"data":null,"errors":["range too wide"]}`))
	}))

	_, err := client.RangeExceptions(context.Background(), DateRange{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"range too wide"}, apiErr.Messages)
	assert.Contains(t, err.Error(), "range too wide")
	assert.False(t, IsUnauthorized(err))
}

func TestErrorStatusKeepsMessages(t *testing.T) {
	client, metrics := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"errors":["token expired"]}`))
	}))

	_, err := client.BarcodeMetrics(context.Background(), DateRange{})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/pos-audit/barcodes", "4xx")))
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := NewClient(Options{BaseURL: base})
	require.NoError(t, err)
	_, err = client.CategorySales(context.Background(), DateRange{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestLoginPostsCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "alice", creds.Username)
		_, _ = w.Write([]byte(`{"success":true,"data":{"token":"t-9","user":{"id":"7","name":"Alice","role":"finance"}}}`))
	}))

	res, err := client.Login(context.Background(), Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "t-9", res.Token)
	assert.Equal(t, "finance", res.User.Role)
}

func TestConcurrentIdenticalReadsShareOneCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}))

	ctx := WithToken(context.Background(), "tok")
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.VendorPurchases(ctx, DateRange{From: "2025-01-01"})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestSharedReadSurvivesFirstCallerCancel(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{"success":true,"data":[{"vendorCode":"V1","amount":"12"}]}`))
	}))

	base := WithToken(context.Background(), "tok")
	first, cancelFirst := context.WithCancel(base)
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.VendorPurchases(first, DateRange{From: "2025-01-01"})
		firstErr <- err
	}()
	<-started

	type result struct {
		rows []PurchaseRow
		err  error
	}
	second := make(chan result, 1)
	go func() {
		rows, err := client.VendorPurchases(base, DateRange{From: "2025-01-01"})
		second <- result{rows, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	got := <-second
	require.NoError(t, got.err)
	require.Len(t, got.rows, 1)
	assert.Equal(t, "V1", got.rows[0].VendorCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPercentDecoding(t *testing.T) {
	var rows []RangeRow
	raw := `[{"deviationPercent":60},{"deviationPercent":"N/A"},{"deviationPercent":"12.5%"},{}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	assert.Equal(t, PercentOf(60), *rows[0].Deviation)
	require.NotNil(t, rows[1].Deviation)
	assert.False(t, rows[1].Deviation.Valid)
	assert.Equal(t, PercentOf(12.5), *rows[2].Deviation)
	assert.Nil(t, rows[3].Deviation)

	out, err := json.Marshal(*rows[1].Deviation)
	require.NoError(t, err)
	assert.JSONEq(t, `"N/A"`, string(out))
	assert.Equal(t, "12.50%", rows[2].Deviation.String())
}

func TestJournalRowDirection(t *testing.T) {
	var rows []JournalRow
	raw := `[{"CODE":"JV1","drCr":"Dr","amount":"100"},{"code":"JV1","credit":"100"},{"code":"JV2","debit":50}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	assert.Equal(t, "JV1", rows[0].Code)
	assert.True(t, rows[0].IsDebit())
	assert.False(t, rows[1].IsDebit())
	assert.InDelta(t, 100.0, rows[1].Value().Float64(), 1e-9)
	assert.True(t, rows[2].IsDebit())
}
