package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"orderdash/internal/observability"
	"orderdash/internal/orders"
	"orderdash/internal/pipeline"
	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLoader struct {
	mu          sync.Mutex
	ds          pipeline.Dataset
	err         error
	invalidated int
}

func (f *fakeLoader) Load(ctx context.Context) (pipeline.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ds, f.err
}

func (f *fakeLoader) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T) (*Server, *fakeLoader, *observability.Metrics) {
	t.Helper()
	raw := []models.OrderRecord{
		models.NewOrderRecord(day(1), "Acme", "A", 5),
		models.NewOrderRecord(day(2), "Acme", "B", 3),
	}
	loader := &fakeLoader{ds: pipeline.Dataset{Rows: orders.Complete(raw), RawRows: 2, Synthesized: 2, LoadedAt: day(1)}}
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	return New(loader, WithMetrics(metrics, reg)), loader, metrics
}

func do(t *testing.T, h http.Handler, method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie set", SessionCookie)
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type summaryJSON struct {
	Spec struct {
		StartDate  time.Time `json:"start_date"`
		EndDate    time.Time `json:"end_date"`
		Warehouses []string  `json:"warehouses"`
	} `json:"spec"`
	Summary        models.Summary `json:"summary"`
	FiltersChanged bool           `json:"filters_changed"`
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s.Routes(), http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type expiringLoader struct {
	*fakeLoader
	at time.Time
}

func (e expiringLoader) ExpiresAt() (time.Time, bool) {
	return e.at, true
}

func TestHealthReportsCacheExpiry(t *testing.T) {
	at := time.Date(2024, 1, 2, 13, 10, 0, 0, time.UTC)
	s := New(expiringLoader{fakeLoader: &fakeLoader{}, at: at})

	rec := do(t, s.Routes(), http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","cache_expires_at":"2024-01-02T13:10:00Z"}`, rec.Body.String())
}

func TestOrdersIssuesSessionCookie(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/api/orders", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	body := decode[struct {
		Rows  []map[string]interface{} `json:"rows"`
		Total int                      `json:"total"`
	}](t, rec)
	assert.Equal(t, 4, body.Total)
	assert.Equal(t, "2024-01-01", body.Rows[0]["order_date"])

	again := do(t, h, http.MethodGet, "/api/orders?limit=1", "", cookie)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Empty(t, again.Result().Cookies(), "existing session is reused")
	assert.Len(t, decode[ordersResponse](t, again).Rows, 1)
	assert.Equal(t, 1, s.sessions.Len())
}

func TestOrdersRejectsBadLimit(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s.Routes(), http.MethodGet, "/api/orders?limit=-1", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyFilters(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Routes()
	cookie := sessionCookie(t, do(t, h, http.MethodGet, "/api/summary", "", nil))

	rec := do(t, h, http.MethodPost, "/api/filters",
		`{"start_date":"2024-01-01","end_date":"2024-01-01","warehouses":["A","B"]}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[summaryJSON](t, rec)
	assert.Equal(t, models.Summary{TotalOrders: 5, AvgOrdersPerDay: 5}, got.Summary)
	assert.False(t, got.FiltersChanged)

	rows := decode[ordersResponse](t, do(t, h, http.MethodGet, "/api/orders", "", cookie))
	assert.Equal(t, 2, rows.Total)

	charts := decode[chartsResponse](t, do(t, h, http.MethodGet, "/api/charts", "", cookie))
	assert.Len(t, charts.Daily, 2)
	assert.Len(t, charts.Warehouses, 2)
}

func TestStageWithoutApply(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Routes()
	cookie := sessionCookie(t, do(t, h, http.MethodGet, "/api/summary", "", nil))

	rec := do(t, h, http.MethodPost, "/api/filters",
		`{"start_date":"2024-01-02","end_date":"2024-01-02","warehouses":["B"],"apply":false}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[summaryJSON](t, rec)
	assert.True(t, got.FiltersChanged)
	assert.Equal(t, int64(8), got.Summary.TotalOrders, "view is unchanged until applied")
}

func TestFiltersValidation(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		code errors.ErrorCode
	}{
		{"malformed json", `{`, errors.ErrCodeInvalidInput},
		{"bad start", `{"start_date":"01/02/2024","end_date":"2024-01-02"}`, errors.ErrCodeValidationFailed},
		{"missing end", `{"start_date":"2024-01-02"}`, errors.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Routes(), http.MethodPost, "/api/filters", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[map[string]errorBody](t, rec)
			assert.Equal(t, tt.code, body["error"].Code)
		})
	}
}

func TestInvertedRangeIsEmptyNotError(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s.Routes(), http.MethodPost, "/api/filters",
		`{"start_date":"2024-01-02","end_date":"2024-01-01","warehouses":["A","B"]}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Summary{}, decode[summaryJSON](t, rec).Summary)
}

func TestResetFilters(t *testing.T) {
	s, loader, _ := newTestServer(t)
	h := s.Routes()
	cookie := sessionCookie(t, do(t, h, http.MethodGet, "/api/summary", "", nil))
	do(t, h, http.MethodPost, "/api/filters", `{"start_date":"2024-01-01","end_date":"2024-01-01","warehouses":["A"]}`, cookie)

	rec := do(t, h, http.MethodPost, "/api/filters/reset", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[summaryJSON](t, rec)
	assert.Equal(t, int64(8), got.Summary.TotalOrders)
	assert.Equal(t, []string{"A", "B"}, got.Spec.Warehouses)
	assert.Equal(t, 0, loader.invalidated)

	do(t, h, http.MethodPost, "/api/filters/reset?refresh=true", "", cookie)
	assert.Equal(t, 1, loader.invalidated)
}

func TestDownloadCSV(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Routes()
	cookie := sessionCookie(t, do(t, h, http.MethodGet, "/api/summary", "", nil))
	do(t, h, http.MethodPost, "/api/filters", `{"start_date":"2024-01-01","end_date":"2024-01-01","warehouses":["A"]}`, cookie)

	rec := do(t, h, http.MethodGet, "/download", "", cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="filtered_warehouse_orders.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "order_date,trade_name,warehouse_id,num_orders\n2024-01-01,Acme,A,5\n", rec.Body.String())

	metricsRec := do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, metricsRec.Body.String(), `orderdash_exports_total{format="csv"} 1`)
}

func TestDownloadXLSX(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s.Routes(), http.MethodGet, "/download?format=xlsx", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filtered_warehouse_orders.xlsx")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")
}

func TestDownloadBadFormat(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s.Routes(), http.MethodGet, "/download?format=pdf", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSourceFailure(t *testing.T) {
	s, loader, _ := newTestServer(t)
	loader.err = errors.SourceError("Snowflake is unavailable", fmt.Errorf("dial tcp: timeout"))

	rec := do(t, s.Routes(), http.MethodGet, "/api/summary", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]errorBody](t, rec)
	assert.Equal(t, errors.ErrCodeSourceUnavailable, body["error"].Code)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0", time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
