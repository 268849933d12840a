package reports

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubStore struct {
	branchIDs []int64
	financial bool
	window    Window
	latest    time.Time
}

func (s *stubStore) StatusCounts(_ context.Context, domain string, branchIDs []int64, win Window) (StatusCounts, error) {
	s.branchIDs = branchIDs
	s.window = win
	if domain == "orders" {
		return StatusCounts{"NEW": 3, "COMPLETED": 5}, nil
	}
	return StatusCounts{}, nil
}

func (s *stubStore) StockSummary(_ context.Context, _ []int64) (StockSummary, error) {
	return StockSummary{Products: 12, TotalQuantity: 340}, nil
}

func (s *stubStore) Financials(_ context.Context, _ []int64, win Window) (Financials, error) {
	s.financial = true
	s.window = win
	return Financials{CompletedOrderCents: 125000, PaidTransactionCents: 80000}, nil
}

func (s *stubStore) LatestUpdate(_ context.Context, _ []int64) (time.Time, error) {
	return s.latest, nil
}

func TestMetricsFinancialGating(t *testing.T) {
	store := &stubStore{latest: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)}
	svc := NewService(store)

	m, latest, err := svc.Metrics(context.Background(), &shared.Claims{UserID: 7, Perms: []string{"RPT.READ"}}, Window{})
	require.NoError(t, err)
	require.Nil(t, m.Financials, "no ACC.READ means no financial block")
	require.False(t, store.financial, "financial queries are not even issued")
	require.Equal(t, store.latest, latest)
	require.Equal(t, 3, m.Orders["NEW"])
	require.Equal(t, 12, m.Stock.Products)

	m, _, err = svc.Metrics(context.Background(), &shared.Claims{UserID: 7, Perms: []string{"RPT.READ", "ACC.READ"}}, Window{})
	require.NoError(t, err)
	require.NotNil(t, m.Financials)
	require.Equal(t, int64(125000), m.Financials.CompletedOrderCents)
}

func TestMetricsBranchScopePassedThrough(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store)

	_, _, err := svc.Metrics(context.Background(), &shared.Claims{UserID: 7, BranchIDs: []int64{2, 5}}, Window{})
	require.NoError(t, err)
	require.Equal(t, []int64{2, 5}, store.branchIDs)
}

func newTestServer(t *testing.T, claims *shared.Claims) (*httptest.Server, *stubStore) {
	t.Helper()
	store := &stubStore{latest: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)}
	handler := NewHandler(NewService(store), authz.Guard{Logger: slog.Default()})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithClaims(req.Context(), claims)))
		})
	})
	handler.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestMetricsConditionalCaching(t *testing.T) {
	srv, _ := newTestServer(t, &shared.Claims{UserID: 7, Perms: []string{"RPT.READ"}})

	resp, err := http.Get(srv.URL + "/reports/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)
	require.NotEmpty(t, resp.Header.Get("Last-Modified"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/reports/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusNotModified, resp2.StatusCode)
}

func TestMetricsRequiresPermission(t *testing.T) {
	srv, _ := newTestServer(t, &shared.Claims{UserID: 7, Perms: []string{"SALES.READ"}})

	resp, err := http.Get(srv.URL + "/reports/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMetricsDateWindow(t *testing.T) {
	srv, store := newTestServer(t, &shared.Claims{UserID: 7, Perms: []string{"RPT.READ"}})

	resp, err := http.Get(srv.URL + "/reports/metrics?start_date=2026-01-01&end_date=2026-01-31")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	windowed := resp.Header.Get("ETag")

	require.NotNil(t, store.window.Start)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *store.window.Start)
	require.NotNil(t, store.window.End)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *store.window.End,
		"end_date is inclusive, so the bound is the following midnight")

	resp2, err := http.Get(srv.URL + "/reports/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	require.NotEqual(t, windowed, resp2.Header.Get("ETag"), "window is part of the validator")
	require.Nil(t, store.window.Start)
	require.Nil(t, store.window.End)
}

func TestMetricsWindowValidation(t *testing.T) {
	srv, _ := newTestServer(t, &shared.Claims{UserID: 7, Perms: []string{"RPT.READ"}})

	for _, query := range []string{
		"?start_date=January",
		"?end_date=2026-13-40",
		"?start_date=2026-02-01&end_date=2026-01-01",
	} {
		resp, err := http.Get(srv.URL + "/reports/metrics" + query)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}
