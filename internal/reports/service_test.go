package reports_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/reports"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

type stubQueries struct {
	calls int
	last  db.InvoiceTotalsByDayParams
}

func (s *stubQueries) InvoiceTotalsByDay(_ context.Context, arg db.InvoiceTotalsByDayParams) ([]db.InvoiceTotalsByDayRow, error) {
	s.calls++
	s.last = arg
	return []db.InvoiceTotalsByDayRow{{
		Day:        arg.From.AddDate(0, 0, 1),
		Invoices:   2,
		Total:      decimal.RequireFromString("300"),
		TotalTax:   decimal.RequireFromString("54"),
		GrandTotal: decimal.RequireFromString("354"),
	}}, nil
}

func newCache(t *testing.T) *cache.JSON {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.New(rdb, time.Minute)
}

func TestInvoicesCachedPerCompany(t *testing.T) {
	queries := &stubQueries{}
	svc := &reports.Service{Q: queries, Cache: newCache(t)}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	a := tenant.With(context.Background(), uuid.NewString())
	first, err := svc.Invoices(a, from, to)
	require.NoError(t, err)
	_, err = svc.Invoices(a, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, queries.calls)

	_, err = svc.Invoices(tenant.With(context.Background(), uuid.NewString()), from, to)
	require.NoError(t, err)
	require.Equal(t, 2, queries.calls, "another company must not share the cached report")

	require.Len(t, first.Days, 3)
	require.Equal(t, "2024-01-02", first.Days[1].Date)
	require.Equal(t, int64(2), first.Days[1].Invoices)
	require.True(t, first.Days[0].GrandTotal.IsZero())
	require.True(t, first.Totals.GrandTotal.Equal(decimal.RequireFromString("354")))
}

func TestInvoicesHandlerDefaultsToDays(t *testing.T) {
	queries := &stubQueries{}
	svc := &reports.Service{Q: queries, Now: func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) }}
	h := &reports.Handler{Svc: svc}

	req := httptest.NewRequest(http.MethodGet, "/reports/invoices?days=7", nil)
	req = req.WithContext(tenant.With(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	h.Invoices(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), queries.last.From)
	require.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), queries.last.To)
	var body struct {
		Data reports.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Days, 7)
}

func TestInvoicesHandlerRejectsBadRanges(t *testing.T) {
	h := &reports.Handler{Svc: &reports.Service{Q: &stubQueries{}}}
	for _, q := range []string{"from=2024-02-01&to=2024-01-01", "from=2020-01-01&to=2024-01-01", "to=yesterday"} {
		req := httptest.NewRequest(http.MethodGet, "/reports/invoices?"+q, nil)
		req = req.WithContext(tenant.With(req.Context(), uuid.NewString()))
		rec := httptest.NewRecorder()
		h.Invoices(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}
