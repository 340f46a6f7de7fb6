package obs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/noah-isme/backend-invoice/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("invoice", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/invoice", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/settings/invoice"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/settings/invoice", "204"))
	if total != 1 {
		t.Fatalf("expected counter to be 1, got %v", total)
	}
	if samples := testutil.CollectAndCount(metrics.ReqDur); samples == 0 {
		t.Fatalf("expected histogram sample")
	}
	if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
		t.Fatalf("expected no in-flight requests, got %v", val)
	}
}

func TestHTTPMetricsSkipsInfraPaths(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("invoice", nil, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, path := range []string{"/health/ready", "/health/live", "/metrics"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	if n := testutil.CollectAndCount(metrics.ReqTotal); n != 0 {
		t.Fatalf("expected infra paths to be skipped, got %d series", n)
	}
}

func TestHTTPMetricsUsesChiPattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("invoice", nil, registry)
	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/v1/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/invoices/abc", nil))

	got := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/invoices/{id}", "200"))
	if got != 1 {
		t.Fatalf("expected pattern label to be recorded, got %v", got)
	}
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("invoice", nil, registry)
	second := obs.NewHTTPMetrics("invoice", nil, registry)
	if first.ReqTotal != second.ReqTotal {
		t.Fatalf("expected second registration to reuse the first collector")
	}
}

func TestLoggerOutsideRequestIsDisabled(t *testing.T) {
	logger := obs.Logger(context.Background())
	logger.Info().Msg("must not panic")
}

func TestParseBucketsCSV(t *testing.T) {
	got := obs.ParseBucketsCSV("5, 10,abc,-1,,25")
	if len(got) != 3 || got[0] != 5 || got[2] != 25 {
		t.Fatalf("unexpected buckets %v", got)
	}
}
