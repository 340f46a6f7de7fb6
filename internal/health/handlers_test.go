package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/health"
)

func probe(name string, err error) health.Probe {
	return health.Probe{Name: name, Timeout: 50 * time.Millisecond, Check: func(context.Context) error { return err }}
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadySuccess(t *testing.T) {
	handler := health.Handler{Probes: []health.Probe{probe("db", nil), probe("redis", nil)}}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var status map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.Equal(t, map[string]string{"db": "ok", "redis": "ok"}, status)
}

func TestReadyFailure(t *testing.T) {
	handler := health.Handler{Probes: []health.Probe{probe("db", errors.New("db down")), probe("redis", nil)}}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), "db down")
}

func TestReadyProbeTimeout(t *testing.T) {
	slow := health.Probe{Name: "db", Timeout: 10 * time.Millisecond, Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	rr := httptest.NewRecorder()
	health.Handler{Probes: []health.Probe{slow}}.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
