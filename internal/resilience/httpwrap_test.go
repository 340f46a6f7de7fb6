package resilience_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/resilience"
)

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, "payload", string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	cl := resilience.HTTPClient{
		Client:      srv.Client(),
		Breaker:     resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 10, FailureRatio: 0.9, OpenFor: time.Second}, "test"),
		BaseBackoff: time.Millisecond,
		MaxAttempts: 3,
		Timeout:     time.Second,
		Target:      "test",
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, int32(3), calls.Load())
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	cl := resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 3, BaseBackoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusGone, resp.StatusCode)
	require.Equal(t, int32(1), calls.Load())
}

func TestHTTPClientOpenBreakerRejects(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, OpenFor: time.Minute}, "test")
	breaker.Report(context.Background(), false)

	cl := resilience.HTTPClient{Client: http.DefaultClient, Breaker: breaker}
	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)
	_, err := cl.Do(context.Background(), req)
	require.True(t, errors.Is(err, resilience.ErrOpenCircuit))
}

func TestHTTPClientReportsFinalStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cl := resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 2, BaseBackoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := cl.Do(context.Background(), req)
	var statusErr *resilience.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}
