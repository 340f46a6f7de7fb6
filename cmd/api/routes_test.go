package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

func TestProtectPprof(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	rr := httptest.NewRecorder()
	protectPprof(inner, "", "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	guarded := protectPprof(inner, "ops", "secret")
	rr = httptest.NewRecorder()
	guarded.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.SetBasicAuth("ops", "secret")
	rr = httptest.NewRecorder()
	guarded.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestTenantScope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
	require.Empty(t, tenantScope(req))
	req = req.WithContext(tenant.With(context.Background(), "5d1c1f2a-8f3e-4c55-9a55-0a3c6a6b9e11"))
	require.Equal(t, "5d1c1f2a-8f3e-4c55-9a55-0a3c6a6b9e11", tenantScope(req))
}

func TestAllowedOrigins(t *testing.T) {
	require.Equal(t, []string{"*"}, allowedOrigins(&config.Config{}))
	require.Equal(t, []string{"https://app.example.com"}, allowedOrigins(&config.Config{CORSAllowedOrigins: []string{"https://app.example.com"}}))
}
