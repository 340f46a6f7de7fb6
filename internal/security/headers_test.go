package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestHeadersMiddlewareSetsSecurityHeaders(t *testing.T) {
	handler := Headers{Enable: true, EnableHSTS: true, HSTSIncludeSubdomains: true}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "https://example.com", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	headers := rr.Result().Header
	require.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", headers.Get("Cache-Control"))
	require.Equal(t, "max-age=31536000; includeSubDomains", headers.Get("Strict-Transport-Security"))
}

func TestHeadersMiddlewareHSTSBehindProxy(t *testing.T) {
	handler := Headers{Enable: true, EnableHSTS: true, HSTSMaxAge: 60}.Middleware(okHandler())
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, "max-age=60", rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersMiddlewareDisabled(t *testing.T) {
	rr := httptest.NewRecorder()
	Headers{Enable: false, EnableHSTS: true}.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	require.Empty(t, rr.Header().Get("X-Content-Type-Options"))
}
