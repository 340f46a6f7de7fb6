package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-invoice/internal/auth"
	"github.com/noah-isme/backend-invoice/internal/common"
)

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Checker Checker
	Key     func(*http.Request) string
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface. Limiter failures let the
// request through.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Checker == nil || h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		d, err := h.Checker.Check(r.Context(), h.Key(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(d.Limit, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			retryAfter := max(int(time.Until(d.Reset).Seconds()), 0)
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ByIP keys requests by client address.
func ByIP(r *http.Request) string {
	return "ip:" + common.ClientIP(r)
}

// ByClient keys authenticated requests by API client and falls back to the address.
func ByClient(r *http.Request) string {
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		return "client:" + p.ClientID
	}
	return ByIP(r)
}
