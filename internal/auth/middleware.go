package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Service *Service
}

// RequireAuth rejects requests without a valid bearer token. Accepted requests carry the
// principal, the subject and the company tenant on their context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Service == nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
			return
		}
		token := bearerToken(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		p, err := m.Service.ParseAccessToken(token)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		ctx := WithPrincipal(r.Context(), p)
		ctx = common.WithSubject(ctx, p.ClientID)
		ctx = tenant.With(ctx, p.CompanyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only principals holding one of roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			if !slices.Contains(roles, p.Role) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
