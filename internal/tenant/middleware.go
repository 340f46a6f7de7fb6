package tenant

import (
	"net/http"

	"github.com/noah-isme/backend-invoice/internal/common"
)

// RequireTenant rejects requests whose context carries no valid company.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := UUID(r.Context()); err != nil {
			common.JSONError(w, http.StatusForbidden, "TENANT_REQUIRED", "company scope is required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
