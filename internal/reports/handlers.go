package reports

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/tenant"
	"github.com/noah-isme/backend-invoice/internal/trip"
)

// maxDays bounds the range of one report.
const maxDays = 366

// Handler exposes report read endpoints.
type Handler struct {
	Svc *Service
}

// Invoices handles GET /api/v1/reports/invoices?from=&to=&days=.
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORTS_NOT_CONFIGURED", "reports service not configured", nil)
		return
	}
	query := r.URL.Query()
	today := day(h.Svc.now())
	to, err := trip.ParseDate(query.Get("to"), today)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_DATE", "to must be YYYY-MM-DD", nil)
		return
	}
	days := h.Svc.DefaultRange
	if days <= 0 {
		days = 30
	}
	days = common.QueryInt(r, "days", days)
	from, err := trip.ParseDate(query.Get("from"), to.AddDate(0, 0, -(days - 1)))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_DATE", "from must be YYYY-MM-DD", nil)
		return
	}
	if from.After(to) {
		common.JSONError(w, http.StatusBadRequest, "INVALID_RANGE", "from must not be after to", nil)
		return
	}
	if to.Sub(from).Hours()/24 >= maxDays {
		common.JSONError(w, http.StatusBadRequest, "RANGE_TOO_LARGE", "reports cover at most one year", nil)
		return
	}
	out, err := h.Svc.Invoices(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantMissing) || errors.Is(err, tenant.ErrTenantInvalid) {
			common.JSONError(w, http.StatusForbidden, "TENANT_REQUIRED", "tenant required", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "REPORTS_ERROR", "failed to build report", nil)
		return
	}
	common.Data(w, http.StatusOK, out)
}
