package trip

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/backend-invoice/internal/common"
)

const defaultWindow = 30 * 24 * time.Hour

// Handler exposes the trip listing.
type Handler struct {
	Service *Service
	Now     func() time.Time
}

// List handles GET /api/v1/trips.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseParams(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Service.List(r.Context(), params)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

func (h *Handler) parseParams(r *http.Request) (ListParams, error) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	q := r.URL.Query()
	to, err := ParseDate(q.Get("to"), now().UTC().Truncate(24*time.Hour))
	if err != nil {
		return ListParams{}, common.BadRequest("INVALID_DATE", "to must be YYYY-MM-DD")
	}
	from, err := ParseDate(q.Get("from"), to.Add(-defaultWindow))
	if err != nil {
		return ListParams{}, common.BadRequest("INVALID_DATE", "from must be YYYY-MM-DD")
	}
	if from.After(to) {
		return ListParams{}, common.BadRequest("INVALID_RANGE", "from must not be after to")
	}
	page, limit := common.ParsePagination(r, 50)
	uninvoiced, _ := strconv.ParseBool(q.Get("uninvoiced"))
	return ListParams{
		From:           from,
		To:             to,
		UninvoicedOnly: uninvoiced,
		VehicleType:    strings.TrimSpace(q.Get("vehicleType")),
		Page:           page,
		Limit:          limit,
	}, nil
}

// ParseDate parses a YYYY-MM-DD value, returning def for an empty one.
func ParseDate(raw string, def time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return time.Parse(time.DateOnly, raw)
}
