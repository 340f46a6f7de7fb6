package settings

import (
	"net/http"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/invoice"
)

// Handler exposes the invoice settings endpoints.
type Handler struct {
	Service *Service
}

// Get handles GET /api/v1/settings/invoice.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Get(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Put handles PUT /api/v1/settings/invoice.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var in invoice.Settings
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Service.Update(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}
