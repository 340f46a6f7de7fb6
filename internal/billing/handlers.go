package billing

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/invoice"
)

// Handler exposes the invoice endpoints.
type Handler struct {
	Service *Service
}

// Preview handles POST /api/v1/invoices/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var in PreviewInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Service.Preview(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// BlankItem handles POST /api/v1/invoices/line-items/blank.
func (h *Handler) BlankItem(w http.ResponseWriter, r *http.Request) {
	var in invoice.Edits
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &in); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	out, err := h.Service.BlankItem(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Create handles POST /api/v1/invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Service.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Created(w, "/api/v1/invoices/"+out.ID, out)
}

// List handles GET /api/v1/invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, 20)
	out, err := h.Service.List(r.Context(), ListParams{Status: r.URL.Query().Get("status"), Page: page, Limit: limit})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(out.Total, 10))
	common.Data(w, http.StatusOK, out)
}

// Get handles GET /api/v1/invoices/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// UpdateStatus handles PATCH /api/v1/invoices/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in StatusInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), in.Status)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// PDF handles GET /api/v1/invoices/{id}/pdf.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.PDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}
