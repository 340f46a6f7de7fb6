package auth

import (
	"net/http"

	"github.com/noah-isme/backend-invoice/internal/common"
)

// Handler exposes the token endpoint.
type Handler struct {
	Service *Service
}

type tokenRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
}

// Token handles POST /api/v1/auth/token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	var req tokenRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Service.IssueToken(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"client_id":   p.ClientID,
		"company_id":  p.CompanyID,
		"role":        p.Role,
		"perspective": p.Perspective(),
	})
}
