package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/events"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

// EndpointStore is the persistence used by the webhook management endpoints.
type EndpointStore interface {
	CreateWebhookEndpoint(ctx context.Context, arg db.CreateWebhookEndpointParams) (db.WebhookEndpoint, error)
	ListWebhookEndpoints(ctx context.Context, companyID uuid.UUID) ([]db.WebhookEndpoint, error)
	DeleteWebhookEndpoint(ctx context.Context, arg db.DeleteWebhookEndpointParams) (int64, error)
}

// Handler exposes webhook endpoint management for the authenticated company.
type Handler struct {
	Store EndpointStore
}

type endpointRequest struct {
	URL    string   `json:"url" validate:"required,url,max=2048"`
	Secret string   `json:"secret" validate:"omitempty,min=16,max=256"`
	Topics []string `json:"topics" validate:"omitempty,dive,required"`
}

type endpointResponse struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Topics    []string  `json:"topics"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	Secret    string    `json:"secret,omitempty"`
}

func toEndpointResponse(ep db.WebhookEndpoint) endpointResponse {
	topics := ep.Topics
	if topics == nil {
		topics = []string{}
	}
	return endpointResponse{ID: ep.ID, URL: ep.URL, Topics: topics, Active: ep.Active, CreatedAt: ep.CreatedAt}
}

// List handles GET /api/v1/webhooks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.UUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusForbidden, "TENANT_REQUIRED", "tenant required", nil)
		return
	}
	rows, err := h.Store.ListWebhookEndpoints(r.Context(), companyID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]endpointResponse, 0, len(rows))
	for _, ep := range rows {
		out = append(out, toEndpointResponse(ep))
	}
	common.Data(w, http.StatusOK, out)
}

// Create handles POST /api/v1/webhooks. The signing secret is only returned here.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.UUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusForbidden, "TENANT_REQUIRED", "tenant required", nil)
		return
	}
	var req endpointRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := validateURL(req.URL); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_URL", err.Error(), nil)
		return
	}
	topics, unknown := normaliseTopics(req.Topics)
	if len(unknown) > 0 {
		common.JSONError(w, http.StatusBadRequest, "UNKNOWN_TOPIC", "unknown topics", map[string]any{"topics": unknown})
		return
	}
	secret := strings.TrimSpace(req.Secret)
	if secret == "" {
		if secret, err = newSecret(); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	ep, err := h.Store.CreateWebhookEndpoint(r.Context(), db.CreateWebhookEndpointParams{
		ID:        uuid.New(),
		CompanyID: companyID,
		URL:       strings.TrimSpace(req.URL),
		Secret:    secret,
		Topics:    topics,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := toEndpointResponse(ep)
	out.Secret = ep.Secret
	common.Created(w, "/api/v1/webhooks/"+out.ID.String(), out)
}

// Delete handles DELETE /api/v1/webhooks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, err := tenant.UUID(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusForbidden, "TENANT_REQUIRED", "tenant required", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return
	}
	n, err := h.Store.DeleteWebhookEndpoint(r.Context(), db.DeleteWebhookEndpointParams{CompanyID: companyID, ID: id})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if n == 0 {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "webhook endpoint not found", nil)
		return
	}
	common.NoContent(w)
}

func normaliseTopics(topics []string) (known, unknown []string) {
	known = []string{}
	seen := map[string]bool{}
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if !events.KnownTopic(t) {
			unknown = append(unknown, t)
			continue
		}
		known = append(known, t)
	}
	return known, unknown
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
