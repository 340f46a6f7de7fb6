package audit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/db"
)

// Handler serves the audit trail to company administrators.
type Handler struct {
	Store Store
}

// Entry is the API view of an audit log row.
type Entry struct {
	ID           int64           `json:"id"`
	Actor        string          `json:"actor"`
	ActorKind    string          `json:"actorKind"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId,omitempty"`
	Method       string          `json:"method"`
	Route        string          `json:"route,omitempty"`
	Status       int32           `json:"status"`
	RequestID    string          `json:"requestId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func toEntry(row db.AuditLog) Entry {
	e := Entry{
		ID:           row.ID,
		Actor:        row.ActorID.String,
		ActorKind:    row.ActorKind,
		Action:       row.Action,
		ResourceType: row.ResourceType,
		ResourceID:   row.ResourceID.String,
		Method:       row.Method,
		Route:        row.Route.String,
		Status:       row.Status,
		RequestID:    row.RequestID.String,
		CreatedAt:    row.CreatedAt,
	}
	if len(row.Metadata) > 0 {
		e.Metadata = json.RawMessage(row.Metadata)
	}
	return e
}

// List returns the tenant's audit entries, newest first. resource_type and
// resource_id narrow the trail to one invoice or webhook.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	companyID, ok := companyUUID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusForbidden, "TENANT_REQUIRED", "tenant required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	q := r.URL.Query()
	rows, err := h.Store.ListAuditLogs(r.Context(), db.ListAuditLogsParams{
		CompanyID:    companyID,
		Limit:        int32(perPage),
		Offset:       int32(common.Offset(page, perPage)),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toEntry(row))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       entries,
		"pagination": common.Pagination{Page: page, PerPage: perPage},
	})
}
