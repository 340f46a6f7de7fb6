// Package audit records mutating API calls into audit_logs.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	// ActorKindClient is an authenticated API client.
	ActorKindClient ActorKind = "client"
	// ActorKindSystem represents internal automated actions.
	ActorKindSystem ActorKind = "system"
	// ActorKindAnonymous represents unauthenticated actors.
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind ActorKind
	ID   string
}

// Store defines the database operations required for auditing.
type Store interface {
	InsertAuditLog(ctx context.Context, arg db.InsertAuditLogParams) error
	ListAuditLogs(ctx context.Context, arg db.ListAuditLogsParams) ([]db.AuditLog, error)
}

// Service persists audit logs for invoice, settings and webhook changes.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
}

// Record persists an audit log entry when auditing is enabled. The company is taken from ctx.
func (s Service) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, req *http.Request, status int, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 {
		if rand.Float64() > s.SamplingRate {
			return nil
		}
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	if status == 0 {
		status = http.StatusOK
	}
	company := pgtype.UUID{}
	if id, err := tenant.UUID(ctx); err == nil {
		company = pgtype.UUID{Bytes: id, Valid: true}
	}

	return s.Store.InsertAuditLog(ctx, db.InsertAuditLogParams{
		CompanyID:    company,
		ActorKind:    string(normalizeActorKind(actor.Kind)),
		ActorID:      text(actor.ID),
		Action:       buildAction(action, req.Method, route),
		ResourceType: buildResource(resourceType, route),
		ResourceID:   text(resourceID),
		Method:       req.Method,
		Path:         req.URL.Path,
		Route:        text(route),
		Status:       int32(status),
		IP:           text(common.ClientIP(req)),
		UserAgent:    text(req.Header.Get("User-Agent")),
		RequestID:    text(req.Header.Get("X-Request-ID")),
		Metadata:     toJSONB(metadata, req.URL.RawQuery),
	})
}

func buildAction(action, method, route string) string {
	trimmed := strings.TrimSpace(action)
	if trimmed != "" {
		return trimmed
	}
	target := route
	if target == "" {
		target = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + target
}

// buildResource derives a dotted resource name from the route, e.g. invoices.{id}.status.
func buildResource(resourceType, route string) string {
	trimmed := strings.TrimSpace(resourceType)
	if trimmed != "" {
		return trimmed
	}
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		return strings.Join(segments[2:], ".")
	}
	return strings.ReplaceAll(strings.Trim(route, "/"), "/", ".")
}

func normalizeActorKind(kind ActorKind) ActorKind {
	switch kind {
	case ActorKindClient, ActorKindSystem:
		return kind
	default:
		return ActorKindAnonymous
	}
}

func text(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func toJSONB(metadata []byte, query string) []byte {
	if len(metadata) > 0 {
		return metadata
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	data, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil
	}
	return data
}

// companyUUID returns the tenant of ctx for log listings.
func companyUUID(ctx context.Context) (uuid.UUID, bool) {
	id, err := tenant.UUID(ctx)
	return id, err == nil
}
