package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditLog = `-- name: InsertAuditLog
INSERT INTO audit_logs (company_id, actor_kind, actor_id, action, resource_type, resource_id, method, path,
	route, status, ip, user_agent, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

type InsertAuditLogParams struct {
	CompanyID    pgtype.UUID
	ActorKind    string
	ActorID      pgtype.Text
	Action       string
	ResourceType string
	ResourceID   pgtype.Text
	Method       string
	Path         string
	Route        pgtype.Text
	Status       int32
	IP           pgtype.Text
	UserAgent    pgtype.Text
	RequestID    pgtype.Text
	Metadata     []byte
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog, arg.CompanyID, arg.ActorKind, arg.ActorID, arg.Action, arg.ResourceType,
		arg.ResourceID, arg.Method, arg.Path, arg.Route, arg.Status, arg.IP, arg.UserAgent, arg.RequestID, arg.Metadata)
	return err
}

const listAuditLogs = `-- name: ListAuditLogs
SELECT id, company_id, actor_kind, actor_id, action, resource_type, resource_id, method, path, route, status,
	ip, user_agent, request_id, metadata, created_at
FROM audit_logs
WHERE company_id = $1
	AND ($4 = '' OR resource_type = $4)
	AND ($5 = '' OR resource_id = $5)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

type ListAuditLogsParams struct {
	CompanyID    uuid.UUID
	Limit        int32
	Offset       int32
	ResourceType string
	ResourceID   string
}

func (q *Queries) ListAuditLogs(ctx context.Context, arg ListAuditLogsParams) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogs, arg.CompanyID, arg.Limit, arg.Offset, arg.ResourceType, arg.ResourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var a AuditLog
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.ActorKind, &a.ActorID, &a.Action, &a.ResourceType, &a.ResourceID,
			&a.Method, &a.Path, &a.Route, &a.Status, &a.IP, &a.UserAgent, &a.RequestID, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
