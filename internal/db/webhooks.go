package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const endpointColumns = `id, company_id, url, secret, topics, active, created_at`

func scanEndpoint(row scanner) (WebhookEndpoint, error) {
	var e WebhookEndpoint
	err := row.Scan(&e.ID, &e.CompanyID, &e.URL, &e.Secret, &e.Topics, &e.Active, &e.CreatedAt)
	return e, err
}

func collectEndpoints(q *Queries, ctx context.Context, sql string, args ...any) ([]WebhookEndpoint, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WebhookEndpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const createWebhookEndpoint = `-- name: CreateWebhookEndpoint
INSERT INTO webhook_endpoints (id, company_id, url, secret, topics)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + endpointColumns

type CreateWebhookEndpointParams struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	URL       string
	Secret    string
	Topics    []string
}

func (q *Queries) CreateWebhookEndpoint(ctx context.Context, arg CreateWebhookEndpointParams) (WebhookEndpoint, error) {
	return scanEndpoint(q.db.QueryRow(ctx, createWebhookEndpoint, arg.ID, arg.CompanyID, arg.URL, arg.Secret, arg.Topics))
}

const listWebhookEndpoints = `-- name: ListWebhookEndpoints
SELECT ` + endpointColumns + ` FROM webhook_endpoints WHERE company_id = $1 ORDER BY created_at`

func (q *Queries) ListWebhookEndpoints(ctx context.Context, companyID uuid.UUID) ([]WebhookEndpoint, error) {
	return collectEndpoints(q, ctx, listWebhookEndpoints, companyID)
}

const listActiveEndpointsForTopic = `-- name: ListActiveEndpointsForTopic
SELECT ` + endpointColumns + `
FROM webhook_endpoints
WHERE company_id = $1 AND active AND (cardinality(topics) = 0 OR $2 = ANY(topics))`

type ListActiveEndpointsForTopicParams struct {
	CompanyID uuid.UUID
	Topic     string
}

// ListActiveEndpointsForTopic returns endpoints subscribed to topic. An empty topic list subscribes to all.
func (q *Queries) ListActiveEndpointsForTopic(ctx context.Context, arg ListActiveEndpointsForTopicParams) ([]WebhookEndpoint, error) {
	return collectEndpoints(q, ctx, listActiveEndpointsForTopic, arg.CompanyID, arg.Topic)
}

const getWebhookEndpoint = `-- name: GetWebhookEndpoint
SELECT ` + endpointColumns + ` FROM webhook_endpoints WHERE id = $1`

func (q *Queries) GetWebhookEndpoint(ctx context.Context, id uuid.UUID) (WebhookEndpoint, error) {
	return scanEndpoint(q.db.QueryRow(ctx, getWebhookEndpoint, id))
}

const deleteWebhookEndpoint = `-- name: DeleteWebhookEndpoint
DELETE FROM webhook_endpoints WHERE company_id = $1 AND id = $2`

type DeleteWebhookEndpointParams struct {
	CompanyID uuid.UUID
	ID        uuid.UUID
}

func (q *Queries) DeleteWebhookEndpoint(ctx context.Context, arg DeleteWebhookEndpointParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteWebhookEndpoint, arg.CompanyID, arg.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertWebhookDelivery = `-- name: InsertWebhookDelivery
INSERT INTO webhook_deliveries (id, endpoint_id, event_id, attempt, status, response_code, error, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type InsertWebhookDeliveryParams struct {
	ID           uuid.UUID
	EndpointID   uuid.UUID
	EventID      uuid.UUID
	Attempt      int32
	Status       string
	ResponseCode pgtype.Int4
	Error        pgtype.Text
	DurationMs   int64
}

func (q *Queries) InsertWebhookDelivery(ctx context.Context, arg InsertWebhookDeliveryParams) error {
	_, err := q.db.Exec(ctx, insertWebhookDelivery, arg.ID, arg.EndpointID, arg.EventID, arg.Attempt, arg.Status,
		arg.ResponseCode, arg.Error, arg.DurationMs)
	return err
}
