package db

import (
	"context"

	"github.com/google/uuid"
)

const insertDomainEvent = `-- name: InsertDomainEvent
INSERT INTO domain_events (id, company_id, topic, aggregate_id, payload)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, company_id, topic, aggregate_id, payload, occurred_at`

type InsertDomainEventParams struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Topic       string
	AggregateID uuid.UUID
	Payload     []byte
}

func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error) {
	var e DomainEvent
	err := q.db.QueryRow(ctx, insertDomainEvent, arg.ID, arg.CompanyID, arg.Topic, arg.AggregateID, arg.Payload).
		Scan(&e.ID, &e.CompanyID, &e.Topic, &e.AggregateID, &e.Payload, &e.OccurredAt)
	return e, err
}

const getDomainEvent = `-- name: GetDomainEvent
SELECT id, company_id, topic, aggregate_id, payload, occurred_at FROM domain_events WHERE id = $1`

func (q *Queries) GetDomainEvent(ctx context.Context, id uuid.UUID) (DomainEvent, error) {
	var e DomainEvent
	err := q.db.QueryRow(ctx, getDomainEvent, id).
		Scan(&e.ID, &e.CompanyID, &e.Topic, &e.AggregateID, &e.Payload, &e.OccurredAt)
	return e, err
}
