package db

import (
	"context"

	"github.com/google/uuid"
)

const getAPIClientByClientID = `-- name: GetAPIClientByClientID
SELECT id, company_id, client_id, name, secret_hash, role, active, last_used_at, created_at
FROM api_clients WHERE client_id = $1`

func (q *Queries) GetAPIClientByClientID(ctx context.Context, clientID string) (APIClient, error) {
	var c APIClient
	err := q.db.QueryRow(ctx, getAPIClientByClientID, clientID).Scan(
		&c.ID, &c.CompanyID, &c.ClientID, &c.Name, &c.SecretHash, &c.Role, &c.Active, &c.LastUsedAt, &c.CreatedAt)
	return c, err
}

const touchAPIClient = `-- name: TouchAPIClient
UPDATE api_clients SET last_used_at = now() WHERE id = $1`

func (q *Queries) TouchAPIClient(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchAPIClient, id)
	return err
}

const getCompany = `-- name: GetCompany
SELECT id, name, state_code, gstin, created_at FROM companies WHERE id = $1`

func (q *Queries) GetCompany(ctx context.Context, id uuid.UUID) (Company, error) {
	var c Company
	err := q.db.QueryRow(ctx, getCompany, id).Scan(&c.ID, &c.Name, &c.StateCode, &c.GSTIN, &c.CreatedAt)
	return c, err
}
