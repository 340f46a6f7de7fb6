package db

import (
	"context"

	"github.com/google/uuid"
)

const upsertInvoiceDocument = `-- name: UpsertInvoiceDocument
INSERT INTO invoice_documents (invoice_id, filename, content_type, content)
VALUES ($1, $2, $3, $4)
ON CONFLICT (invoice_id) DO UPDATE SET
	filename = EXCLUDED.filename,
	content_type = EXCLUDED.content_type,
	content = EXCLUDED.content,
	rendered_at = now()`

type UpsertInvoiceDocumentParams struct {
	InvoiceID   uuid.UUID
	Filename    string
	ContentType string
	Content     []byte
}

func (q *Queries) UpsertInvoiceDocument(ctx context.Context, arg UpsertInvoiceDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertInvoiceDocument, arg.InvoiceID, arg.Filename, arg.ContentType, arg.Content)
	return err
}

const getInvoiceDocument = `-- name: GetInvoiceDocument
SELECT invoice_id, filename, content_type, content, rendered_at FROM invoice_documents WHERE invoice_id = $1`

func (q *Queries) GetInvoiceDocument(ctx context.Context, invoiceID uuid.UUID) (InvoiceDocument, error) {
	var d InvoiceDocument
	err := q.db.QueryRow(ctx, getInvoiceDocument, invoiceID).Scan(&d.InvoiceID, &d.Filename, &d.ContentType, &d.Content, &d.RenderedAt)
	return d, err
}

const deleteInvoiceDocument = `-- name: DeleteInvoiceDocument
DELETE FROM invoice_documents WHERE invoice_id = $1`

// DeleteInvoiceDocument drops a stored PDF so the next download re-renders it.
func (q *Queries) DeleteInvoiceDocument(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteInvoiceDocument, invoiceID)
	return err
}
