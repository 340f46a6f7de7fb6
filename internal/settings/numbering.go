package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/lock"
)

type numberQueries interface {
	NextInvoiceNumber(ctx context.Context, companyID uuid.UUID) (db.NextInvoiceNumberRow, error)
}

// Numberer allocates invoice numbers one company at a time.
type Numberer struct {
	Locker lock.Locker
	TTL    time.Duration
}

// Serialize runs fn while holding the numbering lock of companyID.
func (n Numberer) Serialize(ctx context.Context, companyID uuid.UUID, fn func(context.Context) error) error {
	return n.Locker.WithLock(ctx, lock.Key("invoice-number", companyID.String()), n.TTL, fn)
}

// Next reserves the next number of the company. q should be bound to the transaction that
// inserts the invoice.
func Next(ctx context.Context, q numberQueries, companyID uuid.UUID) (string, error) {
	row, err := q.NextInvoiceNumber(ctx, companyID)
	if err != nil {
		return "", fmt.Errorf("allocate invoice number: %w", err)
	}
	return invoice.Numbering{Prefix: row.Prefix, Padding: int(row.Padding)}.Format(row.Number), nil
}
