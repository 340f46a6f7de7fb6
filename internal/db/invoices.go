package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `id, company_id, invoice_number, status, perspective, group_by, invoice_date, due_date,
	service_period, billed_to, billed_by, bank_details, notes, terms, settings, same_state, group_tax,
	group_discount, total, total_tax, total_discount, sub_total, mcd_charges, toll_charges,
	additional_charges, penalty, grand_total, created_by, created_at, updated_at`

func scanInvoice(row scanner) (Invoice, error) {
	var i Invoice
	err := row.Scan(
		&i.ID, &i.CompanyID, &i.InvoiceNumber, &i.Status, &i.Perspective, &i.GroupBy, &i.InvoiceDate, &i.DueDate,
		&i.ServicePeriod, &i.BilledTo, &i.BilledBy, &i.BankDetails, &i.Notes, &i.Terms, &i.Settings, &i.SameState,
		&i.GroupTax, &i.GroupDiscount, &i.Total, &i.TotalTax, &i.TotalDiscount, &i.SubTotal, &i.MCDCharges,
		&i.TollCharges, &i.AdditionalCharges, &i.Penalty, &i.GrandTotal, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const createInvoice = `-- name: CreateInvoice
INSERT INTO invoices (id, company_id, invoice_number, status, perspective, group_by, invoice_date, due_date,
	service_period, billed_to, billed_by, bank_details, notes, terms, settings, same_state, group_tax,
	group_discount, total, total_tax, total_discount, sub_total, mcd_charges, toll_charges,
	additional_charges, penalty, grand_total, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22,
	$23, $24, $25, $26, $27, $28)
RETURNING ` + invoiceColumns

type CreateInvoiceParams struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	InvoiceNumber     string
	Status            string
	Perspective       string
	GroupBy           string
	InvoiceDate       time.Time
	DueDate           pgtype.Date
	ServicePeriod     string
	BilledTo          []byte
	BilledBy          []byte
	BankDetails       []byte
	Notes             string
	Terms             string
	Settings          []byte
	SameState         bool
	GroupTax          decimal.Decimal
	GroupDiscount     decimal.Decimal
	Total             decimal.Decimal
	TotalTax          decimal.Decimal
	TotalDiscount     decimal.Decimal
	SubTotal          decimal.Decimal
	MCDCharges        decimal.Decimal
	TollCharges       decimal.Decimal
	AdditionalCharges decimal.Decimal
	Penalty           decimal.Decimal
	GrandTotal        decimal.Decimal
	CreatedBy         string
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, createInvoice,
		arg.ID, arg.CompanyID, arg.InvoiceNumber, arg.Status, arg.Perspective, arg.GroupBy, arg.InvoiceDate,
		arg.DueDate, arg.ServicePeriod, arg.BilledTo, arg.BilledBy, arg.BankDetails, arg.Notes, arg.Terms,
		arg.Settings, arg.SameState, arg.GroupTax, arg.GroupDiscount, arg.Total, arg.TotalTax, arg.TotalDiscount,
		arg.SubTotal, arg.MCDCharges, arg.TollCharges, arg.AdditionalCharges, arg.Penalty, arg.GrandTotal,
		arg.CreatedBy,
	))
}

const insertInvoiceLineItem = `-- name: InsertInvoiceLineItem
INSERT INTO invoice_line_items (invoice_id, id, position, kind, name, description, rate, quantity, tax,
	discount, amount, trip_ids)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

type InsertInvoiceLineItemParams = InvoiceLineItem

func (q *Queries) InsertInvoiceLineItem(ctx context.Context, arg InsertInvoiceLineItemParams) error {
	tripIDs := arg.TripIDs
	if tripIDs == nil {
		tripIDs = []string{}
	}
	_, err := q.db.Exec(ctx, insertInvoiceLineItem,
		arg.InvoiceID, arg.ID, arg.Position, arg.Kind, arg.Name, arg.Description, arg.Rate, arg.Quantity,
		arg.Tax, arg.Discount, arg.Amount, tripIDs)
	return err
}

const listInvoiceLineItems = `-- name: ListInvoiceLineItems
SELECT invoice_id, id, position, kind, name, description, rate, quantity, tax, discount, amount, trip_ids
FROM invoice_line_items
WHERE invoice_id = $1
ORDER BY position`

func (q *Queries) ListInvoiceLineItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceLineItem, error) {
	rows, err := q.db.Query(ctx, listInvoiceLineItems, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceLineItem
	for rows.Next() {
		var li InvoiceLineItem
		if err := rows.Scan(&li.InvoiceID, &li.ID, &li.Position, &li.Kind, &li.Name, &li.Description, &li.Rate,
			&li.Quantity, &li.Tax, &li.Discount, &li.Amount, &li.TripIDs); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

const linkInvoiceTrips = `-- name: LinkInvoiceTrips
INSERT INTO invoice_trips (trip_id, invoice_id)
SELECT unnest($2::uuid[]), $1`

type LinkInvoiceTripsParams struct {
	InvoiceID uuid.UUID
	TripIDs   []uuid.UUID
}

// LinkInvoiceTrips fails with a unique violation when any trip already has an invoice.
func (q *Queries) LinkInvoiceTrips(ctx context.Context, arg LinkInvoiceTripsParams) (int64, error) {
	tag, err := q.db.Exec(ctx, linkInvoiceTrips, arg.InvoiceID, arg.TripIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const unlinkInvoiceTrips = `-- name: UnlinkInvoiceTrips
DELETE FROM invoice_trips WHERE invoice_id = $1`

func (q *Queries) UnlinkInvoiceTrips(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, unlinkInvoiceTrips, invoiceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getInvoice = `-- name: GetInvoice
SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1 AND id = $2`

type GetInvoiceParams struct {
	CompanyID uuid.UUID
	ID        uuid.UUID
}

func (q *Queries) GetInvoice(ctx context.Context, arg GetInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, arg.CompanyID, arg.ID))
}

const getInvoiceByID = `-- name: GetInvoiceByID
SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

// GetInvoiceByID is used by background jobs that carry the company inside the invoice row.
func (q *Queries) GetInvoiceByID(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoiceByID, id))
}

const listInvoices = `-- name: ListInvoices
SELECT ` + invoiceColumns + `
FROM invoices
WHERE company_id = $1 AND ($2::text IS NULL OR status = $2)
ORDER BY invoice_date DESC, created_at DESC
LIMIT $3 OFFSET $4`

type ListInvoicesParams struct {
	CompanyID uuid.UUID
	Status    pgtype.Text
	Limit     int32
	Offset    int32
}

func (q *Queries) ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoices, arg.CompanyID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

const countInvoices = `-- name: CountInvoices
SELECT count(*) FROM invoices WHERE company_id = $1 AND ($2::text IS NULL OR status = $2)`

type CountInvoicesParams struct {
	CompanyID uuid.UUID
	Status    pgtype.Text
}

func (q *Queries) CountInvoices(ctx context.Context, arg CountInvoicesParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countInvoices, arg.CompanyID, arg.Status).Scan(&n)
	return n, err
}

const updateInvoiceStatus = `-- name: UpdateInvoiceStatus
UPDATE invoices SET status = $3, updated_at = now()
WHERE company_id = $1 AND id = $2
RETURNING ` + invoiceColumns

type UpdateInvoiceStatusParams struct {
	CompanyID uuid.UUID
	ID        uuid.UUID
	Status    string
}

func (q *Queries) UpdateInvoiceStatus(ctx context.Context, arg UpdateInvoiceStatusParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, updateInvoiceStatus, arg.CompanyID, arg.ID, arg.Status))
}
