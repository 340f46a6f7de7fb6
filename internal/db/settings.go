package db

import (
	"context"

	"github.com/google/uuid"
)

const settingsColumns = `company_id, tax_mode, discount_mode, discount_basis, round_off, additional_charges,
	number_prefix, next_number, number_padding, updated_at`

func scanSettings(row scanner) (InvoiceSettings, error) {
	var s InvoiceSettings
	err := row.Scan(&s.CompanyID, &s.TaxMode, &s.DiscountMode, &s.DiscountBasis, &s.RoundOff, &s.AdditionalCharges,
		&s.NumberPrefix, &s.NextNumber, &s.NumberPadding, &s.UpdatedAt)
	return s, err
}

const getInvoiceSettings = `-- name: GetInvoiceSettings
SELECT ` + settingsColumns + ` FROM invoice_settings WHERE company_id = $1`

func (q *Queries) GetInvoiceSettings(ctx context.Context, companyID uuid.UUID) (InvoiceSettings, error) {
	return scanSettings(q.db.QueryRow(ctx, getInvoiceSettings, companyID))
}

const upsertInvoiceSettings = `-- name: UpsertInvoiceSettings
INSERT INTO invoice_settings (company_id, tax_mode, discount_mode, discount_basis, round_off, additional_charges,
	number_prefix, next_number, number_padding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (company_id) DO UPDATE SET
	tax_mode = EXCLUDED.tax_mode,
	discount_mode = EXCLUDED.discount_mode,
	discount_basis = EXCLUDED.discount_basis,
	round_off = EXCLUDED.round_off,
	additional_charges = EXCLUDED.additional_charges,
	number_prefix = EXCLUDED.number_prefix,
	next_number = EXCLUDED.next_number,
	number_padding = EXCLUDED.number_padding,
	updated_at = now()
RETURNING ` + settingsColumns

type UpsertInvoiceSettingsParams struct {
	CompanyID         uuid.UUID
	TaxMode           string
	DiscountMode      string
	DiscountBasis     string
	RoundOff          bool
	AdditionalCharges bool
	NumberPrefix      string
	NextNumber        int64
	NumberPadding     int32
}

func (q *Queries) UpsertInvoiceSettings(ctx context.Context, arg UpsertInvoiceSettingsParams) (InvoiceSettings, error) {
	return scanSettings(q.db.QueryRow(ctx, upsertInvoiceSettings,
		arg.CompanyID, arg.TaxMode, arg.DiscountMode, arg.DiscountBasis, arg.RoundOff, arg.AdditionalCharges,
		arg.NumberPrefix, arg.NextNumber, arg.NumberPadding))
}

const nextInvoiceNumber = `-- name: NextInvoiceNumber
INSERT INTO invoice_settings (company_id, next_number) VALUES ($1, 2)
ON CONFLICT (company_id) DO UPDATE SET next_number = invoice_settings.next_number + 1, updated_at = now()
RETURNING number_prefix, next_number - 1, number_padding`

type NextInvoiceNumberRow struct {
	Prefix  string
	Number  int64
	Padding int32
}

// NextInvoiceNumber reserves the next number of the company's sequence. Run it inside the
// transaction that inserts the invoice so a failed insert does not leave a gap.
func (q *Queries) NextInvoiceNumber(ctx context.Context, companyID uuid.UUID) (NextInvoiceNumberRow, error) {
	var r NextInvoiceNumberRow
	err := q.db.QueryRow(ctx, nextInvoiceNumber, companyID).Scan(&r.Prefix, &r.Number, &r.Padding)
	return r, err
}
