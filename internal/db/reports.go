package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const invoiceTotalsByDay = `-- name: InvoiceTotalsByDay
SELECT invoice_date AS day,
	count(*) AS invoices,
	COALESCE(sum(total), 0) AS total,
	COALESCE(sum(total_tax), 0) AS total_tax,
	COALESCE(sum(grand_total), 0) AS grand_total
FROM invoices
WHERE company_id = $1 AND status <> 'cancelled' AND invoice_date BETWEEN $2 AND $3
GROUP BY invoice_date
ORDER BY invoice_date`

type InvoiceTotalsByDayParams struct {
	CompanyID uuid.UUID
	From      time.Time
	To        time.Time
}

type InvoiceTotalsByDayRow struct {
	Day        time.Time
	Invoices   int64
	Total      decimal.Decimal
	TotalTax   decimal.Decimal
	GrandTotal decimal.Decimal
}

func (q *Queries) InvoiceTotalsByDay(ctx context.Context, arg InvoiceTotalsByDayParams) ([]InvoiceTotalsByDayRow, error) {
	rows, err := q.db.Query(ctx, invoiceTotalsByDay, arg.CompanyID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceTotalsByDayRow
	for rows.Next() {
		var r InvoiceTotalsByDayRow
		if err := rows.Scan(&r.Day, &r.Invoices, &r.Total, &r.TotalTax, &r.GrandTotal); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
