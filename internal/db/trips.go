package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const tripColumns = `t.id, t.company_id, t.trip_date, t.company_rate, t.vendor_rate, t.company_guard_price,
	t.vendor_guard_price, t.company_penalty, t.vendor_penalty, t.add_on_rate, t.mcd_charge, t.toll_charge,
	t.zone_id, t.zone_name, t.zone_type_id, t.zone_type_name, t.vehicle_type_id, t.vehicle_type_name,
	t.created_at, it.invoice_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(row scanner) (Trip, error) {
	var t Trip
	err := row.Scan(
		&t.ID, &t.CompanyID, &t.TripDate, &t.CompanyRate, &t.VendorRate, &t.CompanyGuardPrice,
		&t.VendorGuardPrice, &t.CompanyPenalty, &t.VendorPenalty, &t.AddOnRate, &t.MCDCharge, &t.TollCharge,
		&t.ZoneID, &t.ZoneName, &t.ZoneTypeID, &t.ZoneTypeName, &t.VehicleTypeID, &t.VehicleTypeName,
		&t.CreatedAt, &t.InvoiceID,
	)
	return t, err
}

const listTripsByIDs = `-- name: ListTripsByIDs
SELECT ` + tripColumns + `
FROM trips t
LEFT JOIN invoice_trips it ON it.trip_id = t.id
WHERE t.company_id = $1 AND t.id = ANY($2::uuid[])
ORDER BY t.trip_date, t.created_at, t.id`

type ListTripsByIDsParams struct {
	CompanyID uuid.UUID
	IDs       []uuid.UUID
}

// ListTripsByIDs returns the company's trips among IDs ordered by trip date.
func (q *Queries) ListTripsByIDs(ctx context.Context, arg ListTripsByIDsParams) ([]Trip, error) {
	rows, err := q.db.Query(ctx, listTripsByIDs, arg.CompanyID, arg.IDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const listTrips = `-- name: ListTrips
SELECT ` + tripColumns + `
FROM trips t
LEFT JOIN invoice_trips it ON it.trip_id = t.id
WHERE t.company_id = $1
  AND t.trip_date BETWEEN $2 AND $3
  AND (NOT $4::boolean OR it.invoice_id IS NULL)
  AND ($7::text = '' OR t.vehicle_type_id = $7 OR lower(t.vehicle_type_name) = lower($7))
ORDER BY t.trip_date, t.created_at, t.id
LIMIT $5 OFFSET $6`

type ListTripsParams struct {
	CompanyID      uuid.UUID
	From           time.Time
	To             time.Time
	UninvoicedOnly bool
	VehicleType    string
	Limit          int32
	Offset         int32
}

func (q *Queries) ListTrips(ctx context.Context, arg ListTripsParams) ([]Trip, error) {
	rows, err := q.db.Query(ctx, listTrips, arg.CompanyID, arg.From, arg.To, arg.UninvoicedOnly, arg.Limit, arg.Offset, arg.VehicleType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const countTrips = `-- name: CountTrips
SELECT count(*)
FROM trips t
LEFT JOIN invoice_trips it ON it.trip_id = t.id
WHERE t.company_id = $1
  AND t.trip_date BETWEEN $2 AND $3
  AND (NOT $4::boolean OR it.invoice_id IS NULL)
  AND ($5::text = '' OR t.vehicle_type_id = $5 OR lower(t.vehicle_type_name) = lower($5))`

type CountTripsParams struct {
	CompanyID      uuid.UUID
	From           time.Time
	To             time.Time
	UninvoicedOnly bool
	VehicleType    string
}

func (q *Queries) CountTrips(ctx context.Context, arg CountTripsParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countTrips, arg.CompanyID, arg.From, arg.To, arg.UninvoicedOnly, arg.VehicleType).Scan(&n)
	return n, err
}
