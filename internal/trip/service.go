// Package trip lists the completed trips a company can bill.
package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

type queryProvider interface {
	ListTrips(ctx context.Context, arg db.ListTripsParams) ([]db.Trip, error)
	CountTrips(ctx context.Context, arg db.CountTripsParams) (int64, error)
}

// Trip is the API view of a trip.
type Trip struct {
	invoice.Trip
	InvoiceID string `json:"invoiceId,omitempty"`
}

// ListParams filters the trip listing. VehicleType matches a vehicle type id or,
// case-insensitively, its name.
type ListParams struct {
	From           time.Time
	To             time.Time
	UninvoicedOnly bool
	VehicleType    string
	Page           int
	Limit          int
}

// ListResult is a page of trips.
type ListResult struct {
	Items []Trip `json:"items"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int64  `json:"total"`
}

// Service reads trips of the company in the request context.
type Service struct {
	queries queryProvider
}

// NewService constructs a Service.
func NewService(queries queryProvider) (*Service, error) {
	if queries == nil {
		return nil, errors.New("trip: queries is required")
	}
	return &Service{queries: queries}, nil
}

// List returns a page of trips between From and To, both inclusive.
func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	companyID, err := tenant.UUID(ctx)
	if err != nil {
		return ListResult{}, err
	}
	total, err := s.queries.CountTrips(ctx, db.CountTripsParams{
		CompanyID:      companyID,
		From:           p.From,
		To:             p.To,
		UninvoicedOnly: p.UninvoicedOnly,
		VehicleType:    p.VehicleType,
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("count trips: %w", err)
	}
	rows, err := s.queries.ListTrips(ctx, db.ListTripsParams{
		CompanyID:      companyID,
		From:           p.From,
		To:             p.To,
		UninvoicedOnly: p.UninvoicedOnly,
		VehicleType:    p.VehicleType,
		Limit:          int32(p.Limit),
		Offset:         int32(common.Offset(p.Page, p.Limit)),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list trips: %w", err)
	}
	items := make([]Trip, 0, len(rows))
	for _, row := range rows {
		t := Trip{Trip: ToEngine(row)}
		if row.InvoiceID.Valid {
			t.InvoiceID = uuid.UUID(row.InvoiceID.Bytes).String()
		}
		items = append(items, t)
	}
	return ListResult{Items: items, Page: p.Page, Limit: p.Limit, Total: total}, nil
}

// ToEngine converts a stored trip into the engine input.
func ToEngine(t db.Trip) invoice.Trip {
	return invoice.Trip{
		ID:                t.ID.String(),
		TripDate:          t.TripDate,
		CompanyRate:       t.CompanyRate,
		VendorRate:        t.VendorRate,
		CompanyGuardPrice: t.CompanyGuardPrice,
		VendorGuardPrice:  t.VendorGuardPrice,
		CompanyPenalty:    t.CompanyPenalty,
		VendorPenalty:     t.VendorPenalty,
		AddOnRate:         t.AddOnRate,
		MCDCharge:         t.MCDCharge,
		TollCharge:        t.TollCharge,
		Zone:              ref(t.ZoneID, t.ZoneName),
		ZoneType:          ref(t.ZoneTypeID, t.ZoneTypeName),
		VehicleType:       ref(t.VehicleTypeID, t.VehicleTypeName),
	}
}

// ToEngineAll converts rows in order.
func ToEngineAll(rows []db.Trip) []invoice.Trip {
	out := make([]invoice.Trip, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToEngine(row))
	}
	return out
}

func ref(id, name pgtype.Text) *invoice.Ref {
	if !name.Valid || name.String == "" {
		return nil
	}
	return &invoice.Ref{ID: id.String, Name: name.String}
}
