package trip

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

type stubQueries struct {
	rows      []db.Trip
	lastList  db.ListTripsParams
	lastCount db.CountTripsParams
}

func (s *stubQueries) ListTrips(_ context.Context, arg db.ListTripsParams) ([]db.Trip, error) {
	s.lastList = arg
	return s.rows, nil
}

func (s *stubQueries) CountTrips(_ context.Context, arg db.CountTripsParams) (int64, error) {
	s.lastCount = arg
	return int64(len(s.rows)), nil
}

func TestToEngineMapsReferences(t *testing.T) {
	invoiceID := uuid.New()
	row := db.Trip{
		ID:              uuid.New(),
		CompanyRate:     decimal.RequireFromString("120.50"),
		ZoneID:          pgtype.Text{String: "z1", Valid: true},
		ZoneName:        pgtype.Text{String: "North", Valid: true},
		VehicleTypeName: pgtype.Text{String: "", Valid: true},
		InvoiceID:       pgtype.UUID{Bytes: invoiceID, Valid: true},
	}
	got := ToEngine(row)
	require.Equal(t, row.ID.String(), got.ID)
	require.Equal(t, "North", got.Zone.Name)
	require.Nil(t, got.ZoneType)
	require.Nil(t, got.VehicleType, "blank names fall back to Unknown in the engine")
	require.True(t, got.CompanyRate.Equal(decimal.RequireFromString("120.5")))
}

func TestListHandlerDefaultsAndInvoiceLink(t *testing.T) {
	invoiceID := uuid.New()
	stub := &stubQueries{rows: []db.Trip{
		{ID: uuid.New(), InvoiceID: pgtype.UUID{Bytes: invoiceID, Valid: true}},
		{ID: uuid.New()},
	}}
	svc, err := NewService(stub)
	require.NoError(t, err)
	now := time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)
	h := &Handler{Service: svc, Now: func() time.Time { return now }}

	ctx := tenant.With(context.Background(), uuid.NewString())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips?uninvoiced=true&page=2&limit=10", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.True(t, stub.lastList.UninvoicedOnly)
	require.Equal(t, int32(10), stub.lastList.Offset)
	require.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), stub.lastList.To)
	require.Equal(t, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), stub.lastList.From)

	var body struct {
		Data ListResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 2)
	require.Equal(t, invoiceID.String(), body.Data.Items[0].InvoiceID)
	require.Empty(t, body.Data.Items[1].InvoiceID)
}

func TestListHandlerRejectsInvertedRange(t *testing.T) {
	svc, err := NewService(&stubQueries{})
	require.NoError(t, err)
	h := &Handler{Service: svc}
	ctx := tenant.With(context.Background(), uuid.NewString())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips?from=2024-05-02&to=2024-05-01", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHandlerVehicleFilterAndPageClamp(t *testing.T) {
	stub := &stubQueries{}
	svc, err := NewService(stub)
	require.NoError(t, err)
	h := &Handler{Service: svc}

	ctx := tenant.With(context.Background(), uuid.NewString())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips?vehicleType=%20Sedan%20&page=2147483647&limit=100", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, "Sedan", stub.lastList.VehicleType)
	require.Equal(t, "Sedan", stub.lastCount.VehicleType)
	require.Positive(t, stub.lastList.Offset, "offset must not wrap negative")
	require.Equal(t, int32(99_999*100), stub.lastList.Offset)
}
