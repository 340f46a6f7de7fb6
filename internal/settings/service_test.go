package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/lock"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

type stubQueries struct {
	rows    map[uuid.UUID]db.InvoiceSettings
	gets    int
	numbers map[uuid.UUID]int64
}

func newStub() *stubQueries {
	return &stubQueries{rows: map[uuid.UUID]db.InvoiceSettings{}, numbers: map[uuid.UUID]int64{}}
}

func (s *stubQueries) GetInvoiceSettings(_ context.Context, companyID uuid.UUID) (db.InvoiceSettings, error) {
	s.gets++
	row, ok := s.rows[companyID]
	if !ok {
		return db.InvoiceSettings{}, pgx.ErrNoRows
	}
	return row, nil
}

func (s *stubQueries) UpsertInvoiceSettings(_ context.Context, arg db.UpsertInvoiceSettingsParams) (db.InvoiceSettings, error) {
	row := db.InvoiceSettings{
		CompanyID:         arg.CompanyID,
		TaxMode:           arg.TaxMode,
		DiscountMode:      arg.DiscountMode,
		DiscountBasis:     arg.DiscountBasis,
		RoundOff:          arg.RoundOff,
		AdditionalCharges: arg.AdditionalCharges,
		NumberPrefix:      arg.NumberPrefix,
		NextNumber:        arg.NextNumber,
		NumberPadding:     arg.NumberPadding,
	}
	s.rows[arg.CompanyID] = row
	return row, nil
}

func (s *stubQueries) NextInvoiceNumber(_ context.Context, companyID uuid.UUID) (db.NextInvoiceNumberRow, error) {
	s.numbers[companyID]++
	return db.NextInvoiceNumberRow{Prefix: "INV", Number: s.numbers[companyID], Padding: 6}, nil
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGetFallsBackToDefaultsAndCaches(t *testing.T) {
	stub := newStub()
	svc, err := NewService(stub, cache.New(newRedis(t), time.Minute))
	require.NoError(t, err)
	ctx := tenant.With(context.Background(), uuid.NewString())

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, invoice.DefaultSettings(), got)

	_, err = svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stub.gets, "second read must come from the cache")
}

func TestUpdateInvalidatesCache(t *testing.T) {
	stub := newStub()
	svc, err := NewService(stub, cache.New(newRedis(t), time.Minute))
	require.NoError(t, err)
	ctx := tenant.With(context.Background(), uuid.NewString())

	_, err = svc.Get(ctx)
	require.NoError(t, err)

	in := invoice.DefaultSettings()
	in.TaxMode = invoice.TaxIndividual
	in.RoundOff = true
	_, err = svc.Update(ctx, in)
	require.NoError(t, err)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, invoice.TaxIndividual, got.TaxMode)
	require.True(t, got.RoundOff)
}

func TestGetRequiresTenant(t *testing.T) {
	svc, err := NewService(newStub(), nil)
	require.NoError(t, err)
	_, err = svc.Get(context.Background())
	require.ErrorIs(t, err, tenant.ErrTenantMissing)
}

func TestNumbererAllocatesSequentially(t *testing.T) {
	stub := newStub()
	companyID := uuid.New()
	n := Numberer{Locker: lock.Locker{R: newRedis(t)}, TTL: time.Second}

	var got []string
	for i := 0; i < 2; i++ {
		err := n.Serialize(context.Background(), companyID, func(ctx context.Context) error {
			number, err := Next(ctx, stub, companyID)
			got = append(got, number)
			return err
		})
		require.NoError(t, err)
	}
	require.Equal(t, []string{"INV-000001", "INV-000002"}, got)
}

func TestPutValidatesModes(t *testing.T) {
	svc, err := NewService(newStub(), nil)
	require.NoError(t, err)
	h := &Handler{Service: svc}
	ctx := tenant.With(context.Background(), uuid.NewString())

	body := `{"taxMode":"weird","discountMode":"none","discountBasis":"amount","numbering":{"prefix":"INV","nextNumber":1,"padding":6}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/invoice", strings.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Put(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "taxMode")

	body = strings.Replace(body, "weird", "group", 1)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/settings/invoice", strings.NewReader(body)).WithContext(ctx)
	rec = httptest.NewRecorder()
	h.Put(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"discountBasis":"amount"`)
}
