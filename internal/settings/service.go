// Package settings owns the per-company invoice configuration and the invoice number sequence.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

type queryProvider interface {
	GetInvoiceSettings(ctx context.Context, companyID uuid.UUID) (db.InvoiceSettings, error)
	UpsertInvoiceSettings(ctx context.Context, arg db.UpsertInvoiceSettingsParams) (db.InvoiceSettings, error)
}

// Service reads and writes invoice settings through a Redis cache.
type Service struct {
	queries queryProvider
	cache   *cache.JSON
}

// NewService constructs a Service. cache may be nil.
func NewService(queries queryProvider, c *cache.JSON) (*Service, error) {
	if queries == nil {
		return nil, errors.New("settings: queries is required")
	}
	return &Service{queries: queries, cache: c}, nil
}

// Get returns the settings of the company in ctx, falling back to defaults when none were saved.
func (s *Service) Get(ctx context.Context) (invoice.Settings, error) {
	companyID, err := tenant.UUID(ctx)
	if err != nil {
		return invoice.Settings{}, err
	}
	key := cache.KeySettings(ctx)
	var cached invoice.Settings
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		obs.Logger(ctx).Warn().Err(err).Msg("settings cache get")
	} else if found {
		obs.Inc(obs.SettingsCacheTotal, "hit")
		return cached, nil
	}
	obs.Inc(obs.SettingsCacheTotal, "miss")

	row, err := s.queries.GetInvoiceSettings(ctx, companyID)
	var out invoice.Settings
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		out = invoice.DefaultSettings()
	case err != nil:
		return invoice.Settings{}, fmt.Errorf("load settings: %w", err)
	default:
		out = FromRow(row)
	}
	if err := s.cache.Set(ctx, key, out); err != nil {
		obs.Logger(ctx).Warn().Err(err).Msg("settings cache set")
	}
	return out, nil
}

// Update replaces the settings of the company in ctx.
func (s *Service) Update(ctx context.Context, in invoice.Settings) (invoice.Settings, error) {
	companyID, err := tenant.UUID(ctx)
	if err != nil {
		return invoice.Settings{}, err
	}
	row, err := s.queries.UpsertInvoiceSettings(ctx, db.UpsertInvoiceSettingsParams{
		CompanyID:         companyID,
		TaxMode:           string(in.TaxMode),
		DiscountMode:      string(in.DiscountMode),
		DiscountBasis:     string(in.DiscountBasis),
		RoundOff:          in.RoundOff,
		AdditionalCharges: in.AdditionalCharges,
		NumberPrefix:      in.Numbering.Prefix,
		NextNumber:        in.Numbering.NextNumber,
		NumberPadding:     int32(in.Numbering.Padding),
	})
	if err != nil {
		return invoice.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.Invalidate(ctx)
	return FromRow(row), nil
}

// Invalidate drops the cached settings of the company in ctx.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeySettings(ctx)); err != nil {
		obs.Logger(ctx).Warn().Err(err).Msg("settings cache delete")
	}
}

// FromRow converts a stored row into engine settings.
func FromRow(row db.InvoiceSettings) invoice.Settings {
	return invoice.Settings{
		TaxMode:           invoice.TaxMode(row.TaxMode),
		DiscountMode:      invoice.DiscountMode(row.DiscountMode),
		DiscountBasis:     invoice.DiscountBasis(row.DiscountBasis),
		RoundOff:          row.RoundOff,
		AdditionalCharges: row.AdditionalCharges,
		Numbering: invoice.Numbering{
			Prefix:     row.NumberPrefix,
			NextNumber: row.NextNumber,
			Padding:    int(row.NumberPadding),
		},
	}
}
