package cache

import (
	"context"
	"time"

	"github.com/noah-isme/backend-invoice/internal/tenant"
)

// KeySettings returns the per-company key of the invoice settings.
func KeySettings(ctx context.Context) string {
	return tenant.Key(ctx, "settings:invoice")
}

// ReportPrefix returns the per-company prefix shared by every cached report.
func ReportPrefix(ctx context.Context) string {
	return tenant.Key(ctx, "reports:invoices:")
}

// KeyReport returns the per-company key of an invoice report over [from, to].
func KeyReport(ctx context.Context, from, to time.Time) string {
	return ReportPrefix(ctx) + from.Format(time.DateOnly) + ":" + to.Format(time.DateOnly)
}
