// Package reports aggregates issued invoices per day.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

// Querier defines the database access required for invoice reports.
type Querier interface {
	InvoiceTotalsByDay(ctx context.Context, arg db.InvoiceTotalsByDayParams) ([]db.InvoiceTotalsByDayRow, error)
}

// Day is the aggregate of the invoices dated on one day. Cancelled invoices are excluded.
type Day struct {
	Date       string          `json:"date"`
	Invoices   int64           `json:"invoices"`
	Total      decimal.Decimal `json:"total"`
	TotalTax   decimal.Decimal `json:"totalTax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Report covers [From, To] with one entry per day, days without invoices included.
type Report struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Days   []Day  `json:"days"`
	Totals Day    `json:"totals"`
}

// Service provides cached invoice reports.
type Service struct {
	Q            Querier
	Cache        *cache.JSON
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Invoices returns the daily invoice totals between from and to inclusive.
func (s *Service) Invoices(ctx context.Context, from, to time.Time) (Report, error) {
	if s == nil || s.Q == nil {
		return Report{}, fmt.Errorf("reports service not configured")
	}
	companyID, err := tenant.UUID(ctx)
	if err != nil {
		return Report{}, err
	}
	from, to = day(from), day(to)
	key := cache.KeyReport(ctx, from, to)
	var cached Report
	if found, err := s.Cache.Get(ctx, key, &cached); err != nil {
		obs.Logger(ctx).Warn().Err(err).Msg("report cache get")
	} else if found {
		return cached, nil
	}
	rows, err := s.Q.InvoiceTotalsByDay(ctx, db.InvoiceTotalsByDayParams{CompanyID: companyID, From: from, To: to})
	if err != nil {
		return Report{}, fmt.Errorf("invoice totals: %w", err)
	}
	out := build(from, to, rows)
	if err := s.Cache.Set(ctx, key, out); err != nil {
		obs.Logger(ctx).Warn().Err(err).Msg("report cache set")
	}
	return out, nil
}

func build(from, to time.Time, rows []db.InvoiceTotalsByDayRow) Report {
	byDay := make(map[string]db.InvoiceTotalsByDayRow, len(rows))
	for _, r := range rows {
		byDay[r.Day.Format(time.DateOnly)] = r
	}
	out := Report{From: from.Format(time.DateOnly), To: to.Format(time.DateOnly), Totals: Day{Date: "total"}}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		date := d.Format(time.DateOnly)
		entry := Day{Date: date}
		if r, ok := byDay[date]; ok {
			entry.Invoices = r.Invoices
			entry.Total = r.Total
			entry.TotalTax = r.TotalTax
			entry.GrandTotal = r.GrandTotal
		}
		out.Days = append(out.Days, entry)
		out.Totals.Invoices += entry.Invoices
		out.Totals.Total = out.Totals.Total.Add(entry.Total)
		out.Totals.TotalTax = out.Totals.TotalTax.Add(entry.TotalTax)
		out.Totals.GrandTotal = out.Totals.GrandTotal.Add(entry.GrandTotal)
	}
	return out
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
