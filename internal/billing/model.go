// Package billing issues invoices from trips: previews, creation, status changes and documents.
package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/document"
	"github.com/noah-isme/backend-invoice/internal/invoice"
)

// Invoice statuses.
const (
	StatusUnpaid    = "unpaid"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// CanTransition reports whether an invoice may move from one status to another.
func CanTransition(from, to string) bool {
	return from == StatusUnpaid && (to == StatusPaid || to == StatusCancelled)
}

const dateLayout = "02-01-2006"

// PreviewInput selects the trips and session edits of a draft invoice.
type PreviewInput struct {
	TripIDs  []string        `json:"tripIds" validate:"required,min=1,max=1000,dive,uuid"`
	Edits    invoice.Edits   `json:"edits"`
	BilledTo *document.Party `json:"billedTo,omitempty"`
}

// CreateInput carries everything stored with a new invoice.
type CreateInput struct {
	TripIDs       []string             `json:"tripIds" validate:"required,min=1,max=1000,dive,uuid"`
	Edits         invoice.Edits        `json:"edits"`
	Number        string               `json:"number" validate:"omitempty,max=64"`
	InvoiceDate   string               `json:"invoiceDate" validate:"omitempty,datetime=2006-01-02"`
	DueDate       string               `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	ServicePeriod string               `json:"servicePeriod" validate:"max=64"`
	BilledTo      document.Party       `json:"billedTo"`
	BilledBy      *document.Party      `json:"billedBy,omitempty"`
	Bank          document.BankDetails `json:"bankDetails"`
	Notes         string               `json:"notes" validate:"max=2000"`
	Terms         string               `json:"terms" validate:"max=2000"`
}

// StatusInput is the body of a status change.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=paid cancelled"`
}

// Preview is a computed, unsaved invoice.
type Preview struct {
	LineItems     []invoice.LineItem  `json:"lineItems"`
	Summary       invoice.Summary     `json:"summary"`
	Display       invoice.Display     `json:"display"`
	GroupValues   invoice.GroupValues `json:"groupValues"`
	Charges       invoice.Charges     `json:"charges"`
	Settings      invoice.Settings    `json:"settings"`
	Perspective   invoice.Perspective `json:"perspective"`
	GroupBy       invoice.GroupKey    `json:"groupBy"`
	ServicePeriod string              `json:"servicePeriod"`
}

// Invoice is the API view of a stored invoice.
type Invoice struct {
	ID            string               `json:"id"`
	Number        string               `json:"number"`
	Status        string               `json:"status"`
	Perspective   string               `json:"perspective"`
	GroupBy       string               `json:"groupBy"`
	InvoiceDate   time.Time            `json:"invoiceDate"`
	DueDate       *time.Time           `json:"dueDate,omitempty"`
	ServicePeriod string               `json:"servicePeriod"`
	BilledTo      document.Party       `json:"billedTo"`
	BilledBy      document.Party       `json:"billedBy"`
	Bank          document.BankDetails `json:"bankDetails"`
	Notes         string               `json:"notes,omitempty"`
	Terms         string               `json:"terms,omitempty"`
	Settings      invoice.Settings     `json:"settings"`
	SameState     bool                 `json:"sameState"`
	GroupValues   invoice.GroupValues  `json:"groupValues"`
	Summary       invoice.Summary      `json:"summary"`
	Display       invoice.Display      `json:"display"`
	LineItems     []invoice.LineItem   `json:"lineItems,omitempty"`
	CreatedBy     string               `json:"createdBy"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// ListResult is a page of invoices.
type ListResult struct {
	Items []Invoice `json:"items"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int64     `json:"total"`
}

func fromRow(row db.Invoice, items []db.InvoiceLineItem) (Invoice, error) {
	out := Invoice{
		ID:            row.ID.String(),
		Number:        row.InvoiceNumber,
		Status:        row.Status,
		Perspective:   row.Perspective,
		GroupBy:       row.GroupBy,
		InvoiceDate:   row.InvoiceDate,
		ServicePeriod: row.ServicePeriod,
		Notes:         row.Notes,
		Terms:         row.Terms,
		SameState:     row.SameState,
		GroupValues:   invoice.GroupValues{Tax: row.GroupTax, Discount: row.GroupDiscount},
		Summary: invoice.Summary{
			Total:             row.Total,
			TotalTax:          row.TotalTax,
			TotalDiscount:     row.TotalDiscount,
			SubTotal:          row.SubTotal,
			MCDCharges:        row.MCDCharges,
			TollCharges:       row.TollCharges,
			AdditionalCharges: row.AdditionalCharges,
			Penalty:           row.Penalty,
			GrandTotal:        row.GrandTotal,
		},
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.DueDate.Valid {
		due := row.DueDate.Time
		out.DueDate = &due
	}
	for _, part := range []struct {
		raw []byte
		dst any
	}{
		{row.BilledTo, &out.BilledTo},
		{row.BilledBy, &out.BilledBy},
		{row.BankDetails, &out.Bank},
		{row.Settings, &out.Settings},
	} {
		if len(part.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(part.raw, part.dst); err != nil {
			return Invoice{}, fmt.Errorf("decode invoice %s: %w", row.ID, err)
		}
	}
	out.Display = invoice.Present(out.Summary, out.Settings, out.SameState)
	if items != nil {
		out.LineItems = make([]invoice.LineItem, 0, len(items))
		for _, li := range items {
			out.LineItems = append(out.LineItems, invoice.LineItem{
				ID:          li.ID.String(),
				Kind:        invoice.ItemKind(li.Kind),
				Name:        li.Name,
				Description: li.Description,
				Rate:        li.Rate,
				Quantity:    li.Quantity,
				Tax:         li.Tax,
				Discount:    li.Discount,
				Amount:      li.Amount,
				TripIDs:     li.TripIDs,
			})
		}
	}
	return out, nil
}

// Document converts the invoice into its printable form.
func (inv Invoice) Document() document.Invoice {
	return document.Invoice{
		Number:        inv.Number,
		Status:        inv.Status,
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       inv.DueDate,
		ServicePeriod: inv.ServicePeriod,
		BilledTo:      inv.BilledTo,
		BilledBy:      inv.BilledBy,
		Bank:          inv.Bank,
		Notes:         inv.Notes,
		Terms:         inv.Terms,
		LineItems:     inv.LineItems,
		Display:       inv.Display,
		RoundOff:      inv.Settings.RoundOff,
	}
}

// ServicePeriod spans the earliest and latest trip dates, e.g. "01-01-2024 to 31-01-2024".
func ServicePeriod(trips []invoice.Trip) string {
	var first, last time.Time
	for _, t := range trips {
		if t.TripDate.IsZero() {
			continue
		}
		if first.IsZero() || t.TripDate.Before(first) {
			first = t.TripDate
		}
		if t.TripDate.After(last) {
			last = t.TripDate
		}
	}
	if first.IsZero() {
		return ""
	}
	return first.Format(dateLayout) + " to " + last.Format(dateLayout)
}
