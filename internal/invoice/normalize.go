package invoice

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// itemNamespace seeds the deterministic ids of bucket-derived line items.
var itemNamespace = uuid.MustParse("6f1c8a52-3d0e-4b7a-9c51-2e8f7d4a0b13")

// Normalize turns a bucket into a line item. Tax and discount start at zero in
// individual mode and mirror the group values in group mode.
func Normalize(b Bucket, s Settings, g GroupValues) LineItem {
	item := LineItem{
		ID:          uuid.NewSHA1(itemNamespace, []byte(b.Key)).String(),
		Kind:        b.Kind,
		Name:        b.Label,
		Description: b.Description(),
		Rate:        b.Rate,
		Quantity:    decimal.NewFromInt(int64(b.Quantity)),
		TripIDs:     append([]string(nil), b.TripIDs...),
	}
	item = mirrorGroupValues(item, s, g)
	return withAmount(item)
}

// AddBlankLineItem creates an empty custom row with rate 0 and quantity 1.
func AddBlankLineItem(g GroupValues, s Settings) LineItem {
	return blankItem(uuid.NewString(), s, g)
}

func blankItem(id string, s Settings, g GroupValues) LineItem {
	item := LineItem{
		ID:       id,
		Kind:     KindCustom,
		Rate:     decimal.Zero,
		Quantity: decimal.NewFromInt(1),
		TripIDs:  []string{},
	}
	item = mirrorGroupValues(item, s, g)
	return withAmount(item)
}

// ApplyGroupValues re-applies the group tax and discount to every item. Items keep their
// own values for the modes that are individual.
func ApplyGroupValues(items []LineItem, s Settings, g GroupValues) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = withAmount(mirrorGroupValues(item, s, g))
	}
	return out
}

// ItemEdit is a user change to one line item. Nil fields are left untouched; numeric
// fields accept anything SafeNumber does.
type ItemEdit struct {
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Rate        any     `json:"rate,omitempty"`
	Quantity    any     `json:"quantity,omitempty"`
	Tax         any     `json:"tax,omitempty"`
	Discount    any     `json:"discount,omitempty"`
	Remove      bool    `json:"remove,omitempty"`
}

// ApplyEdit applies e to item and recomputes the amount. Penalty amounts stay
// negative whatever signs the edit carries. Bucket items get a fresh
// "{qty} items @ {rate}" description after a rate or quantity change unless the
// edit sets its own.
func ApplyEdit(item LineItem, e ItemEdit) LineItem {
	if e.Name != nil {
		item.Name = *e.Name
	}
	if e.Rate != nil {
		item.Rate = SafeNumber(e.Rate)
	}
	if e.Quantity != nil {
		item.Quantity = SafeNumber(e.Quantity)
	}
	if e.Tax != nil {
		item.Tax = SafeNumber(e.Tax)
	}
	if e.Discount != nil {
		item.Discount = SafeNumber(e.Discount)
	}
	if item.Kind == KindPenalty {
		item.Rate = item.Rate.Abs().Neg()
		item.Quantity = item.Quantity.Abs()
	}
	switch {
	case e.Description != nil:
		item.Description = *e.Description
	case item.Kind != KindCustom && (e.Rate != nil || e.Quantity != nil):
		item.Description = describe(item.Quantity, item.Rate)
	}
	return withAmount(item)
}

func mirrorGroupValues(item LineItem, s Settings, g GroupValues) LineItem {
	if s.TaxMode == TaxGroup {
		item.Tax = g.Tax
	}
	switch s.DiscountMode {
	case DiscountGroup:
		item.Discount = g.Discount
	case DiscountNone:
		item.Discount = decimal.Zero
	}
	return item
}

func withAmount(item LineItem) LineItem {
	item.Amount = item.Rate.Mul(item.Quantity)
	return item
}
