package invoice

import "github.com/shopspring/decimal"

// ComputeTotals recomputes the invoice summary from scratch. Item amounts are taken
// from rate and quantity, never from the stored Amount field.
//
// Tax is always multiplicative: tax% x amount / 100 per item in individual mode, and
// total x groupTax / 100 in group mode. The discount basis is ignored when discounts
// are disabled.
func ComputeTotals(items []LineItem, s Settings, g GroupValues, c Charges) Summary {
	total := decimal.Zero
	itemTax := decimal.Zero
	itemDiscount := decimal.Zero
	for _, item := range items {
		amount := SafeNumber(item.Rate).Mul(SafeNumber(item.Quantity))
		total = total.Add(amount)
		itemTax = itemTax.Add(percentOf(amount, item.Tax))
		if s.DiscountBasis == BasisAmount {
			itemDiscount = itemDiscount.Add(SafeNumber(item.Discount))
		} else {
			itemDiscount = itemDiscount.Add(percentOf(amount, item.Discount))
		}
	}

	var tax decimal.Decimal
	switch s.TaxMode {
	case TaxGroup:
		tax = percentOf(total, g.Tax)
	default:
		tax = itemTax
	}

	var discount decimal.Decimal
	switch s.DiscountMode {
	case DiscountIndividual:
		discount = itemDiscount
	case DiscountGroup:
		if s.DiscountBasis == BasisAmount {
			discount = SafeNumber(g.Discount)
		} else {
			discount = percentOf(total, g.Discount)
		}
	default:
		discount = decimal.Zero
	}

	if !s.AdditionalCharges {
		c.MCD, c.Toll, c.Additional = decimal.Zero, decimal.Zero, decimal.Zero
	}
	penalty := SafeNumber(c.Penalty)
	if penalty.IsPositive() {
		penalty = penalty.Neg()
	}

	subTotal := total.Sub(discount)
	grand := subTotal.
		Add(tax).
		Add(SafeNumber(c.MCD)).
		Add(SafeNumber(c.Toll)).
		Add(SafeNumber(c.Additional)).
		Add(penalty)

	return Summary{
		Total:             total,
		TotalTax:          tax,
		TotalDiscount:     discount,
		SubTotal:          subTotal,
		MCDCharges:        SafeNumber(c.MCD),
		TollCharges:       SafeNumber(c.Toll),
		AdditionalCharges: SafeNumber(c.Additional),
		Penalty:           penalty,
		GrandTotal:        grand,
	}
}

// ChargesFromTrips sums the per-trip extras billed on top of the line items.
// Trip penalties are billed through penalty line items and are not included here.
func ChargesFromTrips(trips []Trip) Charges {
	var c Charges
	for _, t := range trips {
		c.Additional = c.Additional.Add(t.AddOnRate)
		c.MCD = c.MCD.Add(t.MCDCharge)
		c.Toll = c.Toll.Add(t.TollCharge)
	}
	return c
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	if pct.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(pct).Div(hundred)
}
