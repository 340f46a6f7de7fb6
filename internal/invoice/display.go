package invoice

import "github.com/shopspring/decimal"

// GSTSplit is the presentation of total tax as CGST+SGST (same state) or IGST.
type GSTSplit struct {
	SameState bool   `json:"sameState"`
	CGST      string `json:"cgst"`
	SGST      string `json:"sgst"`
	IGST      string `json:"igst"`
}

// Display holds formatted copies of a summary. It never feeds back into computation.
type Display struct {
	Total             string   `json:"total"`
	TotalTax          string   `json:"totalTax"`
	TotalDiscount     string   `json:"totalDiscount"`
	SubTotal          string   `json:"subTotal"`
	MCDCharges        string   `json:"mcdCharges"`
	TollCharges       string   `json:"tollCharges"`
	AdditionalCharges string   `json:"additionalCharges"`
	Penalty           string   `json:"penalty"`
	GrandTotal        string   `json:"grandTotal"`
	GST               GSTSplit `json:"gst"`
}

// FormatAmount renders a value for display: ceiling when round off is on, two decimals otherwise.
func FormatAmount(v decimal.Decimal, roundOff bool) string {
	if roundOff {
		return v.Ceil().String()
	}
	return v.StringFixed(2)
}

// Present formats a summary according to the round-off policy and splits tax for GST.
func Present(sum Summary, s Settings, sameState bool) Display {
	f := func(v decimal.Decimal) string { return FormatAmount(v, s.RoundOff) }
	gst := GSTSplit{SameState: sameState, CGST: f(decimal.Zero), SGST: f(decimal.Zero), IGST: f(decimal.Zero)}
	if sameState {
		half := sum.TotalTax.Div(decimal.NewFromInt(2))
		gst.CGST = f(half)
		gst.SGST = f(half)
	} else {
		gst.IGST = f(sum.TotalTax)
	}
	return Display{
		Total:             f(sum.Total),
		TotalTax:          f(sum.TotalTax),
		TotalDiscount:     f(sum.TotalDiscount),
		SubTotal:          f(sum.SubTotal),
		MCDCharges:        f(sum.MCDCharges),
		TollCharges:       f(sum.TollCharges),
		AdditionalCharges: f(sum.AdditionalCharges),
		Penalty:           f(sum.Penalty),
		GrandTotal:        f(sum.GrandTotal),
		GST:               gst,
	}
}
