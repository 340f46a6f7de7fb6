package invoice

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func settingsWith(tax TaxMode, discount DiscountMode, basis DiscountBasis) Settings {
	s := DefaultSettings()
	s.TaxMode = tax
	s.DiscountMode = discount
	s.DiscountBasis = basis
	return s
}

func item(rate, qty, tax, discount string) LineItem {
	return withAmount(LineItem{Rate: dec(rate), Quantity: dec(qty), Tax: dec(tax), Discount: dec(discount)})
}

func TestComputeTotalsDiscountTable(t *testing.T) {
	items := []LineItem{
		item("100", "2", "5", "10"),
		item("50", "1", "0", "4"),
	}
	g := GroupValues{Tax: dec("10"), Discount: dec("20")}
	cases := []struct {
		name     string
		settings Settings
		discount string
		tax      string
	}{
		{"individual none", settingsWith(TaxIndividual, DiscountNone, BasisAmount), "0", "10"},
		{"individual percent", settingsWith(TaxIndividual, DiscountIndividual, BasisPercentage), "22", "10"},
		{"individual amount", settingsWith(TaxIndividual, DiscountIndividual, BasisAmount), "14", "10"},
		{"group percent", settingsWith(TaxIndividual, DiscountGroup, BasisPercentage), "50", "10"},
		{"group amount", settingsWith(TaxIndividual, DiscountGroup, BasisAmount), "20", "10"},
		{"group tax", settingsWith(TaxGroup, DiscountGroup, BasisAmount), "20", "25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sum := ComputeTotals(items, tc.settings, g, Charges{})
			require.True(t, sum.Total.Equal(dec("250")), "total %s", sum.Total)
			require.True(t, sum.TotalDiscount.Equal(dec(tc.discount)), "discount %s", sum.TotalDiscount)
			require.True(t, sum.TotalTax.Equal(dec(tc.tax)), "tax %s", sum.TotalTax)
			require.True(t, sum.SubTotal.Equal(sum.Total.Sub(sum.TotalDiscount)))
		})
	}
}

func TestComputeTotalsIgnoresStoredAmount(t *testing.T) {
	stale := LineItem{Rate: dec("10"), Quantity: dec("3"), Amount: dec("999")}
	sum := ComputeTotals([]LineItem{stale}, DefaultSettings(), GroupValues{}, Charges{})
	if !sum.Total.Equal(dec("30")) {
		t.Fatalf("expected total 30, got %s", sum.Total)
	}
}

func TestComputeTotalsCharges(t *testing.T) {
	items := []LineItem{item("100", "1", "0", "0")}
	c := Charges{MCD: dec("5"), Toll: dec("7"), Additional: dec("3"), Penalty: dec("-10")}
	sum := ComputeTotals(items, settingsWith(TaxGroup, DiscountNone, BasisPercentage), GroupValues{}, c)
	if !sum.GrandTotal.Equal(dec("105")) {
		t.Fatalf("expected grand total 105, got %s", sum.GrandTotal)
	}

	positive := c
	positive.Penalty = dec("10")
	sum = ComputeTotals(items, settingsWith(TaxGroup, DiscountNone, BasisPercentage), GroupValues{}, positive)
	if !sum.Penalty.Equal(dec("-10")) || !sum.GrandTotal.Equal(dec("105")) {
		t.Fatalf("expected positive penalty to be subtracted, got penalty=%s grand=%s", sum.Penalty, sum.GrandTotal)
	}

	off := settingsWith(TaxGroup, DiscountNone, BasisPercentage)
	off.AdditionalCharges = false
	sum = ComputeTotals(items, off, GroupValues{}, c)
	if !sum.GrandTotal.Equal(dec("90")) {
		t.Fatalf("expected charges to be dropped when disabled, got %s", sum.GrandTotal)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	sum := ComputeTotals(nil, DefaultSettings(), GroupValues{Tax: dec("18")}, Charges{})
	for name, v := range map[string]decimal.Decimal{
		"total": sum.Total, "tax": sum.TotalTax, "discount": sum.TotalDiscount,
		"subTotal": sum.SubTotal, "grandTotal": sum.GrandTotal,
	} {
		if !v.IsZero() {
			t.Fatalf("expected %s to be zero, got %s", name, v)
		}
	}
}

func TestSafeNumber(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "0"},
		{"abc", "0"},
		{"", "0"},
		{"  12.5 ", "12.5"},
		{math.NaN(), "0"},
		{math.Inf(1), "0"},
		{float64(3.25), "3.25"},
		{7, "7"},
		{json.Number("42"), "42"},
		{json.Number("x"), "0"},
		{json.RawMessage(`"15"`), "15"},
		{json.RawMessage(`{"a":1}`), "0"},
		{true, "0"},
		{dec("1.10"), "1.1"},
	}
	for _, tc := range cases {
		got := SafeNumber(tc.in)
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("SafeNumber(%#v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestSafeNumberOutOfRange(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"1e2000000000", "0"},
		{"1e900000000", "0"},
		{"-1e-900000000", "0"},
		{json.Number("1e18"), "0"},
		{"999999999999999999", "999999999999999999"},
		{"1e17", "100000000000000000"},
		{"0.1234567890123456", "0.123456789012"},
		{"1e-40", "0"},
		{float64(1e300), "0"},
		{int64(math.MaxInt64), "0"},
		{json.RawMessage(`"1e2147483647"`), "0"},
	}
	for _, tc := range cases {
		got := SafeNumber(tc.in)
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("SafeNumber(%#v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestComputeInvoiceHugeEditsDoNotPanic(t *testing.T) {
	s := DefaultSettings()
	s.RoundOff = true
	res := ComputeInvoice(nil, s, Edits{
		GroupTax: "1e900000000",
		Added: []ItemEdit{
			{Rate: "1e2000000000", Quantity: "1e2000000000"},
			{Rate: "1e900000000", Quantity: "-1e-900000000", Tax: "0.5"},
			{Rate: "999999999999999999", Quantity: "999999999999999999", Tax: "100", Discount: "1e-12"},
		},
		Charges: &ChargeEdits{MCD: "1e999999999", Penalty: json.Number("-1e2000000000")},
	})
	require.Len(t, res.LineItems, 3)
	require.True(t, res.LineItems[0].Amount.IsZero())
	require.True(t, res.LineItems[1].Amount.IsZero())
	require.True(t, res.Summary.MCDCharges.IsZero())
	require.True(t, res.Summary.Penalty.IsZero())
	require.NotEmpty(t, Present(res.Summary, s, true).GrandTotal)
	s.RoundOff = false
	require.NotEmpty(t, Present(res.Summary, s, false).GrandTotal)
}

func TestPresentRoundOffAndGST(t *testing.T) {
	sum := Summary{Total: dec("100.2"), TotalTax: dec("18.3"), GrandTotal: dec("118.5")}
	s := DefaultSettings()

	s.RoundOff = true
	d := Present(sum, s, true)
	require.Equal(t, "119", d.GrandTotal)
	require.Equal(t, "10", d.GST.CGST)
	require.Equal(t, "10", d.GST.SGST)
	require.Equal(t, "0", d.GST.IGST)

	s.RoundOff = false
	d = Present(sum, s, false)
	require.Equal(t, "118.50", d.GrandTotal)
	require.Equal(t, "18.30", d.GST.IGST)
	require.Equal(t, "0.00", d.GST.CGST)

	require.True(t, sum.GrandTotal.Equal(dec("118.5")), "presentation must not mutate the summary")
}

func TestNumberingFormat(t *testing.T) {
	n := Numbering{Prefix: "INV", Padding: 6}
	if got := n.Format(1); got != "INV-000001" {
		t.Fatalf("unexpected number %q", got)
	}
	if got := (Numbering{Padding: 0}).Format(12); got != "12" {
		t.Fatalf("unexpected number without prefix %q", got)
	}
}
