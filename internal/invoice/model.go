package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GroupKey selects the trip attribute used to partition trips into line items.
type GroupKey string

const (
	GroupByCompanyRate GroupKey = "company_rate"
	GroupByZone        GroupKey = "zone"
	GroupByZoneType    GroupKey = "zone_type"
	GroupByVehicleType GroupKey = "vehicle_type"
)

// ParseGroupKey maps user input to a GroupKey. Unknown values fall back to GroupByCompanyRate.
func ParseGroupKey(raw string) GroupKey {
	switch GroupKey(strings.ToLower(strings.TrimSpace(raw))) {
	case GroupByZone:
		return GroupByZone
	case GroupByZoneType:
		return GroupByZoneType
	case GroupByVehicleType:
		return GroupByVehicleType
	default:
		return GroupByCompanyRate
	}
}

// Perspective picks which of the two rate sets on a trip is billed.
type Perspective string

const (
	PerspectiveCompany      Perspective = "company"
	PerspectiveCounterparty Perspective = "counterparty"
)

// TaxMode decides whether tax is entered per line item or once for the whole invoice.
type TaxMode string

const (
	TaxIndividual TaxMode = "individual"
	TaxGroup      TaxMode = "group"
)

// DiscountMode decides whether and where a discount applies.
type DiscountMode string

const (
	DiscountNone       DiscountMode = "none"
	DiscountIndividual DiscountMode = "individual"
	DiscountGroup      DiscountMode = "group"
)

// DiscountBasis tells whether a discount value is a percentage or a fixed amount.
type DiscountBasis string

const (
	BasisPercentage DiscountBasis = "percentage"
	BasisAmount     DiscountBasis = "amount"
)

// Ref is a named reference attached to a trip (zone, zone type, vehicle type).
type Ref struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Trip is a completed trip as consumed by the engine.
type Trip struct {
	ID                string          `json:"id"`
	TripDate          time.Time       `json:"tripDate"`
	CompanyRate       decimal.Decimal `json:"companyRate"`
	VendorRate        decimal.Decimal `json:"vendorRate"`
	CompanyGuardPrice decimal.Decimal `json:"companyGuardPrice"`
	VendorGuardPrice  decimal.Decimal `json:"vendorGuardPrice"`
	CompanyPenalty    decimal.Decimal `json:"companyPenalty"`
	VendorPenalty     decimal.Decimal `json:"vendorPenalty"`
	AddOnRate         decimal.Decimal `json:"addOnRate"`
	MCDCharge         decimal.Decimal `json:"mcdCharge"`
	TollCharge        decimal.Decimal `json:"tollCharge"`
	Zone              *Ref            `json:"zone,omitempty"`
	ZoneType          *Ref            `json:"zoneType,omitempty"`
	VehicleType       *Ref            `json:"vehicleType,omitempty"`
}

// Rate returns the unit rate billed for the perspective.
func (t Trip) Rate(p Perspective) decimal.Decimal {
	if p == PerspectiveCounterparty {
		return t.VendorRate
	}
	return t.CompanyRate
}

// GuardPrice returns the guard price billed for the perspective.
func (t Trip) GuardPrice(p Perspective) decimal.Decimal {
	if p == PerspectiveCounterparty {
		return t.VendorGuardPrice
	}
	return t.CompanyGuardPrice
}

// Penalty returns the positive penalty magnitude for the perspective.
func (t Trip) Penalty(p Perspective) decimal.Decimal {
	if p == PerspectiveCounterparty {
		return t.VendorPenalty
	}
	return t.CompanyPenalty
}

// Numbering holds the invoice number sequence of a company.
type Numbering struct {
	Prefix     string `json:"prefix" validate:"max=16"`
	NextNumber int64  `json:"nextNumber" validate:"gte=1"`
	Padding    int    `json:"padding" validate:"gte=0,lte=12"`
}

// Format renders number with the configured prefix and zero padding, e.g. INV-000001.
func (n Numbering) Format(number int64) string {
	digits := fmt.Sprintf("%0*d", n.Padding, number)
	prefix := strings.TrimSpace(n.Prefix)
	if prefix == "" {
		return digits
	}
	return prefix + "-" + digits
}

// Settings is the invoice configuration of a company.
type Settings struct {
	TaxMode           TaxMode       `json:"taxMode" validate:"oneof=individual group"`
	DiscountMode      DiscountMode  `json:"discountMode" validate:"oneof=none individual group"`
	DiscountBasis     DiscountBasis `json:"discountBasis" validate:"oneof=percentage amount"`
	RoundOff          bool          `json:"roundOff"`
	AdditionalCharges bool          `json:"additionalCharges"`
	Numbering         Numbering     `json:"numbering"`
}

// DefaultSettings is used when a company has not saved any configuration yet.
func DefaultSettings() Settings {
	return Settings{
		TaxMode:           TaxGroup,
		DiscountMode:      DiscountNone,
		DiscountBasis:     BasisPercentage,
		RoundOff:          false,
		AdditionalCharges: true,
		Numbering:         Numbering{Prefix: "INV", NextNumber: 1, Padding: 6},
	}
}

// ItemKind tells where a line item came from.
type ItemKind string

const (
	KindTrip    ItemKind = "trip"
	KindGuard   ItemKind = "guard"
	KindPenalty ItemKind = "penalty"
	KindCustom  ItemKind = "custom"
)

// LineItem is one billable row of an invoice. Amount always equals Rate times Quantity.
type LineItem struct {
	ID          string          `json:"id"`
	Kind        ItemKind        `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Rate        decimal.Decimal `json:"rate"`
	Quantity    decimal.Decimal `json:"quantity"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Amount      decimal.Decimal `json:"amount"`
	TripIDs     []string        `json:"tripIds"`
}

// GroupValues are the invoice-wide tax percentage and discount used in group modes.
type GroupValues struct {
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
}

// Charges are added on top of the line items. Penalty is stored negated.
type Charges struct {
	MCD        decimal.Decimal `json:"mcd"`
	Toll       decimal.Decimal `json:"toll"`
	Additional decimal.Decimal `json:"additional"`
	Penalty    decimal.Decimal `json:"penalty"`
}

// Summary aggregates the totals of an invoice.
type Summary struct {
	Total             decimal.Decimal `json:"total"`
	TotalTax          decimal.Decimal `json:"totalTax"`
	TotalDiscount     decimal.Decimal `json:"totalDiscount"`
	SubTotal          decimal.Decimal `json:"subTotal"`
	MCDCharges        decimal.Decimal `json:"mcdCharges"`
	TollCharges       decimal.Decimal `json:"tollCharges"`
	AdditionalCharges decimal.Decimal `json:"additionalCharges"`
	Penalty           decimal.Decimal `json:"penalty"`
	GrandTotal        decimal.Decimal `json:"grandTotal"`
}
