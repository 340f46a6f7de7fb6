package invoice

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ChargeEdits overrides the charges derived from trips. Nil fields keep the derived value.
type ChargeEdits struct {
	MCD        any `json:"mcd,omitempty"`
	Toll       any `json:"toll,omitempty"`
	Additional any `json:"additional,omitempty"`
	Penalty    any `json:"penalty,omitempty"`
}

// Edits is the caller-owned session state layered over the trip-derived line items.
type Edits struct {
	GroupBy       GroupKey     `json:"groupBy"`
	Perspective   Perspective  `json:"perspective"`
	GroupTax      any          `json:"groupTax,omitempty"`
	GroupDiscount any          `json:"groupDiscount,omitempty"`
	Items         []ItemEdit   `json:"items,omitempty"`
	Added         []ItemEdit   `json:"added,omitempty"`
	Charges       *ChargeEdits `json:"charges,omitempty"`
}

// GroupValues returns the numeric group tax and discount of the edits.
func (e Edits) GroupValues() GroupValues {
	return GroupValues{Tax: SafeNumber(e.GroupTax), Discount: SafeNumber(e.GroupDiscount)}
}

// Result is the output of ComputeInvoice.
type Result struct {
	LineItems   []LineItem  `json:"lineItems"`
	Summary     Summary     `json:"summary"`
	GroupValues GroupValues `json:"groupValues"`
	Charges     Charges     `json:"charges"`
}

// ComputeInvoice derives line items and totals from trips, settings and edits.
// It is a pure function: the same arguments always produce the same result.
func ComputeInvoice(trips []Trip, s Settings, e Edits) Result {
	p := e.Perspective
	if p != PerspectiveCounterparty {
		p = PerspectiveCompany
	}
	g := e.GroupValues()

	buckets := Group(trips, ParseGroupKey(string(e.GroupBy)), p)
	buckets = append(buckets, GuardBuckets(trips, p)...)
	buckets = append(buckets, PenaltyBuckets(trips, p)...)

	edits := make(map[string]ItemEdit, len(e.Items))
	for _, edit := range e.Items {
		edits[edit.ID] = edit
	}

	items := make([]LineItem, 0, len(buckets)+len(e.Added))
	ids := make(map[string]struct{}, len(buckets)+len(e.Added))
	for _, b := range buckets {
		item := Normalize(b, s, g)
		ids[item.ID] = struct{}{}
		if edit, ok := edits[item.ID]; ok {
			if edit.Remove {
				continue
			}
			item = ApplyEdit(item, edit)
		}
		items = append(items, item)
	}
	for i, added := range e.Added {
		id := addedID(added.ID, i, ids)
		ids[id] = struct{}{}
		if added.Remove {
			continue
		}
		items = append(items, ApplyEdit(blankItem(id, s, g), added))
	}
	items = ApplyGroupValues(items, s, g)

	charges := ChargesFromTrips(trips)
	if c := e.Charges; c != nil {
		if c.MCD != nil {
			charges.MCD = SafeNumber(c.MCD)
		}
		if c.Toll != nil {
			charges.Toll = SafeNumber(c.Toll)
		}
		if c.Additional != nil {
			charges.Additional = SafeNumber(c.Additional)
		}
		if c.Penalty != nil {
			charges.Penalty = SafeNumber(c.Penalty)
		}
	}

	return Result{
		LineItems:   items,
		Summary:     ComputeTotals(items, s, g, charges),
		GroupValues: g,
		Charges:     charges,
	}
}

// addedID returns the id of the i-th added row. UUIDs are canonicalised; missing
// ids and ids already taken by a bucket or an earlier row are replaced by a
// deterministic one derived from the position.
func addedID(raw string, i int, taken map[string]struct{}) string {
	id := strings.TrimSpace(raw)
	if u, err := uuid.Parse(id); err == nil {
		id = u.String()
	}
	if _, dup := taken[id]; id != "" && !dup {
		return id
	}
	seed := "custom|" + strconv.Itoa(i)
	for n := 0; ; n++ {
		id = uuid.NewSHA1(itemNamespace, []byte(seed)).String()
		if _, dup := taken[id]; !dup {
			return id
		}
		seed = "custom|" + strconv.Itoa(i) + "|" + strconv.Itoa(n)
	}
}
