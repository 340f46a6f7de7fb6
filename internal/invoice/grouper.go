package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const unknownLabel = "Unknown"

// Bucket is a set of trips that will become one line item.
type Bucket struct {
	Key      string
	Kind     ItemKind
	Label    string
	Rate     decimal.Decimal
	Quantity int
	TripIDs  []string
}

// Description renders the "{qty} items @ {rate}" text shown under the line item name.
func (b Bucket) Description() string {
	return describe(decimal.NewFromInt(int64(b.Quantity)), b.Rate)
}

func describe(qty, rate decimal.Decimal) string {
	return fmt.Sprintf("%s items @ %s", qty.String(), rate.Abs().String())
}

// Group partitions trips by key. Buckets come back in the order their first trip was seen.
// The unit rate of a bucket is the rate of its first trip for the perspective.
// Company-rate buckets are labelled "Trip {n} ({vehicle})" with n their 1-based position;
// other keys suffix colliding labels with (1), (2), ...
func Group(trips []Trip, key GroupKey, p Perspective) []Bucket {
	buckets := make([]Bucket, 0)
	index := make(map[string]int)
	for _, trip := range trips {
		label := groupLabel(trip, key)
		secondary := ""
		if key == GroupByCompanyRate {
			label = label + "\x00" + trip.CompanyRate.String()
		} else {
			secondary = trip.CompanyRate.String()
		}
		partition := string(key) + "|" + label + "|" + secondary
		if i, ok := index[partition]; ok {
			buckets[i].Quantity++
			buckets[i].TripIDs = append(buckets[i].TripIDs, trip.ID)
			continue
		}
		index[partition] = len(buckets)
		buckets = append(buckets, Bucket{
			Key:      partition,
			Kind:     KindTrip,
			Label:    strings.SplitN(label, "\x00", 2)[0],
			Rate:     trip.Rate(p),
			Quantity: 1,
			TripIDs:  []string{trip.ID},
		})
	}
	if key == GroupByCompanyRate {
		for i := range buckets {
			buckets[i].Label = fmt.Sprintf("Trip %d (%s)", i+1, buckets[i].Label)
		}
		return buckets
	}
	disambiguate(buckets)
	return buckets
}

// GuardBuckets groups trips by their non-zero guard price.
func GuardBuckets(trips []Trip, p Perspective) []Bucket {
	return sideBuckets(trips, KindGuard, "Guard Price", func(t Trip) decimal.Decimal { return t.GuardPrice(p) }, false)
}

// PenaltyBuckets groups trips by their non-zero penalty. Bucket rates are negated.
func PenaltyBuckets(trips []Trip, p Perspective) []Bucket {
	return sideBuckets(trips, KindPenalty, "Penalty", func(t Trip) decimal.Decimal { return t.Penalty(p) }, true)
}

func sideBuckets(trips []Trip, kind ItemKind, title string, value func(Trip) decimal.Decimal, negate bool) []Bucket {
	buckets := make([]Bucket, 0)
	index := make(map[string]int)
	for _, trip := range trips {
		v := value(trip)
		if v.IsZero() {
			continue
		}
		// String drops trailing zeros, so 50 and 50.00 share a bucket
		k := v.String()
		if i, ok := index[k]; ok {
			buckets[i].Quantity++
			buckets[i].TripIDs = append(buckets[i].TripIDs, trip.ID)
			continue
		}
		rate := v
		if negate {
			rate = v.Abs().Neg()
		}
		index[k] = len(buckets)
		buckets = append(buckets, Bucket{
			Key:      string(kind) + "|" + k,
			Kind:     kind,
			Label:    fmt.Sprintf("%s (%s)", title, v.Abs().String()),
			Rate:     rate,
			Quantity: 1,
			TripIDs:  []string{trip.ID},
		})
	}
	return buckets
}

func groupLabel(t Trip, key GroupKey) string {
	vehicle := refName(t.VehicleType)
	switch key {
	case GroupByZone:
		return fmt.Sprintf("%s (%s)", refName(t.Zone), vehicle)
	case GroupByZoneType:
		return fmt.Sprintf("%s (%s)", refName(t.ZoneType), vehicle)
	case GroupByVehicleType:
		return vehicle
	default:
		return vehicle
	}
}

func refName(r *Ref) string {
	if r == nil {
		return unknownLabel
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return unknownLabel
	}
	return name
}

// disambiguate suffixes labels shared by more than one bucket with (1), (2), ... in encounter order.
func disambiguate(buckets []Bucket) {
	counts := make(map[string]int, len(buckets))
	for _, b := range buckets {
		counts[b.Label]++
	}
	seen := make(map[string]int, len(counts))
	for i := range buckets {
		label := buckets[i].Label
		if counts[label] < 2 {
			continue
		}
		seen[label]++
		buckets[i].Label = fmt.Sprintf("%s (%d)", label, seen[label])
	}
}
