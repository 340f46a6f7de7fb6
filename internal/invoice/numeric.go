package invoice

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Bounds of an accepted number: at most maxIntDigits digits before the point and
// maxScale after it. Anything outside is treated like any other garbage input.
const (
	maxIntDigits = 18
	maxScale     = 12
)

// SafeNumber converts loosely typed input into a decimal. Anything that is not a finite
// number (nil, NaN, Inf, empty or non-numeric strings, booleans, objects) becomes zero.
func SafeNumber(v any) decimal.Decimal {
	return bounded(parse(v))
}

func parse(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero
		}
		return *n
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	case uint32:
		return decimal.NewFromInt(int64(n))
	case json.Number:
		return fromString(n.String())
	case string:
		return fromString(n)
	case json.RawMessage:
		return fromRaw(n)
	default:
		return decimal.Zero
	}
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func fromString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func fromRaw(raw json.RawMessage) decimal.Decimal {
	if len(bytes.TrimSpace(raw)) == 0 {
		return decimal.Zero
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return decimal.Zero
	}
	return parse(v)
}

// bounded zeroes values too large for money and rounds away digits beyond maxScale.
// The exponent is checked before any arithmetic, since shopspring rescales through
// a big.Int of 10^|exp| and panics when exponents overflow int32.
func bounded(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	exp := int64(d.Exponent())
	digits := int64(d.NumDigits())
	if exp < -(maxScale+maxIntDigits+1) || digits+exp > maxIntDigits || digits > maxIntDigits+maxScale+1 {
		return decimal.Zero
	}
	if exp < -maxScale {
		return d.Round(maxScale)
	}
	return d
}
