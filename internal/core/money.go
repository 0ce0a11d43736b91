// Package core provides the domain records shared by the aggregation
// engines together with the coercion helpers that normalize them.
//
// This file contains the Money type and the functions that turn loosely
// typed amounts into cents.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. Sums of Money are exact.
type Money struct {
	Cents int64
}

// MaxCents is the largest amount a single record may carry. Larger values
// are treated as malformed so that sums over many records stay within int64.
const MaxCents int64 = 10_000_000_000_000

var hundred = decimal.NewFromInt(100)

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Cents > 0
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in currency units for display purposes.
// Use Cents for calculations.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount with two decimals, e.g. "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string. Anything else
// decodes to zero, matching the permissive read path.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*m, _ = ToNonNegativeMoney(raw)
	return nil
}

// FormatSoles formats cents as a display string, e.g. "S/ 1,234.50".
func FormatSoles(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	s := b.String() + "." + leftPad2(cents%100)
	if neg {
		return "-S/ " + s
	}
	return "S/ " + s
}

func leftPad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

// ParseDecimalToCents converts a decimal string typed by an operator into
// cents with half-up rounding on the third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for malformed or negative input and for amounts
// above MaxCents. Zero is allowed
// because a collection may leave some of its components empty.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("") -> 0, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents, ok := toCents(d)
	if !ok {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ToNonNegativeMoney coerces a loosely typed amount into Money.
//
// Missing, non-numeric, negative, non-finite or oversized values default to
// zero; the boolean reports whether the value was usable as given. A nil
// value is treated as an absent field and reported as usable.
func ToNonNegativeMoney(v any) (Money, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch val := v.(type) {
	case nil:
		return Money{}, true
	case Money:
		if val.Cents < 0 || val.Cents > MaxCents {
			return Money{}, false
		}
		return val, true
	case decimal.Decimal:
		d = val
	case json.Number:
		d, err = decimal.NewFromString(val.String())
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return Money{}, true
		}
		d, err = decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return Money{}, false
		}
		d = decimal.NewFromFloat(val)
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Money{}, false
		}
		d = decimal.NewFromFloat32(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case int64:
		d = decimal.NewFromInt(val)
	case int32:
		d = decimal.NewFromInt32(val)
	default:
		return Money{}, false
	}
	if err != nil {
		return Money{}, false
	}
	cents, ok := toCents(d)
	if !ok {
		return Money{}, false
	}
	return Money{Cents: cents}, true
}

// toCents rounds half-up to two decimals and rejects negative values and
// values above MaxCents.
func toCents(d decimal.Decimal) (int64, bool) {
	if d.IsNegative() {
		return 0, false
	}
	scaled := d.Mul(hundred).Round(0)
	if scaled.GreaterThan(maxCents) {
		return 0, false
	}
	return scaled.IntPart(), true
}

var maxCents = decimal.NewFromInt(MaxCents)
