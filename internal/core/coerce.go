package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// dateOnlyLayouts carry a calendar day and no time of day.
var dateOnlyLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

// dateLayouts are tried in order. Layouts without a zone are interpreted in
// the location of the reference time.
var dateLayouts = append([]string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}, dateOnlyLayouts...)

// IsDateOnly reports whether s is a calendar day in one of the accepted
// layouts, without a time of day.
func IsDateOnly(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateOnlyLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// ToDateOrNow coerces a loosely typed date into a time in now's location.
//
// Accepted inputs are time.Time, ISO-like strings, DD/MM/YYYY strings and
// Unix milliseconds. Missing or unparseable values fall back to now; the
// boolean reports whether the value was usable as given.
func ToDateOrNow(v any, now time.Time) (time.Time, bool) {
	loc := now.Location()
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return now, false
		}
		return val.In(loc), true
	case *time.Time:
		if val == nil || val.IsZero() {
			return now, false
		}
		return val.In(loc), true
	case string:
		if t, ok := parseDateString(val, loc); ok {
			return t, true
		}
	case json.Number:
		if ms, err := val.Int64(); err == nil && ms > 0 {
			return time.UnixMilli(ms).In(loc), true
		}
	case float64:
		if val > 0 {
			return time.UnixMilli(int64(val)).In(loc), true
		}
	case int64:
		if val > 0 {
			return time.UnixMilli(val).In(loc), true
		}
	}
	return now, false
}

func parseDateString(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc), true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).In(loc), true
	}
	return time.Time{}, false
}

// ToQuantity coerces a loosely typed quantity into a non-negative integer.
// Fractions are truncated; anything unusable becomes zero.
func ToQuantity(v any) (int, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case int:
		if val < 0 {
			return 0, false
		}
		return val, true
	case json.Number:
		if i, err := val.Int64(); err == nil && i >= 0 {
			return int(i), true
		}
		if f, err := val.Float64(); err == nil && f >= 0 {
			return int(f), true
		}
	case float64:
		if val >= 0 {
			return int(val), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && i >= 0 {
			return i, true
		}
	}
	return 0, false
}
