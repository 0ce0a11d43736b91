package core

import (
	"strings"
	"time"
)

const (
	RangeDay        TimeRange = "day"
	RangeWeek       TimeRange = "week"
	RangeMonth      TimeRange = "month"
	RangeYear       TimeRange = "year"
	RangeHistorical TimeRange = "historical"
)

// TimeRange names a charting period relative to now.
type TimeRange string

var rangeAliases = map[string]TimeRange{
	"day":        RangeDay,
	"dia":        RangeDay,
	"día":        RangeDay,
	"today":      RangeDay,
	"hoy":        RangeDay,
	"week":       RangeWeek,
	"semana":     RangeWeek,
	"month":      RangeMonth,
	"mes":        RangeMonth,
	"year":       RangeYear,
	"anio":       RangeYear,
	"año":        RangeYear,
	"historical": RangeHistorical,
	"historico":  RangeHistorical,
	"histórico":  RangeHistorical,
	"all":        RangeHistorical,
}

// ParseTimeRange maps user input to a TimeRange. Unknown values fall back
// to RangeHistorical; the error reports the fallback without being fatal.
func ParseTimeRange(s string) (TimeRange, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return RangeHistorical, nil
	}
	if r, ok := rangeAliases[key]; ok {
		return r, nil
	}
	return RangeHistorical, ErrInvalidRange
}

// IsValid reports whether r is one of the known ranges.
func (r TimeRange) IsValid() bool {
	switch r {
	case RangeDay, RangeWeek, RangeMonth, RangeYear, RangeHistorical:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (r TimeRange) String() string {
	return string(r)
}

// DayKey identifies the calendar day of t, used to scope memoized results
// that depend on the current moment.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
