package timeseries

import (
	"fmt"
	"time"

	"cobros/internal/core"
)

var (
	weekdayShort = [7]string{"Lun", "Mar", "Mié", "Jue", "Vie", "Sáb", "Dom"}
	monthShort   = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}
)

// Bucket is one slot on the chart axis.
type Bucket struct {
	Key   string
	Label string
}

// Span is the filter window of a range. Start is always inclusive.
type Span struct {
	Start        time.Time
	End          time.Time
	InclusiveEnd bool
}

// Contains reports whether t falls inside the span.
func (s Span) Contains(t time.Time) bool {
	if t.Before(s.Start) {
		return false
	}
	if s.InclusiveEnd {
		return !t.After(s.End)
	}
	return t.Before(s.End)
}

// SpanFor returns the filter window of rng anchored at now. The boolean is
// false for the historical range, which does not filter.
func SpanFor(rng core.TimeRange, now time.Time) (Span, bool) {
	loc := now.Location()
	y, m, d := now.Date()
	switch rng {
	case core.RangeDay:
		return Span{
			Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, d+1, 0, 0, 0, 0, loc),
		}, true
	case core.RangeWeek:
		monday := d - mondayOffset(now)
		return Span{
			Start: time.Date(y, m, monday, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, monday+7, 0, 0, 0, 0, loc),
		}, true
	case core.RangeMonth:
		return Span{
			Start:        time.Date(y, m, 1, 0, 0, 0, 0, loc),
			End:          time.Date(y, m+1, 1, 0, 0, 0, 0, loc).Add(-time.Millisecond),
			InclusiveEnd: true,
		}, true
	case core.RangeYear:
		return Span{
			Start: time.Date(y, 1, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y+1, 1, 1, 0, 0, 0, 0, loc),
		}, true
	default:
		return Span{}, false
	}
}

// FetchWindow converts the span of rng into the inclusive window used to
// query a data source. Historical ranges are unbounded.
func FetchWindow(rng core.TimeRange, now time.Time) core.Window {
	span, ok := SpanFor(rng, now)
	if !ok {
		return core.Unbounded()
	}
	end := span.End
	if !span.InclusiveEnd {
		end = end.Add(-time.Millisecond)
	}
	return core.Window{Start: span.Start, End: end}
}

// Buckets generates the ordered axis for rng anchored at now.
func Buckets(rng core.TimeRange, now time.Time) []Bucket {
	loc := now.Location()
	y, m, d := now.Date()

	switch rng {
	case core.RangeDay:
		out := make([]Bucket, 0, 24)
		for h := 0; h < 24; h++ {
			out = append(out, Bucket{
				Key:   hourKey(y, m, d, h),
				Label: fmt.Sprintf("%02d:00", h),
			})
		}
		return out

	case core.RangeWeek:
		monday := d - mondayOffset(now)
		out := make([]Bucket, 0, 7)
		for i := 0; i < 7; i++ {
			day := time.Date(y, m, monday+i, 0, 0, 0, 0, loc)
			dy, dm, dd := day.Date()
			out = append(out, Bucket{
				Key:   dayKey(dy, dm, dd),
				Label: fmt.Sprintf("%s %02d", weekdayShort[i], dd),
			})
		}
		return out

	case core.RangeMonth:
		days := time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
		out := make([]Bucket, 0, days)
		for dd := 1; dd <= days; dd++ {
			out = append(out, Bucket{
				Key:   dayKey(y, m, dd),
				Label: fmt.Sprintf("%02d", dd),
			})
		}
		return out

	case core.RangeYear:
		out := make([]Bucket, 0, 12)
		for mm := time.January; mm <= time.December; mm++ {
			out = append(out, Bucket{
				Key:   monthKey(y, mm),
				Label: monthShort[mm-1],
			})
		}
		return out

	default:
		// Trailing twelve months ending with the month of now.
		out := make([]Bucket, 0, 12)
		for i := 11; i >= 0; i-- {
			first := time.Date(y, m-time.Month(i), 1, 0, 0, 0, 0, loc)
			fy, fm, _ := first.Date()
			out = append(out, Bucket{
				Key:   monthKey(fy, fm),
				Label: fmt.Sprintf("%s %d", monthShort[fm-1], fy),
			})
		}
		return out
	}
}

// KeyFor derives the bucket key of t for rng. t must already be expressed
// in the location the buckets were generated in.
func KeyFor(rng core.TimeRange, t time.Time) string {
	y, m, d := t.Date()
	switch rng {
	case core.RangeDay:
		return hourKey(y, m, d, t.Hour())
	case core.RangeWeek, core.RangeMonth:
		return dayKey(y, m, d)
	default:
		return monthKey(y, m)
	}
}

// mondayOffset is the number of days since the most recent Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func hourKey(y int, m time.Month, d, h int) string {
	return fmt.Sprintf("%04d-%02d-%02d-%02d", y, int(m), d, h)
}

func dayKey(y int, m time.Month, d int) string {
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

func monthKey(y int, m time.Month) string {
	return fmt.Sprintf("%04d-%02d", y, int(m))
}
