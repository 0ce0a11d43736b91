// Package timeseries groups collections into time buckets for charting.
package timeseries

import (
	"time"

	"cobros/internal/core"
)

// Result holds chart-ready series. All four series are aligned with Labels.
type Result struct {
	Range      core.TimeRange `json:"range"`
	Labels     []string       `json:"labels"`
	Total      []core.Money   `json:"total"`
	Digital    []core.Money   `json:"digital"`
	Cash       []core.Money   `json:"cash"`
	Incidental []core.Money   `json:"incidental"`
}

// Sum returns the grand total across every bucket.
func (r Result) Sum() core.Money {
	var sum core.Money
	for _, m := range r.Total {
		sum = sum.Add(m)
	}
	return sum
}

// Aggregate buckets payments for rng anchored at now. It never fails:
// unknown ranges are treated as historical and payments outside the axis
// are skipped.
func Aggregate(payments []core.Payment, rng core.TimeRange, now time.Time) Result {
	res, _ := AggregateWithDiagnostics(payments, rng, now)
	return res
}

// AggregateWithDiagnostics is Aggregate plus a count of payments that passed
// the range filter but matched no bucket.
func AggregateWithDiagnostics(payments []core.Payment, rng core.TimeRange, now time.Time) (Result, core.Diagnostics) {
	var diag core.Diagnostics
	if !rng.IsValid() {
		rng = core.RangeHistorical
	}

	buckets := Buckets(rng, now)
	n := len(buckets)
	res := Result{
		Range:      rng,
		Labels:     make([]string, n),
		Total:      make([]core.Money, n),
		Digital:    make([]core.Money, n),
		Cash:       make([]core.Money, n),
		Incidental: make([]core.Money, n),
	}
	index := make(map[string]int, n)
	for i, b := range buckets {
		res.Labels[i] = b.Label
		index[b.Key] = i
	}

	span, bounded := SpanFor(rng, now)
	loc := now.Location()
	for _, p := range payments {
		if bounded && !span.Contains(p.Date) {
			continue
		}
		i, ok := index[KeyFor(rng, p.Date.In(loc))]
		if !ok {
			diag.DroppedRecords++
			continue
		}
		res.Digital[i] = res.Digital[i].Add(p.Digital)
		res.Cash[i] = res.Cash[i].Add(p.Cash)
		res.Incidental[i] = res.Incidental[i].Add(p.Incidental)
		res.Total[i] = res.Digital[i].Add(res.Cash[i]).Add(res.Incidental[i])
	}
	return res, diag
}
