package core

// Diagnostics counts the records that were defaulted or dropped instead of
// failing a computation.
type Diagnostics struct {
	DefaultedDates          int `json:"defaultedDates"`
	DefaultedAmounts        int `json:"defaultedAmounts"`
	DroppedRecords          int `json:"droppedRecords"`
	UnresolvedCollaborators int `json:"unresolvedCollaborators"`
}

// Merge adds the counters of o into d.
func (d *Diagnostics) Merge(o Diagnostics) {
	d.DefaultedDates += o.DefaultedDates
	d.DefaultedAmounts += o.DefaultedAmounts
	d.DroppedRecords += o.DroppedRecords
	d.UnresolvedCollaborators += o.UnresolvedCollaborators
}

// Empty reports whether nothing was defaulted or dropped.
func (d Diagnostics) Empty() bool {
	return d == Diagnostics{}
}

func (d *Diagnostics) money(v any) Money {
	m, ok := ToNonNegativeMoney(v)
	if !ok {
		d.DefaultedAmounts++
	}
	return m
}
