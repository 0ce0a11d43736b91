// Package debt reconciles sales against collections per collaborator.
package debt

import (
	"sort"

	"cobros/internal/core"
)

// ProductLine accumulates what a collaborator sold of one product.
type ProductLine struct {
	Quantity    int        `json:"quantity"`
	TotalAmount core.Money `json:"totalAmount"`
}

// Summary is the outstanding balance of one collaborator.
type Summary struct {
	CollaboratorID   string                 `json:"collaboratorId"`
	CollaboratorName string                 `json:"collaboratorName"`
	Products         map[string]ProductLine `json:"products"`
	TotalSold        core.Money             `json:"totalSold"`
	TotalPaid        core.Money             `json:"totalPaid"`
	OutstandingDebt  core.Money             `json:"outstandingDebt"`
}

// Reconcile returns the collaborators with a strictly positive outstanding
// debt, largest first. Records outside window are ignored; pass
// core.Unbounded() to include everything.
func Reconcile(sales []core.Sale, payments []core.Payment, window core.Window) []Summary {
	out, _ := ReconcileWithDiagnostics(sales, payments, window)
	return out
}

// ReconcileWithDiagnostics is Reconcile plus counters for the records that
// were skipped. Equal debts keep the order in which their collaborators
// first appeared among the sales.
func ReconcileWithDiagnostics(sales []core.Sale, payments []core.Payment, window core.Window) ([]Summary, core.Diagnostics) {
	var diag core.Diagnostics
	summaries := make([]Summary, 0)
	index := make(map[string]int)

	for _, s := range sales {
		if s.Collaborator.ID == "" {
			diag.UnresolvedCollaborators++
			continue
		}
		if !window.Contains(s.Date) {
			continue
		}
		i, ok := index[s.Collaborator.ID]
		if !ok {
			i = len(summaries)
			index[s.Collaborator.ID] = i
			summaries = append(summaries, Summary{
				CollaboratorID:   s.Collaborator.ID,
				CollaboratorName: s.Collaborator.DisplayName(),
				Products:         make(map[string]ProductLine),
			})
		}
		sum := &summaries[i]
		if sum.CollaboratorName == sum.CollaboratorID && s.Collaborator.Name != "" {
			sum.CollaboratorName = s.Collaborator.Name
		}
		sum.TotalSold = sum.TotalSold.Add(s.Total)

		name := s.Product.DisplayName()
		line := sum.Products[name]
		line.Quantity += s.Quantity
		line.TotalAmount = line.TotalAmount.Add(s.Total)
		sum.Products[name] = line
	}

	for _, p := range payments {
		if p.Collaborator.ID == "" {
			diag.UnresolvedCollaborators++
			continue
		}
		if !window.Contains(p.Date) {
			continue
		}
		i, ok := index[p.Collaborator.ID]
		if !ok {
			// A payment cannot create debt on its own.
			diag.DroppedRecords++
			continue
		}
		summaries[i].TotalPaid = summaries[i].TotalPaid.Add(p.TotalPaid())
	}

	out := summaries[:0]
	for _, s := range summaries {
		s.OutstandingDebt = s.TotalSold.Sub(s.TotalPaid)
		if s.OutstandingDebt.IsPositive() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].OutstandingDebt.Cents > out[b].OutstandingDebt.Cents
	})
	return out, diag
}

// Total sums the outstanding debt of every summary.
func Total(summaries []Summary) core.Money {
	var sum core.Money
	for _, s := range summaries {
		sum = sum.Add(s.OutstandingDebt)
	}
	return sum
}
