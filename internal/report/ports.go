// Package report renders the pending-debt report and defines where it is
// written.
package report

import (
	"context"
	"time"

	"cobros/internal/core"
	"cobros/internal/debt"
)

// DebtReport is one snapshot of outstanding debts.
type DebtReport struct {
	GeneratedAt time.Time
	Summaries   []debt.Summary
	Total       core.Money
}

// Writer replaces the published report with a new snapshot.
type Writer interface {
	WriteDebtReport(ctx context.Context, r DebtReport) error
}
