// Package memory keeps the latest debt report in process. It stands in for
// the spreadsheet when none is configured.
package memory

import (
	"context"
	"sync"

	"cobros/internal/report"
)

type Writer struct {
	mu     sync.Mutex
	last   [][]any
	writes int
}

var _ report.Writer = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

func (w *Writer) WriteDebtReport(_ context.Context, r report.DebtReport) error {
	rows := report.Rows(r)
	w.mu.Lock()
	w.last = rows
	w.writes++
	w.mu.Unlock()
	return nil
}

// Last returns the rows of the latest report and how many were written.
func (w *Writer) Last() ([][]any, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.writes
}
