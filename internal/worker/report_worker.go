// Package worker refreshes the published debt report.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cobros/internal/amqp"
	"cobros/internal/core"
	applog "cobros/internal/log"
	"cobros/internal/report"
	"cobros/internal/services"
)

// DebtSource computes the pending-debt report.
type DebtSource interface {
	PendingDebts(ctx context.Context, w core.Window) (services.DebtReport, error)
	Invalidate()
}

// ReportWorker rewrites the debt report after each recorded collection and
// on a fixed interval, in case messages were lost.
type ReportWorker struct {
	debts    DebtSource
	writer   report.Writer
	interval time.Duration
	logger   *applog.Logger

	mu       sync.Mutex
	lastSent time.Time
}

func NewReportWorker(debts DebtSource, writer report.Writer, interval time.Duration, logger *applog.Logger) *ReportWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ReportWorker{
		debts:    debts,
		writer:   writer,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Refresh recomputes the unbounded report and writes it.
func (w *ReportWorker) Refresh(ctx context.Context) error {
	rep, err := w.debts.PendingDebts(ctx, core.Unbounded())
	if err != nil {
		return fmt.Errorf("compute debts: %w", err)
	}

	if err := w.writer.WriteDebtReport(ctx, report.DebtReport{
		GeneratedAt: rep.GeneratedAt,
		Summaries:   rep.Summaries,
		Total:       rep.Total,
	}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	w.mu.Lock()
	w.lastSent = rep.GeneratedAt
	w.mu.Unlock()

	fields := applog.NewFields().WithOperation(applog.OpExport).WithDiagnostics(rep.Diagnostics)
	w.logger.InfoContext(ctx, "Debt report refreshed",
		append(fields.ToSlice(), applog.FieldRecords, len(rep.Summaries))...)
	return nil
}

// HandlePaymentRecorded is the AMQP handler. The worker's own memo is
// dropped first since the collection was written by another process.
func (w *ReportWorker) HandlePaymentRecorded(ctx context.Context, msg *amqp.PaymentRecordedMessage) error {
	w.logger.InfoContext(ctx, "Processing payment recorded message",
		applog.FieldPaymentID, msg.PaymentID,
		applog.FieldCollaboratorID, msg.CollaboratorID)

	w.debts.Invalidate()
	return w.Refresh(ctx)
}

// LastRefresh reports the generation time of the last written report.
func (w *ReportWorker) LastRefresh() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSent
}

// Run refreshes once at startup and then on every tick until ctx ends.
// Failures are logged and retried on the next tick.
func (w *ReportWorker) Run(ctx context.Context) {
	if err := w.Refresh(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup report refresh failed", "error", err)
	}
	if w.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.debts.Invalidate()
			if err := w.Refresh(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic report refresh failed", "error", err)
			}
		}
	}
}
