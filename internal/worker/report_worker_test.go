package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cobros/internal/amqp"
	"cobros/internal/core"
	"cobros/internal/debt"
	"cobros/internal/report"
	"cobros/internal/report/memory"
	"cobros/internal/services"
)

var generated = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

type fakeDebts struct {
	mu          sync.Mutex
	calls       int
	invalidated int
	windows     []core.Window
	err         error
}

func (f *fakeDebts) PendingDebts(_ context.Context, w core.Window) (services.DebtReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.windows = append(f.windows, w)
	if f.err != nil {
		return services.DebtReport{}, f.err
	}
	return services.DebtReport{
		GeneratedAt: generated,
		Summaries:   []debt.Summary{{CollaboratorID: "c1", OutstandingDebt: core.Money{Cents: 500}}},
		Total:       core.Money{Cents: 500},
	}, nil
}

func (f *fakeDebts) Invalidate() {
	f.mu.Lock()
	f.invalidated++
	f.mu.Unlock()
}

func (f *fakeDebts) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.invalidated
}

type failingWriter struct{}

func (failingWriter) WriteDebtReport(context.Context, report.DebtReport) error {
	return errors.New("quota exceeded")
}

func TestRefreshWritesUnboundedReport(t *testing.T) {
	debts := &fakeDebts{}
	out := memory.New()
	w := NewReportWorker(debts, out, 0, nil)

	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	rows, n := out.Last()
	if n != 1 || len(rows) != 4 || rows[1][1] != "c1" {
		t.Fatalf("unexpected report rows %v", rows)
	}
	if !debts.windows[0].IsUnbounded() {
		t.Fatalf("report must cover every record, got %+v", debts.windows[0])
	}
	if !w.LastRefresh().Equal(generated) {
		t.Fatalf("unexpected last refresh %v", w.LastRefresh())
	}
}

func TestRefreshErrors(t *testing.T) {
	w := NewReportWorker(&fakeDebts{err: errors.New("db down")}, memory.New(), 0, nil)
	if err := w.Refresh(context.Background()); err == nil {
		t.Fatalf("expected compute error")
	}

	w = NewReportWorker(&fakeDebts{}, failingWriter{}, 0, nil)
	if err := w.Refresh(context.Background()); err == nil {
		t.Fatalf("expected write error")
	}
	if !w.LastRefresh().IsZero() {
		t.Fatalf("failed writes must not update the last refresh")
	}
}

func TestHandlePaymentRecordedInvalidatesFirst(t *testing.T) {
	debts := &fakeDebts{}
	w := NewReportWorker(debts, memory.New(), 0, nil)

	if err := w.HandlePaymentRecorded(context.Background(), &amqp.PaymentRecordedMessage{PaymentID: "p1"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	calls, invalidated := debts.counts()
	if calls != 1 || invalidated != 1 {
		t.Fatalf("expected one invalidation and one refresh, got %d/%d", invalidated, calls)
	}
}

func TestRunRefreshesOnTicks(t *testing.T) {
	debts := &fakeDebts{}
	out := memory.New()
	w := NewReportWorker(debts, out, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, n := out.Last(); n >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if _, n := out.Last(); n < 3 {
		t.Fatalf("expected startup and periodic refreshes, got %d", n)
	}
}
