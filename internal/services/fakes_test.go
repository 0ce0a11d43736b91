package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"cobros/internal/amqp"
	"cobros/internal/core"
	"cobros/internal/source"
)

type fakeStore struct {
	mu       sync.Mutex
	saved    []core.Payment
	ref      string
	err      error
	page     source.Page
	pageArgs [2]int
}

func (f *fakeStore) RecordPayment(_ context.Context, p core.Payment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, p)
	return f.ref, nil
}

func (f *fakeStore) ListPaymentsPage(_ context.Context, offset, limit int) (source.Page, error) {
	f.pageArgs = [2]int{offset, limit}
	return f.page, f.err
}

type fakePublisher struct {
	msgs []*amqp.PaymentRecordedMessage
	err  error
}

func (f *fakePublisher) PublishPaymentRecorded(_ context.Context, msg *amqp.PaymentRecordedMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

type fakeSource struct {
	payments     source.Payments
	sales        source.Sales
	err          error
	paymentCalls atomic.Int32
	salesCalls   atomic.Int32
	gate         chan struct{}
	lastWindow   core.Window
	mu           sync.Mutex
}

var errBackend = errors.New("backend down")

func (f *fakeSource) ListPayments(ctx context.Context, w core.Window) (source.Payments, error) {
	f.paymentCalls.Add(1)
	f.mu.Lock()
	f.lastWindow = w
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return source.Payments{}, f.err
	}
	var out source.Payments
	out.Diagnostics = f.payments.Diagnostics
	for _, p := range f.payments.Records {
		if w.Contains(p.Date) {
			out.Records = append(out.Records, p)
		}
	}
	return out, nil
}

func (f *fakeSource) ListSales(_ context.Context, w core.Window) (source.Sales, error) {
	f.salesCalls.Add(1)
	if f.err != nil {
		return source.Sales{}, f.err
	}
	var out source.Sales
	out.Diagnostics = f.sales.Diagnostics
	for _, s := range f.sales.Records {
		if w.Contains(s.Date) {
			out.Records = append(out.Records, s)
		}
	}
	return out, nil
}
