package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"cobros/internal/cache"
	"cobros/internal/core"
	"cobros/internal/debt"
	applog "cobros/internal/log"
	"cobros/internal/source"
	"cobros/internal/timeseries"
)

// DashboardSource is what the dashboard reads from a backend.
type DashboardSource interface {
	source.PaymentLister
	source.SaleLister
}

// Chart is a collections chart together with what was defaulted or
// dropped while building it.
type Chart struct {
	timeseries.Result
	Diagnostics core.Diagnostics `json:"diagnostics"`
}

// DebtReport is the pending-debt listing for a window.
type DebtReport struct {
	Summaries   []debt.Summary   `json:"deudas"`
	Total       core.Money       `json:"total"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Diagnostics core.Diagnostics `json:"diagnostics"`
}

// DashboardOptions configures memoization.
type DashboardOptions struct {
	CacheSize int
	CacheTTL  time.Duration
	Strict    bool
	Now       func() time.Time
	Location  *time.Location
}

// DashboardService computes charts and debt reports on demand. Results are
// memoized per calendar day of the clock; concurrent identical requests
// share one computation.
type DashboardService struct {
	source DashboardSource
	opts   DashboardOptions
	logger *applog.Logger

	charts     *cache.LRUCache[Chart]
	debts      *cache.LRUCache[DebtReport]
	group      singleflight.Group
	generation atomic.Uint64
}

func NewDashboardService(src DashboardSource, opts DashboardOptions, logger *applog.Logger) *DashboardService {
	if opts.CacheSize < 1 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &DashboardService{
		source: src,
		opts:   opts,
		logger: logger.WithComponent(applog.ComponentCollections),
		charts: cache.NewLRUCache[Chart](opts.CacheSize, opts.CacheTTL),
		debts:  cache.NewLRUCache[DebtReport](opts.CacheSize, opts.CacheTTL),
	}
}

// Strict reports whether diagnostics are surfaced to callers.
func (s *DashboardService) Strict() bool {
	return s.opts.Strict
}

// Now returns the service clock in the configured location.
func (s *DashboardService) Now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// Caches exposes the memo caches for periodic expiry.
func (s *DashboardService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.charts, s.debts}
}

// Invalidate drops every memoized result. Computations already in flight
// finish but their results are not stored.
func (s *DashboardService) Invalidate() {
	s.generation.Add(1)
	s.charts.Purge()
	s.debts.Purge()
}

// CollectionsChart aggregates the collections of rng into chart buckets.
// Records without a usable date are placed at the service clock.
func (s *DashboardService) CollectionsChart(ctx context.Context, rng core.TimeRange) (Chart, error) {
	now := s.Now()
	gen := s.generation.Load()
	key := fmt.Sprintf("chart:%s:%s:%d", rng, core.DayKey(now), gen)

	if c, ok := s.charts.Get(key); ok {
		s.logger.DebugContext(ctx, "Chart served from cache", applog.FieldRange, string(rng), applog.FieldCacheHit, true)
		return c, nil
	}

	v, err, _ := s.do(ctx, key, func(ctx context.Context) (any, error) {
		w := timeseries.FetchWindow(rng, now)
		batch, err := s.source.ListPayments(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("load payments: %w", err)
		}

		records := core.AnchorPaymentDates(batch.Records, now)
		res, diag := timeseries.AggregateWithDiagnostics(records, rng, now)
		diag.Merge(batch.Diagnostics)
		chart := Chart{Result: res, Diagnostics: diag}

		s.report(ctx, applog.OpChart, diag, applog.FieldRange, string(res.Range), applog.FieldRecords, len(batch.Records))
		if s.generation.Load() == gen {
			s.charts.Set(key, chart)
		}
		return chart, nil
	})
	if err != nil {
		return Chart{}, err
	}
	return v.(Chart), nil
}

// PendingDebts reconciles sales against collections inside w.
func (s *DashboardService) PendingDebts(ctx context.Context, w core.Window) (DebtReport, error) {
	now := s.Now()
	gen := s.generation.Load()
	key := fmt.Sprintf("debts:%s:%s:%s:%d", boundKey(w.Start), boundKey(w.End), core.DayKey(now), gen)

	if r, ok := s.debts.Get(key); ok {
		s.logger.DebugContext(ctx, "Debts served from cache", applog.FieldCacheHit, true)
		return r, nil
	}

	v, err, _ := s.do(ctx, key, func(ctx context.Context) (any, error) {
		var (
			sales    source.Sales
			payments source.Payments
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			sales, err = s.source.ListSales(gctx, w)
			if err != nil {
				return fmt.Errorf("load sales: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			payments, err = s.source.ListPayments(gctx, w)
			if err != nil {
				return fmt.Errorf("load payments: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		summaries, diag := debt.ReconcileWithDiagnostics(
			core.AnchorSaleDates(sales.Records, now),
			core.AnchorPaymentDates(payments.Records, now),
			w,
		)
		diag.Merge(sales.Diagnostics)
		diag.Merge(payments.Diagnostics)
		report := DebtReport{
			Summaries:   summaries,
			Total:       debt.Total(summaries),
			GeneratedAt: now,
			Diagnostics: diag,
		}

		s.report(ctx, applog.OpReconcile, diag, applog.FieldRecords, len(summaries))
		if s.generation.Load() == gen {
			s.debts.Set(key, report)
		}
		return report, nil
	})
	if err != nil {
		return DebtReport{}, err
	}
	return v.(DebtReport), nil
}

// do collapses concurrent calls for key. The shared computation is not
// cancelled when one of the waiting callers goes away.
func (s *DashboardService) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(shared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	}
}

func (s *DashboardService) report(ctx context.Context, op string, diag core.Diagnostics, args ...any) {
	fields := applog.NewFields().WithOperation(op).WithDiagnostics(diag).ToSlice()
	if s.opts.Strict && !diag.Empty() {
		s.logger.WarnContext(ctx, "Input records were defaulted or dropped", append(fields, args...)...)
		return
	}
	s.logger.DebugContext(ctx, "Dashboard computed", append(fields, args...)...)
}

func boundKey(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return fmt.Sprintf("%d", t.UnixMilli())
}
