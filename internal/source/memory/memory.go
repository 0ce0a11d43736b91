// Package memory is an in-process data source seeded from JSON files.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"cobros/internal/core"
	"cobros/internal/source"
)

// Store keeps sales and collections in memory.
type Store struct {
	mu       sync.RWMutex
	payments []core.Payment
	sales    []core.Sale
	seed     core.Diagnostics
}

func New(payments []core.Payment, sales []core.Sale) *Store {
	return &Store{
		payments: append([]core.Payment(nil), payments...),
		sales:    append([]core.Sale(nil), sales...),
	}
}

// NewFromFiles seeds the store from payments.json and sales.json in dir.
// Missing files leave the corresponding collection empty; malformed
// records are normalized against now.
func NewFromFiles(dir string, now time.Time) (*Store, error) {
	s := &Store{}

	if f, err := openOptional(filepath.Join(dir, "payments.json")); err != nil {
		return nil, err
	} else if f != nil {
		defer f.Close()
		got, err := source.DecodePayments(f, now)
		if err != nil {
			return nil, fmt.Errorf("seed payments: %w", err)
		}
		s.payments = got.Records
		s.seed.Merge(got.Diagnostics)
	}

	if f, err := openOptional(filepath.Join(dir, "sales.json")); err != nil {
		return nil, err
	} else if f != nil {
		defer f.Close()
		got, err := source.DecodeSales(f, now)
		if err != nil {
			return nil, fmt.Errorf("seed sales: %w", err)
		}
		s.sales = got.Records
		s.seed.Merge(got.Diagnostics)
	}
	return s, nil
}

func openOptional(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// SeedDiagnostics reports what was defaulted while loading the seed files.
func (s *Store) SeedDiagnostics() core.Diagnostics {
	return s.seed
}

// RecordPayment stores the payment and returns its ID, or a synthetic
// reference when it has none.
func (s *Store) RecordPayment(_ context.Context, p core.Payment) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, p)
	if p.ID != "" {
		return p.ID, nil
	}
	return fmt.Sprintf("mem:%d", len(s.payments)), nil
}

// AddSale stores a sale.
func (s *Store) AddSale(_ context.Context, sale core.Sale) error {
	if sale.Collaborator.ID == "" {
		return core.ErrEmptyCollaborator
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale)
	return nil
}

// ListPaymentsPage returns payments newest first.
func (s *Store) ListPaymentsPage(_ context.Context, offset, limit int) (source.Page, error) {
	offset, limit = source.Normalize(offset, limit, 0)

	s.mu.RLock()
	sorted := append([]core.Payment(nil), s.payments...)
	s.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	page := source.Page{Offset: offset, Limit: limit}
	if offset >= len(sorted) {
		page.Records = []core.Payment{}
		return page, nil
	}
	end := min(offset+limit, len(sorted))
	page.Records = sorted[offset:end]
	page.HasMore = end < len(sorted)
	return page, nil
}

// ListPayments returns the payments inside w. Payments with a defaulted
// date are always returned; the caller anchors them at its own clock.
func (s *Store) ListPayments(_ context.Context, w core.Window) (source.Payments, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var diag core.Diagnostics
	out := make([]core.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		switch {
		case p.DateDefaulted:
			diag.DefaultedDates++
		case !w.Contains(p.Date):
			continue
		}
		out = append(out, p)
	}
	return source.Payments{Records: out, Diagnostics: diag}, nil
}

// ListSales follows the same rule as ListPayments.
func (s *Store) ListSales(_ context.Context, w core.Window) (source.Sales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var diag core.Diagnostics
	out := make([]core.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		switch {
		case sale.DateDefaulted:
			diag.DefaultedDates++
		case !w.Contains(sale.Date):
			continue
		}
		out = append(out, sale)
	}
	return source.Sales{Records: out, Diagnostics: diag}, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
