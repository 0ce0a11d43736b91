// Package source defines the ports through which sales and collections are
// read and recorded, plus the JSON decoding shared by its adapters.
package source

import (
	"context"

	"cobros/internal/core"
)

// Payments is a batch of normalized payments with the counters collected
// while normalizing them.
type Payments struct {
	Records     []core.Payment
	Diagnostics core.Diagnostics
}

// Sales is a batch of normalized sales.
type Sales struct {
	Records     []core.Sale
	Diagnostics core.Diagnostics
}

// Page is one slice of the paginated collections listing.
type Page struct {
	Payments
	Offset  int
	Limit   int
	HasMore bool
}

// Ports for outbound adapters.
type (
	// PaymentPager lists collections page by page, newest first.
	PaymentPager interface {
		ListPaymentsPage(ctx context.Context, offset, limit int) (Page, error)
	}

	// PaymentLister returns every collection inside the window. The result
	// must be complete; chart totals depend on it.
	PaymentLister interface {
		ListPayments(ctx context.Context, w core.Window) (Payments, error)
	}

	SaleLister interface {
		ListSales(ctx context.Context, w core.Window) (Sales, error)
	}

	// PaymentWriter persists a new collection and returns its reference.
	PaymentWriter interface {
		RecordPayment(ctx context.Context, p core.Payment) (ref string, err error)
	}
)

// Normalize clamps pagination parameters to sane values.
func Normalize(offset, limit, maxLimit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 10
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit
}
