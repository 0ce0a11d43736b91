package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cobros/internal/core"
	applog "cobros/internal/log"
	"cobros/internal/source"
)

// SQLiteRepository persists sales and collections in SQLite. Dates are
// stored as Unix milliseconds and read back in the configured location.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	loc     *time.Location
	logger  *applog.Logger
}

// NewSQLiteRepository opens dbPath, creating its directory, and applies
// pending migrations.
func NewSQLiteRepository(dbPath string, loc *time.Location, logger *applog.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent inserts.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentStorage)

	schema, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("SQLite schema ready",
		applog.FieldOperation, applog.OpMigrate,
		"version", schema.Version,
		"applied", schema.Applied,
		"path", dbPath)

	if loc == nil {
		loc = time.UTC
	}
	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		loc:     loc,
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RecordPayment implements source.PaymentWriter.
func (r *SQLiteRepository) RecordPayment(ctx context.Context, p core.Payment) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := r.queries.InsertPayment(ctx, paymentToRow(p)); err != nil {
		return "", fmt.Errorf("insert payment: %w", err)
	}

	r.logger.InfoContext(ctx, "Payment saved to SQLite", applog.NewFields().WithPayment(p).ToSlice()...)
	return p.ID, nil
}

// Import stores seed records in one transaction, skipping IDs that already
// exist. Records without an ID get a fresh one. Payments are kept even
// without a collaborator because charts count them; such sales are skipped.
func (r *SQLiteRepository) Import(ctx context.Context, payments []core.Payment, sales []core.Sale) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	inserted := 0
	for _, p := range payments {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		n, err := q.UpsertPayment(ctx, paymentToRow(p))
		if err != nil {
			return 0, fmt.Errorf("import payment %s: %w", p.ID, err)
		}
		inserted += int(n)
	}
	for _, s := range sales {
		if s.Collaborator.ID == "" {
			continue
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		n, err := q.UpsertSale(ctx, saleToRow(s))
		if err != nil {
			return 0, fmt.Errorf("import sale %s: %w", s.ID, err)
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

// ListPaymentsPage implements source.PaymentPager.
func (r *SQLiteRepository) ListPaymentsPage(ctx context.Context, offset, limit int) (source.Page, error) {
	offset, limit = source.Normalize(offset, limit, 0)
	rows, err := r.queries.ListPaymentsPage(ctx, int64(limit+1), int64(offset))
	if err != nil {
		return source.Page{}, fmt.Errorf("list payments page: %w", err)
	}

	page := source.Page{Offset: offset, Limit: limit}
	if len(rows) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}
	page.Records = make([]core.Payment, 0, len(rows))
	for _, row := range rows {
		page.Records = append(page.Records, r.rowToPayment(row))
	}
	return page, nil
}

// ListPayments implements source.PaymentLister.
func (r *SQLiteRepository) ListPayments(ctx context.Context, w core.Window) (source.Payments, error) {
	from, to := windowMillis(w)
	rows, err := r.queries.ListPaymentsBetween(ctx, from, to)
	if err != nil {
		return source.Payments{}, fmt.Errorf("list payments: %w", err)
	}
	var diag core.Diagnostics
	out := make([]core.Payment, 0, len(rows))
	for _, row := range rows {
		if row.DateDefaulted {
			diag.DefaultedDates++
		}
		out = append(out, r.rowToPayment(row))
	}
	return source.Payments{Records: out, Diagnostics: diag}, nil
}

// ListSales implements source.SaleLister.
func (r *SQLiteRepository) ListSales(ctx context.Context, w core.Window) (source.Sales, error) {
	from, to := windowMillis(w)
	rows, err := r.queries.ListSalesBetween(ctx, from, to)
	if err != nil {
		return source.Sales{}, fmt.Errorf("list sales: %w", err)
	}
	var diag core.Diagnostics
	out := make([]core.Sale, 0, len(rows))
	for _, row := range rows {
		if row.DateDefaulted {
			diag.DefaultedDates++
		}
		out = append(out, core.Sale{
			ID:           row.ID,
			Collaborator: core.CollaboratorRef{ID: row.CollaboratorID, Name: row.CollaboratorName},
			Product:      core.ProductRef{ID: row.ProductID, Name: row.ProductName},
			Date:         time.UnixMilli(row.SoldAtMs).In(r.loc),
			Quantity:     int(row.Quantity),
			Total:        core.Money{Cents: row.TotalCents},

			DateDefaulted: row.DateDefaulted,
		})
	}
	return source.Sales{Records: out, Diagnostics: diag}, nil
}

// windowMillis converts a window to inclusive millisecond bounds. Open
// sides become the extremes of int64.
func windowMillis(w core.Window) (int64, int64) {
	from, to := int64(math.MinInt64), int64(math.MaxInt64)
	if !w.Start.IsZero() {
		from = w.Start.UnixMilli()
	}
	if !w.End.IsZero() {
		to = w.End.UnixMilli()
	}
	return from, to
}

func paymentToRow(p core.Payment) PaymentRow {
	return PaymentRow{
		ID:               p.ID,
		SaleID:           p.SaleID,
		CollaboratorID:   p.Collaborator.ID,
		CollaboratorName: p.Collaborator.Name,
		PaidAtMs:         p.Date.UnixMilli(),
		DigitalCents:     p.Digital.Cents,
		CashCents:        p.Cash.Cents,
		IncidentalCents:  p.Incidental.Cents,
		Status:           string(p.Status),
		DateDefaulted:    p.DateDefaulted,
	}
}

func saleToRow(s core.Sale) SaleRow {
	return SaleRow{
		ID:               s.ID,
		CollaboratorID:   s.Collaborator.ID,
		CollaboratorName: s.Collaborator.Name,
		ProductID:        s.Product.ID,
		ProductName:      s.Product.Name,
		SoldAtMs:         s.Date.UnixMilli(),
		Quantity:         int64(s.Quantity),
		TotalCents:       s.Total.Cents,
		DateDefaulted:    s.DateDefaulted,
	}
}

func (r *SQLiteRepository) rowToPayment(row PaymentRow) core.Payment {
	return core.Payment{
		ID:           row.ID,
		SaleID:       row.SaleID,
		Collaborator: core.CollaboratorRef{ID: row.CollaboratorID, Name: row.CollaboratorName},
		Date:         time.UnixMilli(row.PaidAtMs).In(r.loc),
		Digital:      core.Money{Cents: row.DigitalCents},
		Cash:         core.Money{Cents: row.CashCents},
		Incidental:   core.Money{Cents: row.IncidentalCents},
		Status:       core.PaymentStatus(row.Status),

		DateDefaulted: row.DateDefaulted,
	}
}
