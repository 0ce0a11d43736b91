package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the statements used by the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx runs the same statements inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type PaymentRow struct {
	ID               string
	SaleID           string
	CollaboratorID   string
	CollaboratorName string
	PaidAtMs         int64
	DigitalCents     int64
	CashCents        int64
	IncidentalCents  int64
	Status           string
	DateDefaulted    bool
}

type SaleRow struct {
	ID               string
	CollaboratorID   string
	CollaboratorName string
	ProductID        string
	ProductName      string
	SoldAtMs         int64
	Quantity         int64
	TotalCents       int64
	DateDefaulted    bool
}

const insertPayment = `
INSERT INTO payments (id, sale_id, collaborator_id, collaborator_name, paid_at_ms,
    digital_cents, cash_cents, incidental_cents, status, date_defaulted)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertPayment(ctx context.Context, p PaymentRow) error {
	_, err := q.db.ExecContext(ctx, insertPayment,
		p.ID, p.SaleID, p.CollaboratorID, p.CollaboratorName, p.PaidAtMs,
		p.DigitalCents, p.CashCents, p.IncidentalCents, p.Status, p.DateDefaulted)
	return err
}

const upsertPayment = `
INSERT INTO payments (id, sale_id, collaborator_id, collaborator_name, paid_at_ms,
    digital_cents, cash_cents, incidental_cents, status, date_defaulted)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`

func (q *Queries) UpsertPayment(ctx context.Context, p PaymentRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, upsertPayment,
		p.ID, p.SaleID, p.CollaboratorID, p.CollaboratorName, p.PaidAtMs,
		p.DigitalCents, p.CashCents, p.IncidentalCents, p.Status, p.DateDefaulted)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const upsertSale = `
INSERT INTO sales (id, collaborator_id, collaborator_name, product_id, product_name,
    sold_at_ms, quantity, total_cents, date_defaulted)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`

func (q *Queries) UpsertSale(ctx context.Context, s SaleRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, upsertSale,
		s.ID, s.CollaboratorID, s.CollaboratorName, s.ProductID, s.ProductName,
		s.SoldAtMs, s.Quantity, s.TotalCents, s.DateDefaulted)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const paymentColumns = `id, sale_id, collaborator_id, collaborator_name, paid_at_ms,
    digital_cents, cash_cents, incidental_cents, status, date_defaulted`

const listPaymentsBetween = `
SELECT ` + paymentColumns + `
FROM payments
WHERE (paid_at_ms >= ? AND paid_at_ms <= ?) OR date_defaulted = 1
ORDER BY paid_at_ms ASC, rowid ASC
`

func (q *Queries) ListPaymentsBetween(ctx context.Context, fromMs, toMs int64) ([]PaymentRow, error) {
	rows, err := q.db.QueryContext(ctx, listPaymentsBetween, fromMs, toMs)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

const listPaymentsPage = `
SELECT ` + paymentColumns + `
FROM payments
ORDER BY paid_at_ms DESC, rowid ASC
LIMIT ? OFFSET ?
`

func (q *Queries) ListPaymentsPage(ctx context.Context, limit, offset int64) ([]PaymentRow, error) {
	rows, err := q.db.QueryContext(ctx, listPaymentsPage, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

const listSalesBetween = `
SELECT id, collaborator_id, collaborator_name, product_id, product_name,
    sold_at_ms, quantity, total_cents, date_defaulted
FROM sales
WHERE (sold_at_ms >= ? AND sold_at_ms <= ?) OR date_defaulted = 1
ORDER BY sold_at_ms ASC, rowid ASC
`

func (q *Queries) ListSalesBetween(ctx context.Context, fromMs, toMs int64) ([]SaleRow, error) {
	rows, err := q.db.QueryContext(ctx, listSalesBetween, fromMs, toMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SaleRow
	for rows.Next() {
		var s SaleRow
		if err := rows.Scan(&s.ID, &s.CollaboratorID, &s.CollaboratorName, &s.ProductID,
			&s.ProductName, &s.SoldAtMs, &s.Quantity, &s.TotalCents, &s.DateDefaulted); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func scanPayments(rows *sql.Rows) ([]PaymentRow, error) {
	defer rows.Close()
	var items []PaymentRow
	for rows.Next() {
		var p PaymentRow
		if err := rows.Scan(&p.ID, &p.SaleID, &p.CollaboratorID, &p.CollaboratorName, &p.PaidAtMs,
			&p.DigitalCents, &p.CashCents, &p.IncidentalCents, &p.Status, &p.DateDefaulted); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
