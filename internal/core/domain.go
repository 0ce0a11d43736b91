package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPartial  PaymentStatus = "parcial"
	StatusComplete PaymentStatus = "completo"
)

type (
	PaymentStatus string

	// CollaboratorRef is the canonical form of a collaborator reference.
	// Records may carry either a bare identifier or an embedded object;
	// both are resolved into this pair before any accumulation.
	CollaboratorRef struct {
		ID   string `json:"_id"`
		Name string `json:"nombre,omitempty"`
	}

	// ProductRef is the canonical form of a product reference.
	ProductRef struct {
		ID   string `json:"_id"`
		Name string `json:"nombre,omitempty"`
	}

	// Payment is a normalized collection ("cobro") applied against a sale.
	Payment struct {
		ID           string          `json:"_id"`
		SaleID       string          `json:"ventaId,omitempty"`
		Collaborator CollaboratorRef `json:"colaboradorId"`
		Date         time.Time       `json:"fechaCobro"`
		Digital      Money           `json:"montoYape"`
		Cash         Money           `json:"montoEfectivo"`
		Incidental   Money           `json:"gastosImprevistos"`
		Status       PaymentStatus   `json:"estadoPago,omitempty"`

		// DateDefaulted marks a record whose source date was unusable. Its
		// Date is only a placeholder until anchored at the reader's clock.
		DateDefaulted bool `json:"-"`
	}

	// Sale is a normalized sale record.
	Sale struct {
		ID           string          `json:"_id"`
		Collaborator CollaboratorRef `json:"colaboradorId"`
		Product      ProductRef      `json:"productoId"`
		Date         time.Time       `json:"fechaVenta"`
		Quantity     int             `json:"cantidad"`
		Total        Money           `json:"montoTotal"`

		DateDefaulted bool `json:"-"`
	}

	// Window bounds records by date. A zero Start or End leaves that side
	// open; both bounds are inclusive.
	Window struct {
		Start time.Time
		End   time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyAmount        = errors.New("payment must carry a positive amount")
	ErrEmptyCollaborator  = errors.New("empty collaborator")
	ErrInvalidStatus      = errors.New("invalid payment status")
	ErrInvalidRange       = errors.New("invalid time range")
	ErrInvalidWindow      = errors.New("window start is after end")
	ErrNotFound           = errors.New("not found")
	ErrDescriptionTooLong = errors.New("collaborator name too long (max 200 characters)")
)

// TotalPaid re-derives the paid amount from its three components.
// The producer's own total is never trusted.
func (p Payment) TotalPaid() Money {
	return p.Digital.Add(p.Cash).Add(p.Incidental)
}

// Validate checks a payment that is about to be recorded.
// Records read back from a data source are never validated; they are
// normalized instead.
func (p Payment) Validate() error {
	if strings.TrimSpace(p.Collaborator.ID) == "" {
		return ErrEmptyCollaborator
	}
	if len(p.Collaborator.Name) > 200 {
		return ErrDescriptionTooLong
	}
	if p.Digital.Cents < 0 || p.Cash.Cents < 0 || p.Incidental.Cents < 0 {
		return ErrInvalidAmount
	}
	if p.TotalPaid().Cents <= 0 {
		return ErrEmptyAmount
	}
	switch p.Status {
	case StatusPartial, StatusComplete, "":
	default:
		return ErrInvalidStatus
	}
	return nil
}

// Unbounded returns a window that admits every date.
func Unbounded() Window {
	return Window{}
}

// NewWindow builds a window, rejecting inverted bounds.
func NewWindow(start, end time.Time) (Window, error) {
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return Window{}, ErrInvalidWindow
	}
	return Window{Start: start, End: end}, nil
}

// IsUnbounded reports whether neither side of the window is set.
func (w Window) IsUnbounded() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// AnchorPaymentDates returns payments with every defaulted date set to now.
// The input is not modified.
func AnchorPaymentDates(payments []Payment, now time.Time) []Payment {
	var out []Payment
	for i, p := range payments {
		if !p.DateDefaulted {
			continue
		}
		if out == nil {
			out = append([]Payment(nil), payments...)
		}
		out[i].Date = now
	}
	if out == nil {
		return payments
	}
	return out
}

// AnchorSaleDates returns sales with every defaulted date set to now.
func AnchorSaleDates(sales []Sale, now time.Time) []Sale {
	var out []Sale
	for i, s := range sales {
		if !s.DateDefaulted {
			continue
		}
		if out == nil {
			out = append([]Sale(nil), sales...)
		}
		out[i].Date = now
	}
	if out == nil {
		return sales
	}
	return out
}
