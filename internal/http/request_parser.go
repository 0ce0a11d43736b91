// This file implements parsing and validation of request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cobros/internal/core"
)

const maxBodyBytes = 1 << 20

// PageParams holds the offset/limit pair of a listing.
type PageParams struct {
	Offset int
	Limit  int
}

// ParsePageParams reads offset and limit, ignoring values that are not
// integers.
func ParsePageParams(query url.Values) PageParams {
	var p PageParams
	if v := strings.TrimSpace(query.Get("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Offset = n
		}
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Limit = n
		}
	}
	return p
}

// ParseWindow reads startDate and endDate. Both are optional. A date
// without a time ends at the last millisecond of that day so the end is
// inclusive.
func ParseWindow(query url.Values, now time.Time) (core.Window, error) {
	start, err := parseBound(query.Get("startDate"), now, false)
	if err != nil {
		return core.Window{}, fmt.Errorf("startDate: %w", err)
	}
	end, err := parseBound(query.Get("endDate"), now, true)
	if err != nil {
		return core.Window{}, fmt.Errorf("endDate: %w", err)
	}
	return core.NewWindow(start, end)
}

func parseBound(v string, now time.Time, endOfDay bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, ok := core.ToDateOrNow(v, now)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unrecognized date %q", core.ErrInvalidWindow, v)
	}
	if endOfDay && core.IsDateOnly(v) {
		t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return t, nil
}

// cobroRequest is the body of POST /api/cobros. Field names follow the
// upstream collections API.
type cobroRequest struct {
	ID            string `json:"_id"`
	SaleID        string `json:"ventaId"`
	Collaborator  any    `json:"colaboradorId"`
	Date          any    `json:"fechaCobro"`
	Digital       any    `json:"montoYape"`
	Cash          any    `json:"montoEfectivo"`
	Incidental    any    `json:"gastosImprevistos"`
	PaymentStatus string `json:"estadoPago"`
}

var (
	errInvalidBody = errors.New("invalid JSON body")
	errInvalidDate = errors.New("invalid date")
)

// DecodePayment reads a new collection from the request body. Unlike
// records read from a data source, malformed fields are rejected.
func DecodePayment(r *http.Request, now time.Time) (core.Payment, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	var req cobroRequest
	if err := dec.Decode(&req); err != nil {
		return core.Payment{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	collab, ok := core.ResolveCollaborator(req.Collaborator)
	if !ok {
		return core.Payment{}, core.ErrEmptyCollaborator
	}
	collab.Name = sanitizeInput(collab.Name)

	p := core.Payment{
		ID:           sanitizeInput(req.ID),
		SaleID:       sanitizeInput(req.SaleID),
		Collaborator: collab,
		Status:       core.PaymentStatus(strings.ToLower(strings.TrimSpace(req.PaymentStatus))),
	}

	if req.Date != nil {
		d, ok := core.ToDateOrNow(req.Date, now)
		if !ok {
			return core.Payment{}, fmt.Errorf("%w: fechaCobro", errInvalidDate)
		}
		p.Date = d
	}

	for _, f := range []struct {
		name string
		raw  any
		dst  *core.Money
	}{
		{"montoYape", req.Digital, &p.Digital},
		{"montoEfectivo", req.Cash, &p.Cash},
		{"gastosImprevistos", req.Incidental, &p.Incidental},
	} {
		m, ok := core.ToNonNegativeMoney(f.raw)
		if !ok {
			return core.Payment{}, fmt.Errorf("%w: %s", core.ErrInvalidAmount, f.name)
		}
		*f.dst = m
	}
	return p, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
