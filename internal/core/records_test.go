package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

var frozenNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func decodeRaw[T any](t *testing.T, src string) T {
	t.Helper()
	var out T
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestToDateOrNow(t *testing.T) {
	lima := time.FixedZone("PET", -5*3600)
	now := frozenNow.In(lima)

	cases := []struct {
		name string
		in   any
		want time.Time
		ok   bool
	}{
		{"iso date", "2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, lima), true},
		{"iso datetime utc", "2024-03-05T10:00:00Z", time.Date(2024, 3, 5, 5, 0, 0, 0, lima), true},
		{"iso datetime millis", "2024-03-05T10:00:00.000Z", time.Date(2024, 3, 5, 5, 0, 0, 0, lima), true},
		{"local datetime", "2024-03-05T10:00:00", time.Date(2024, 3, 5, 10, 0, 0, 0, lima), true},
		{"dd/mm/yyyy", "05/03/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, lima), true},
		{"d/m/yyyy", "5/3/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, lima), true},
		{"time value", time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 22, 0, 0, 0, lima), true},
		{"unix millis", json.Number("1709632800000"), time.UnixMilli(1709632800000).In(lima), true},
		{"garbage", "not-a-date", now, false},
		{"empty", "", now, false},
		{"missing", nil, now, false},
		{"zero time", time.Time{}, now, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ToDateOrNow(tc.in, now)
			if !got.Equal(tc.want) || ok != tc.ok {
				t.Fatalf("ToDateOrNow(%v) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
			}
			if got.Location() != lima {
				t.Fatalf("expected result in now's location, got %v", got.Location())
			}
		})
	}
}

func TestIsDateOnly(t *testing.T) {
	cases := map[string]bool{
		"2024-03-05":           true,
		"05/03/2024":           true,
		"5/3/2024":             true,
		"05-03-2024":           true,
		" 2024-03-05 ":         true,
		"2024-03-05T10:00:00Z": false,
		"05/03/2024 10:00":     false,
		"1709632800000":        false,
		"":                     false,
	}
	for in, want := range cases {
		if got := IsDateOnly(in); got != want {
			t.Fatalf("IsDateOnly(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResolveCollaboratorShapes(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want CollaboratorRef
		ok   bool
	}{
		{"bare string", "c1", CollaboratorRef{ID: "c1"}, true},
		{"bare number", json.Number("42"), CollaboratorRef{ID: "42"}, true},
		{"embedded", map[string]any{"_id": "c2", "nombre": "Ana"}, CollaboratorRef{ID: "c2", Name: "Ana"}, true},
		{"embedded english", map[string]any{"id": "c3", "name": "Luis"}, CollaboratorRef{ID: "c3", Name: "Luis"}, true},
		{"extended oid", map[string]any{"_id": map[string]any{"$oid": "abc"}}, CollaboratorRef{ID: "abc"}, true},
		{"missing", nil, CollaboratorRef{}, false},
		{"object without id", map[string]any{"nombre": "x"}, CollaboratorRef{Name: "x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveCollaborator(tc.in)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("ResolveCollaborator(%v) = (%+v, %v), want (%+v, %v)", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestRawPaymentNormalize(t *testing.T) {
	raws := decodeRaw[[]RawPayment](t, `[
		{"_id":"p1","colaboradorId":{"_id":"c1","nombre":"Ana"},"fechaCobro":"2024-03-05",
		 "montoYape":10,"montoEfectivo":"20.50","gastosImprevistos":null,"montoPagado":999,"estadoPago":"PARCIAL"},
		{"id":"p2","colaboradorId":"c2","fechaCobro":"not-a-date","montoYape":"abc","montoEfectivo":-3}
	]`)

	payments, diag := NormalizePayments(raws, frozenNow)
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}

	p := payments[0]
	if p.ID != "p1" || p.Collaborator != (CollaboratorRef{ID: "c1", Name: "Ana"}) {
		t.Fatalf("unexpected identity %+v", p)
	}
	if p.Digital.Cents != 1000 || p.Cash.Cents != 2050 || p.Incidental.Cents != 0 {
		t.Fatalf("unexpected amounts %+v", p)
	}
	if p.TotalPaid().Cents != 3050 {
		t.Fatalf("total must be re-derived, got %d", p.TotalPaid().Cents)
	}
	if p.Status != StatusPartial {
		t.Fatalf("unexpected status %q", p.Status)
	}

	q := payments[1]
	if q.ID != "p2" || q.Collaborator.ID != "c2" {
		t.Fatalf("unexpected identity %+v", q)
	}
	if !q.Date.Equal(frozenNow) {
		t.Fatalf("malformed date must fall back to now, got %v", q.Date)
	}
	if q.Digital.Cents != 0 || q.Cash.Cents != 0 {
		t.Fatalf("malformed amounts must default to zero: %+v", q)
	}

	want := Diagnostics{DefaultedDates: 1, DefaultedAmounts: 2}
	if diag != want {
		t.Fatalf("diagnostics = %+v, want %+v", diag, want)
	}
}

func TestRawSaleNormalize(t *testing.T) {
	raws := decodeRaw[[]RawSale](t, `[
		{"_id":"s1","colaboradorId":"c1","productoId":{"_id":"pr1","nombre":"Queso"},
		 "fechaVenta":"2024-03-01T12:00:00Z","cantidad":3,"montoTotal":"45.90"},
		{"_id":"s2","colaboradorId":{},"productoId":"pr2","cantidad":"x","montoTotal":12}
	]`)

	sales, diag := NormalizeSales(raws, frozenNow)
	s := sales[0]
	if s.Collaborator.ID != "c1" || s.Product != (ProductRef{ID: "pr1", Name: "Queso"}) {
		t.Fatalf("unexpected refs %+v", s)
	}
	if s.Quantity != 3 || s.Total.Cents != 4590 {
		t.Fatalf("unexpected amounts %+v", s)
	}
	if sales[1].Collaborator.ID != "" || sales[1].Product.DisplayName() != "pr2" {
		t.Fatalf("unexpected second sale %+v", sales[1])
	}
	want := Diagnostics{DefaultedDates: 1, DefaultedAmounts: 1, UnresolvedCollaborators: 1}
	if diag != want {
		t.Fatalf("diagnostics = %+v, want %+v", diag, want)
	}
}
