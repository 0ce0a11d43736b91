package source

import (
	"strings"
	"testing"
	"time"
)

var now = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func TestDecodePaymentsShapes(t *testing.T) {
	cases := map[string]string{
		"bare array": `[{"_id":"p1","colaboradorId":"c1","montoYape":"10.5","fechaCobro":"2024-03-05"}]`,
		"envelope":   `{"cobros":[{"_id":"p1","colaboradorId":{"_id":"c1"},"montoYape":10.5,"fechaCobro":"05/03/2024"}]}`,
		"data key":   `{"data":[{"id":"p1","colaboradorId":"c1","montoYape":10.50,"fechaCobro":"2024-03-05T00:00:00Z"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := DecodePayments(strings.NewReader(body), now)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got.Records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(got.Records))
			}
			p := got.Records[0]
			if p.ID != "p1" || p.Collaborator.ID != "c1" || p.Digital.Cents != 1050 {
				t.Fatalf("unexpected payment %+v", p)
			}
			if p.Date.Day() != 5 || !got.Diagnostics.Empty() {
				t.Fatalf("unexpected date %v or diagnostics %+v", p.Date, got.Diagnostics)
			}
		})
	}
}

func TestDecodePage(t *testing.T) {
	page, err := DecodePage(strings.NewReader(`{"cobros":[{"_id":"a","fechaCobro":"bad"},{"_id":"b"}],"hasMore":true}`), now)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !page.HasMore || len(page.Records) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Diagnostics.DefaultedDates != 2 || page.Diagnostics.UnresolvedCollaborators != 2 {
		t.Fatalf("unexpected diagnostics %+v", page.Diagnostics)
	}
}

func TestDecodeSalesEnvelopes(t *testing.T) {
	for _, key := range []string{"ventas", "sales"} {
		body := `{"` + key + `":[{"_id":"s1","colaboradorId":"c1","productoId":{"_id":"p","nombre":"Queso"},"cantidad":2,"montoTotal":"30","fechaVenta":"2024-03-01"}]}`
		got, err := DecodeSales(strings.NewReader(body), now)
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if len(got.Records) != 1 || got.Records[0].Total.Cents != 3000 || got.Records[0].Product.Name != "Queso" {
			t.Fatalf("%s: unexpected sales %+v", key, got.Records)
		}
	}
}

func TestDecodeSkipsElementsThatAreNotRecords(t *testing.T) {
	body := `{"cobros":[
		{"_id":"p1","colaboradorId":"c1","montoYape":5,"fechaCobro":"2024-03-05"},
		"junk", 42, [1,2], null,
		{"_id":"p2","colaboradorId":"c2","montoEfectivo":"7"}
	],"hasMore":true}`

	got, err := DecodePayments(strings.NewReader(body), now)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Records) != 2 || got.Records[0].ID != "p1" || got.Records[1].ID != "p2" {
		t.Fatalf("unexpected records %+v", got.Records)
	}
	if got.Diagnostics.DroppedRecords != 4 {
		t.Fatalf("dropped = %d, want 4", got.Diagnostics.DroppedRecords)
	}

	page, err := DecodePage(strings.NewReader(body), now)
	if err != nil || len(page.Records) != 2 || !page.HasMore || page.Diagnostics.DroppedRecords != 4 {
		t.Fatalf("unexpected page %+v (%v)", page, err)
	}

	sales, err := DecodeSales(strings.NewReader(`["x",{"_id":"s1","colaboradorId":"c1","montoTotal":10}]`), now)
	if err != nil || len(sales.Records) != 1 || sales.Diagnostics.DroppedRecords != 1 {
		t.Fatalf("unexpected sales %+v (%v)", sales, err)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := DecodePayments(strings.NewReader(`{"other":[]}`), now); err == nil {
		t.Fatalf("expected an error for a missing record array")
	}
	if _, err := DecodeSales(strings.NewReader(`not json`), now); err == nil {
		t.Fatalf("expected an error for invalid json")
	}
	if _, err := DecodePayments(strings.NewReader(`{"cobros":"not an array"}`), now); err == nil {
		t.Fatalf("expected an error when the record field is not an array")
	}
	got, err := DecodePayments(strings.NewReader(""), now)
	if err != nil || len(got.Records) != 0 {
		t.Fatalf("empty body should decode to no records, got %v %v", got, err)
	}
}

func TestNormalizePagination(t *testing.T) {
	cases := []struct{ offset, limit, max, wantOffset, wantLimit int }{
		{-5, 0, 100, 0, 10},
		{20, 50, 100, 20, 50},
		{0, 500, 100, 0, 100},
		{0, 500, 0, 0, 500},
	}
	for _, tc := range cases {
		o, l := Normalize(tc.offset, tc.limit, tc.max)
		if o != tc.wantOffset || l != tc.wantLimit {
			t.Fatalf("Normalize(%d,%d,%d) = %d,%d", tc.offset, tc.limit, tc.max, o, l)
		}
	}
}
