package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12,345", 1235, true},
		{" 2.50 ", 250, true},
		{"", 0, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"100000000000", 10_000_000_000_000, true},
		{"100000000000.01", 0, false},
		{"90000000000000000", 0, false},
		{"1e300", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestToNonNegativeMoney(t *testing.T) {
	cases := []struct {
		name  string
		in    any
		cents int64
		ok    bool
	}{
		{"nil is absent", nil, 0, true},
		{"json number", json.Number("10.5"), 1050, true},
		{"json integer", json.Number("20"), 2000, true},
		{"float", 0.1 + 0.2, 30, true},
		{"int", 7, 700, true},
		{"numeric string", "12.34", 1234, true},
		{"comma string", "12,34", 1234, true},
		{"blank string", "  ", 0, true},
		{"decimal", decimal.RequireFromString("3.333"), 333, true},
		{"money", Money{Cents: 99}, 99, true},
		{"negative", -5.0, 0, false},
		{"negative string", "-1", 0, false},
		{"garbage string", "abc", 0, false},
		{"NaN", math.NaN(), 0, false},
		{"Inf", math.Inf(1), 0, false},
		{"bool", true, 0, false},
		{"object", map[string]any{"a": 1}, 0, false},
		{"oversized string", "90000000000000000", 0, false},
		{"oversized json number", json.Number("1e20"), 0, false},
		{"oversized money", Money{Cents: MaxCents + 1}, 0, false},
		{"largest amount", json.Number("100000000000"), MaxCents, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ToNonNegativeMoney(tc.in)
			if got.Cents != tc.cents || ok != tc.ok {
				t.Fatalf("ToNonNegativeMoney(%v) = (%d, %v), want (%d, %v)", tc.in, got.Cents, ok, tc.cents, tc.ok)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{A: Money{Cents: 1205}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":12.05}` {
		t.Fatalf("unexpected json %s", b)
	}

	var out struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"4.50","b":-3,"c":null}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.A.Cents != 450 || out.B.Cents != 0 || out.C.Cents != 0 {
		t.Fatalf("unexpected decode %+v", out)
	}
}

func TestFormatSoles(t *testing.T) {
	cases := map[int64]string{
		0:        "S/ 0.00",
		5:        "S/ 0.05",
		123450:   "S/ 1,234.50",
		-250:     "-S/ 2.50",
		10000000: "S/ 100,000.00",
	}
	for cents, want := range cases {
		if got := FormatSoles(Money{Cents: cents}); got != want {
			t.Fatalf("FormatSoles(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestCappedAmountsSumWithoutOverflow(t *testing.T) {
	largest, ok := ToNonNegativeMoney("100000000000")
	if !ok {
		t.Fatalf("the largest amount must be accepted")
	}
	var total Money
	for i := 0; i < 100_000; i++ {
		total = total.Add(largest)
	}
	if total.Cents != 100_000*MaxCents {
		t.Fatalf("unexpected total %d", total.Cents)
	}

	huge, ok := ToNonNegativeMoney("90000000000000000")
	if ok || huge.Cents != 0 {
		t.Fatalf("oversized amount must default to zero, got %d %v", huge.Cents, ok)
	}
}
