package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cobros/internal/core"
)

// Envelope keys accepted around record arrays.
var (
	paymentKeys = []string{"cobros", "records", "data"}
	saleKeys    = []string{"ventas", "sales", "records", "data"}
)

// DecodePayments reads either a bare JSON array of payments or an object
// wrapping it under "cobros", "records" or "data". Malformed fields are
// normalized against now instead of failing the decode; array elements that
// are not objects are dropped and counted.
func DecodePayments(r io.Reader, now time.Time) (Payments, error) {
	items, _, err := decodeRecords(r, paymentKeys)
	if err != nil {
		return Payments{}, fmt.Errorf("decode payments: %w", err)
	}
	return normalizePayments(items, now), nil
}

// DecodePage reads a paginated collections response.
func DecodePage(r io.Reader, now time.Time) (Page, error) {
	items, env, err := decodeRecords(r, paymentKeys)
	if err != nil {
		return Page{}, fmt.Errorf("decode page: %w", err)
	}
	page := Page{Payments: normalizePayments(items, now)}
	if raw, ok := env["hasMore"]; ok {
		if err := json.Unmarshal(raw, &page.HasMore); err != nil {
			return Page{}, fmt.Errorf("decode page: hasMore: %w", err)
		}
	}
	return page, nil
}

// DecodeSales reads a bare array of sales or an object wrapping it under
// "ventas", "sales", "records" or "data".
func DecodeSales(r io.Reader, now time.Time) (Sales, error) {
	items, _, err := decodeRecords(r, saleKeys)
	if err != nil {
		return Sales{}, fmt.Errorf("decode sales: %w", err)
	}
	raws, dropped := decodeEach[core.RawSale](items)
	records, diag := core.NormalizeSales(raws, now)
	diag.DroppedRecords += dropped
	return Sales{Records: records, Diagnostics: diag}, nil
}

func normalizePayments(items []json.RawMessage, now time.Time) Payments {
	raws, dropped := decodeEach[core.RawPayment](items)
	records, diag := core.NormalizePayments(raws, now)
	diag.DroppedRecords += dropped
	return Payments{Records: records, Diagnostics: diag}
}

// decodeRecords splits the array found in r into its elements and returns
// the envelope object, if any.
func decodeRecords(r io.Reader, keys []string) ([]json.RawMessage, map[string]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, nil
	}
	if data[0] == '[' {
		var items []json.RawMessage
		return items, nil, json.Unmarshal(data, &items)
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, err
	}
	for _, k := range keys {
		raw, ok := env[k]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, env, fmt.Errorf("%s: %w", k, err)
		}
		return items, env, nil
	}
	return nil, env, fmt.Errorf("no record array under any of %v", keys)
}

// decodeEach decodes every element on its own so one bad element only
// costs itself. Numbers are kept as json.Number.
func decodeEach[T any](items []json.RawMessage) ([]T, int) {
	out := make([]T, 0, len(items))
	dropped := 0
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			dropped++
			continue
		}
		var v T
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			dropped++
			continue
		}
		out = append(out, v)
	}
	return out, dropped
}
