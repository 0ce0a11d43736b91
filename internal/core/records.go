package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawPayment is a payment exactly as a data source delivers it. Decode it
// with a json.Decoder that has UseNumber enabled so amounts stay exact.
type RawPayment struct {
	ID           any `json:"_id"`
	AltID        any `json:"id"`
	SaleID       any `json:"ventaId"`
	Collaborator any `json:"colaboradorId"`
	Date         any `json:"fechaCobro"`
	Digital      any `json:"montoYape"`
	Cash         any `json:"montoEfectivo"`
	Incidental   any `json:"gastosImprevistos"`
	TotalPaid    any `json:"montoPagado"`
	Status       any `json:"estadoPago"`
}

// RawSale is a sale exactly as a data source delivers it.
type RawSale struct {
	ID           any `json:"_id"`
	AltID        any `json:"id"`
	Collaborator any `json:"colaboradorId"`
	Product      any `json:"productoId"`
	Date         any `json:"fechaVenta"`
	Quantity     any `json:"cantidad"`
	Total        any `json:"montoTotal"`
}

// Normalize converts the raw record into a Payment, defaulting every
// malformed field and recording what was defaulted in diag. The montoPagado
// field is ignored: the total is always re-derived.
func (r RawPayment) Normalize(now time.Time, diag *Diagnostics) Payment {
	ref, _ := ResolveCollaborator(r.Collaborator)
	date, ok := ToDateOrNow(r.Date, now)
	if !ok {
		diag.DefaultedDates++
	}
	p := Payment{
		ID:           firstID(r.ID, r.AltID),
		SaleID:       idString(r.SaleID),
		Collaborator: ref,
		Date:         date,
		Digital:      diag.money(r.Digital),
		Cash:         diag.money(r.Cash),
		Incidental:   diag.money(r.Incidental),
		Status:       PaymentStatus(strings.ToLower(idString(r.Status))),

		DateDefaulted: !ok,
	}
	if ref.ID == "" {
		diag.UnresolvedCollaborators++
	}
	return p
}

// Normalize converts the raw record into a Sale.
func (r RawSale) Normalize(now time.Time, diag *Diagnostics) Sale {
	ref, _ := ResolveCollaborator(r.Collaborator)
	product, _ := ResolveProduct(r.Product)
	date, dated := ToDateOrNow(r.Date, now)
	if !dated {
		diag.DefaultedDates++
	}
	qty, ok := ToQuantity(r.Quantity)
	if !ok {
		diag.DefaultedAmounts++
	}
	if ref.ID == "" {
		diag.UnresolvedCollaborators++
	}
	return Sale{
		ID:           firstID(r.ID, r.AltID),
		Collaborator: ref,
		Product:      product,
		Date:         date,
		Quantity:     qty,
		Total:        diag.money(r.Total),

		DateDefaulted: !dated,
	}
}

// NormalizePayments normalizes a batch of raw payments.
func NormalizePayments(raws []RawPayment, now time.Time) ([]Payment, Diagnostics) {
	var diag Diagnostics
	out := make([]Payment, 0, len(raws))
	for _, r := range raws {
		out = append(out, r.Normalize(now, &diag))
	}
	return out, diag
}

// NormalizeSales normalizes a batch of raw sales.
func NormalizeSales(raws []RawSale, now time.Time) ([]Sale, Diagnostics) {
	var diag Diagnostics
	out := make([]Sale, 0, len(raws))
	for _, r := range raws {
		out = append(out, r.Normalize(now, &diag))
	}
	return out, diag
}

// ResolveCollaborator turns either reference shape into a CollaboratorRef.
// A bare identifier leaves Name empty. The boolean is false when no
// identifier could be found.
func ResolveCollaborator(v any) (CollaboratorRef, bool) {
	id, name := resolveRef(v)
	return CollaboratorRef{ID: id, Name: name}, id != ""
}

// ResolveProduct turns either reference shape into a ProductRef.
func ResolveProduct(v any) (ProductRef, bool) {
	id, name := resolveRef(v)
	return ProductRef{ID: id, Name: name}, id != ""
}

// DisplayName falls back to the identifier when no name is known.
func (c CollaboratorRef) DisplayName() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.ID
}

// DisplayName falls back to the identifier when no name is known.
func (p ProductRef) DisplayName() string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	return p.ID
}

func resolveRef(v any) (id, name string) {
	switch val := v.(type) {
	case CollaboratorRef:
		return strings.TrimSpace(val.ID), strings.TrimSpace(val.Name)
	case ProductRef:
		return strings.TrimSpace(val.ID), strings.TrimSpace(val.Name)
	case map[string]any:
		id = firstID(val["_id"], val["id"])
		name = idString(val["nombre"])
		if name == "" {
			name = idString(val["name"])
		}
		return id, name
	default:
		return idString(v), ""
	}
}

func firstID(values ...any) string {
	for _, v := range values {
		if s := idString(v); s != "" {
			return s
		}
	}
	return ""
}

// idString renders scalar identifiers; structured values yield "".
func idString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case map[string]any:
		// Extended JSON object ids, e.g. {"$oid": "..."}.
		if oid, ok := val["$oid"].(string); ok {
			return strings.TrimSpace(oid)
		}
	}
	return ""
}
