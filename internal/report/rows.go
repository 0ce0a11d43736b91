package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cobros/internal/core"
	"cobros/internal/debt"
)

// Header is the first row of every rendered report.
var Header = []any{"Colaborador", "ID", "Productos", "Vendido", "Pagado", "Deuda"}

// Rows renders r as spreadsheet rows: a header, one row per collaborator,
// a total row and the generation time. Amounts are plain numbers so the
// sheet can sum them.
func Rows(r DebtReport) [][]any {
	rows := make([][]any, 0, len(r.Summaries)+3)
	rows = append(rows, Header)

	for _, s := range r.Summaries {
		rows = append(rows, []any{
			s.CollaboratorName,
			s.CollaboratorID,
			productsCell(s.Products),
			s.TotalSold.Float(),
			s.TotalPaid.Float(),
			s.OutstandingDebt.Float(),
		})
	}

	rows = append(rows,
		[]any{"Total", "", "", "", "", r.Total.Float()},
		[]any{"Actualizado", r.GeneratedAt.Format(time.RFC3339)},
	)
	return rows
}

// productsCell lists products by name, e.g. "Queso x3 (S/ 45.00); Pan x1 (S/ 2.00)".
func productsCell(products map[string]debt.ProductLine) string {
	names := make([]string, 0, len(products))
	for name := range products {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		line := products[name]
		parts = append(parts, fmt.Sprintf("%s x%d (%s)", name, line.Quantity, core.FormatSoles(line.TotalAmount)))
	}
	return strings.Join(parts, "; ")
}
