package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cobros/internal/core"
	"cobros/internal/debt"
	applog "cobros/internal/log"
	"cobros/internal/services"
	"cobros/internal/source"
)

// Collections records and lists collections.
type Collections interface {
	Record(ctx context.Context, p core.Payment) (core.Payment, error)
	List(ctx context.Context, offset, limit int) (source.Page, error)
}

// Dashboard serves the derived views.
type Dashboard interface {
	CollectionsChart(ctx context.Context, rng core.TimeRange) (services.Chart, error)
	PendingDebts(ctx context.Context, w core.Window) (services.DebtReport, error)
	Strict() bool
	Now() time.Time
}

type handlers struct {
	collections Collections
	dashboard   Dashboard
	ready       func(context.Context) error
}

func (h *handlers) routes(r chi.Router, limitWrites func(http.Handler) http.Handler) {
	r.Get("/healthz", h.health)
	r.Get("/readyz", h.readiness)

	r.Route("/api", func(r chi.Router) {
		r.Get("/cobros", h.listCollections)
		r.With(limitWrites).Post("/cobros", h.createCollection)
		r.Get("/charts/cobros", h.collectionsChart)
		r.Get("/deudas", h.pendingDebts)
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (h *handlers) readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// paymentView adds the derived total to a stored payment.
type paymentView struct {
	core.Payment
	TotalPaid core.Money `json:"montoPagado"`
}

func viewOf(p core.Payment) paymentView {
	return paymentView{Payment: p, TotalPaid: p.TotalPaid()}
}

type pageView struct {
	Items   []paymentView     `json:"cobros"`
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
	HasMore bool              `json:"hasMore"`
	Diag    *core.Diagnostics `json:"diagnostics,omitempty"`
}

func (h *handlers) listCollections(w http.ResponseWriter, r *http.Request) {
	params := ParsePageParams(r.URL.Query())
	page, err := h.collections.List(r.Context(), params.Offset, params.Limit)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	view := pageView{
		Items:   make([]paymentView, 0, len(page.Records)),
		Offset:  page.Offset,
		Limit:   page.Limit,
		HasMore: page.HasMore,
		Diag:    h.diagnostics(page.Diagnostics),
	}
	for _, p := range page.Records {
		view.Items = append(view.Items, viewOf(p))
	}
	NewJSONResponse().Body(view).Write(w)
}

func (h *handlers) createCollection(w http.ResponseWriter, r *http.Request) {
	p, err := DecodePayment(r, h.dashboard.Now())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	stored, err := h.collections.Record(r.Context(), p)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/cobros/"+stored.ID).
		Body(viewOf(stored)).
		Write(w)
}

type chartView struct {
	Range      core.TimeRange    `json:"range"`
	Labels     []string          `json:"labels"`
	Total      []core.Money      `json:"total"`
	Digital    []core.Money      `json:"digital"`
	Cash       []core.Money      `json:"cash"`
	Incidental []core.Money      `json:"incidental"`
	Sum        core.Money        `json:"sum"`
	Diag       *core.Diagnostics `json:"diagnostics,omitempty"`
}

func (h *handlers) collectionsChart(w http.ResponseWriter, r *http.Request) {
	// Unknown ranges are charted as historical.
	rng, _ := core.ParseTimeRange(r.URL.Query().Get("range"))
	chart, err := h.dashboard.CollectionsChart(r.Context(), rng)
	if err != nil {
		writeError(w, r, applog.OpChart, err)
		return
	}
	NewJSONResponse().Body(chartView{
		Range:      chart.Range,
		Labels:     chart.Labels,
		Total:      chart.Total,
		Digital:    chart.Digital,
		Cash:       chart.Cash,
		Incidental: chart.Incidental,
		Sum:        chart.Sum(),
		Diag:       h.diagnostics(chart.Diagnostics),
	}).Write(w)
}

type debtView struct {
	Summaries   []debt.Summary    `json:"deudas"`
	Total       core.Money        `json:"total"`
	Formatted   string            `json:"totalFormatted"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Diag        *core.Diagnostics `json:"diagnostics,omitempty"`
}

func (h *handlers) pendingDebts(w http.ResponseWriter, r *http.Request) {
	window, err := ParseWindow(r.URL.Query(), h.dashboard.Now())
	if err != nil {
		writeError(w, r, applog.OpReconcile, err)
		return
	}
	report, err := h.dashboard.PendingDebts(r.Context(), window)
	if err != nil {
		writeError(w, r, applog.OpReconcile, err)
		return
	}
	summaries := report.Summaries
	if summaries == nil {
		summaries = []debt.Summary{}
	}
	NewJSONResponse().Body(debtView{
		Summaries:   summaries,
		Total:       report.Total,
		Formatted:   core.FormatSoles(report.Total),
		GeneratedAt: report.GeneratedAt,
		Diag:        h.diagnostics(report.Diagnostics),
	}).Write(w)
}

// diagnostics are exposed only in strict mode.
func (h *handlers) diagnostics(d core.Diagnostics) *core.Diagnostics {
	if !h.dashboard.Strict() {
		return nil
	}
	return &d
}
