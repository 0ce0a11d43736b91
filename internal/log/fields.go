package log

import (
	"time"

	"cobros/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent        = "component"
	FieldRequestID        = "request_id"
	FieldClientIP         = "client_ip"
	FieldMethod           = "method"
	FieldPath             = "path"
	FieldQuery            = "query"
	FieldStatusCode       = "status_code"
	FieldDuration         = "duration_ms"
	FieldUserAgent        = "user_agent"
	FieldSuccess          = "success"
	FieldError            = "error"
	FieldOperation        = "operation"
	FieldPaymentID        = "payment_id"
	FieldCollaboratorID   = "collaborator_id"
	FieldAmountCents      = "amount_cents"
	FieldRange            = "range"
	FieldWindowStart      = "window_start"
	FieldWindowEnd        = "window_end"
	FieldRecords          = "records"
	FieldDefaultedDates   = "defaulted_dates"
	FieldDefaultedAmounts = "defaulted_amounts"
	FieldDroppedRecords   = "dropped_records"
	FieldUnresolved       = "unresolved_collaborators"
	FieldCacheHit         = "cache_hit"
	FieldBackend          = "backend"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentCollections = "collections"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSource      = "source"
	ComponentCache       = "cache"
	ComponentReport      = "report"
	ComponentSecurity    = "security"
	ComponentRateLimit   = "rate_limit"
	ComponentBackend     = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpList      = "list"
	OpChart     = "chart"
	OpReconcile = "reconcile"
	OpPublish   = "publish"
	OpExport    = "export"
	OpMigrate   = "migrate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors are ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPayment adds the identifying fields of a recorded collection.
func (f LogFields) WithPayment(p core.Payment) LogFields {
	f[FieldPaymentID] = p.ID
	f[FieldCollaboratorID] = p.Collaborator.ID
	f[FieldAmountCents] = p.TotalPaid().Cents
	return f
}

// WithWindow adds the bounds of a date window; open sides are omitted.
func (f LogFields) WithWindow(w core.Window) LogFields {
	if !w.Start.IsZero() {
		f[FieldWindowStart] = w.Start.Format(time.RFC3339)
	}
	if !w.End.IsZero() {
		f[FieldWindowEnd] = w.End.Format(time.RFC3339)
	}
	return f
}

// WithDiagnostics adds the non-zero counters of d.
func (f LogFields) WithDiagnostics(d core.Diagnostics) LogFields {
	counters := map[string]int{
		FieldDefaultedDates:   d.DefaultedDates,
		FieldDefaultedAmounts: d.DefaultedAmounts,
		FieldDroppedRecords:   d.DroppedRecords,
		FieldUnresolved:       d.UnresolvedCollaborators,
	}
	for k, v := range counters {
		if v != 0 {
			f[k] = v
		}
	}
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
