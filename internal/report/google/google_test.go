package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cobros/internal/core"
	"cobros/internal/report"
)

type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	calls    []string
	written  [][]any
	failPath string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)
	if f.failPath != "" && strings.Contains(path, f.failPath) {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.titles = append(f.titles, req.Requests[0].AddSheet.Properties.Title)
		io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":clear"):
		io.WriteString(w, `{}`)
	case strings.Contains(path, "/values/") && r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.written = vr.Values
		io.WriteString(w, `{}`)
	case r.Method == http.MethodGet:
		sheets := make([]map[string]any, 0, len(f.titles))
		for _, title := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets, sheet string) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-id", sheet, nil)
}

func sampleReport() report.DebtReport {
	return report.DebtReport{
		GeneratedAt: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Total:       core.Money{Cents: 1234},
	}
}

func TestWriteDebtReportCreatesSheet(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake, "Deudas")

	if err := c.WriteDebtReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(fake.titles) != 1 || fake.titles[0] != "Deudas" {
		t.Fatalf("expected the sheet to be created, got %v", fake.titles)
	}
	if len(fake.written) != 3 || fake.written[0][0] != "Colaborador" {
		t.Fatalf("unexpected rows %v", fake.written)
	}

	fake.calls = nil
	if err := c.WriteDebtReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("second write: %v", err)
	}
	for _, call := range fake.calls {
		if strings.HasSuffix(call, ":batchUpdate") {
			t.Fatalf("existing sheet must not be re-created: %v", fake.calls)
		}
	}
}

func TestWriteDebtReportErrors(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Deudas"}, failPath: ":clear"}
	c := newTestClient(t, fake, "Deudas")

	err := c.WriteDebtReport(context.Background(), sampleReport())
	if err == nil || !strings.Contains(err.Error(), "clear report sheet") {
		t.Fatalf("expected clear error, got %v", err)
	}

	var nilSvc Client
	if err := nilSvc.WriteDebtReport(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected error without service")
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error %v", err)
	}
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
	_, err = New(context.Background(), Config{SpreadsheetID: "x", OAuthClientJSON: "invalid-json", OAuthTokenJSON: `{"access_token":"t"}`}, nil)
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}
}

func TestQuoteSheet(t *testing.T) {
	cases := map[string]string{
		"Deudas":       "Deudas",
		"Deudas 2024":  "'Deudas 2024'",
		"Ana's report": "'Ana''s report'",
	}
	for in, want := range cases {
		if got := quoteSheet(in); got != want {
			t.Fatalf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
