// Package rest reads and records collections through the business REST
// backend.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cobros/internal/core"
	"cobros/internal/source"
)

// isoLayout matches the millisecond ISO-8601 form the backend emits.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Config configures the client.
type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	PageSize int
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 responses to core.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return core.ErrNotFound
	}
	return nil
}

// Client talks to the REST backend.
type Client struct {
	baseURL    *url.URL
	token      string
	pageSize   int
	httpClient *http.Client
	now        func() time.Time
}

// New builds a client. now anchors the date fallback used while
// normalizing records; pass time.Now in production.
func New(cfg Config, now func() time.Time) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL:    u,
		token:      cfg.Token,
		pageSize:   cfg.PageSize,
		httpClient: newHTTPClient(cfg.Timeout),
		now:        now,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// ListPaymentsPage calls GET /cobros/paginados.
func (c *Client) ListPaymentsPage(ctx context.Context, offset, limit int) (source.Page, error) {
	offset, limit = source.Normalize(offset, limit, c.pageSize)
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/cobros/paginados", q)
	if err != nil {
		return source.Page{}, err
	}
	defer body.Close()

	page, err := source.DecodePage(body, c.now())
	if err != nil {
		return source.Page{}, err
	}
	page.Offset, page.Limit = offset, limit
	return page, nil
}

// ListPayments calls GET /cobros with optional date bounds.
func (c *Client) ListPayments(ctx context.Context, w core.Window) (source.Payments, error) {
	body, err := c.get(ctx, "/cobros", windowQuery(w))
	if err != nil {
		return source.Payments{}, err
	}
	defer body.Close()
	return source.DecodePayments(body, c.now())
}

// ListSales calls GET /ventas with optional date bounds.
func (c *Client) ListSales(ctx context.Context, w core.Window) (source.Sales, error) {
	body, err := c.get(ctx, "/ventas", windowQuery(w))
	if err != nil {
		return source.Sales{}, err
	}
	defer body.Close()
	return source.DecodeSales(body, c.now())
}

type paymentRequest struct {
	ID           string             `json:"_id,omitempty"`
	SaleID       string             `json:"ventaId,omitempty"`
	Collaborator string             `json:"colaboradorId"`
	Date         string             `json:"fechaCobro"`
	Digital      core.Money         `json:"montoYape"`
	Cash         core.Money         `json:"montoEfectivo"`
	Incidental   core.Money         `json:"gastosImprevistos"`
	TotalPaid    core.Money         `json:"montoPagado"`
	Status       core.PaymentStatus `json:"estadoPago,omitempty"`
}

// RecordPayment calls POST /cobros and returns the identifier assigned by
// the backend, falling back to the payment's own ID.
func (c *Client) RecordPayment(ctx context.Context, p core.Payment) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(paymentRequest{
		ID:           p.ID,
		SaleID:       p.SaleID,
		Collaborator: p.Collaborator.ID,
		Date:         p.Date.UTC().Format(isoLayout),
		Digital:      p.Digital,
		Cash:         p.Cash,
		Incidental:   p.Incidental,
		TotalPaid:    p.TotalPaid(),
		Status:       p.Status,
	})
	if err != nil {
		return "", fmt.Errorf("encode payment: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/cobros", nil, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer body.Close()

	var created struct {
		ID    any `json:"_id"`
		AltID any `json:"id"`
		Cobro *struct {
			ID any `json:"_id"`
		} `json:"cobro"`
	}
	if err := json.NewDecoder(body).Decode(&created); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("decode created payment: %w", err)
	}
	for _, v := range []any{created.ID, created.AltID} {
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
	}
	if created.Cobro != nil {
		if s, ok := created.Cobro.ID.(string); ok && s != "" {
			return s, nil
		}
	}
	return p.ID, nil
}

// Ping checks that the backend answers the cheapest listing.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{"offset": {"0"}, "limit": {"1"}}
	body, err := c.get(ctx, "/cobros/paginados", q)
	if err != nil {
		return err
	}
	return body.Close()
}

func windowQuery(w core.Window) url.Values {
	q := url.Values{}
	if !w.Start.IsZero() {
		q.Set("startDate", w.Start.UTC().Format(isoLayout))
	}
	if !w.End.IsZero() {
		q.Set("endDate", w.End.UTC().Format(isoLayout))
	}
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (io.ReadCloser, error) {
	return c.do(ctx, http.MethodGet, path, q, nil)
}

// do performs the request and returns the body of a 2xx response. The
// caller closes it.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader) (io.ReadCloser, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %w", method, path, readAPIError(resp))
	}
	return resp.Body, nil
}

func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var msg struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &msg) == nil {
		apiErr.Message = msg.Error
		if apiErr.Message == "" {
			apiErr.Message = msg.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
