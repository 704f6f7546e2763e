// Package baserow implements the Store contract against a Baserow
// workspace through its row API. Tables and fields are addressed by the
// numeric ids Baserow assigns, resolved through a mapping file.
package baserow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"
	"github.com/consigline/crm-api-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("baserow")

var _ port.Store = (*Client)(nil)

// Client talks to the Baserow row API and implements port.Store.
//
// Baserow offers no uniqueness constraints, so the duplicate-email
// guard is only the check-then-insert in CreateUser; two concurrent
// creates can both pass the check. That gap is inherent to the backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	mapping    *Mapping
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
	logger     *zap.Logger
}

// NewClient creates a Baserow-backed store. The mapping must already be
// validated by LoadMapping.
func NewClient(httpClient *http.Client, baseURL, token string, mapping *Mapping, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
		mapping:    mapping,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		logger:     logger,
	}
}

// call runs a read behind the circuit breaker and retry policy, then
// maps the outcome into the domain error taxonomy. Typed domain errors
// are hidden from the breaker's failure accounting: a missing row or a
// conflict comes from a healthy backend.
func (c *Client) call(ctx context.Context, fn func() error) error {
	return c.execute(ctx, c.cfg, fn)
}

// mutate runs a write exactly once behind the breaker. Row creates,
// patches and deletes are never replayed: a network error or 5xx can
// arrive after Baserow already committed the row, and a retry would
// duplicate it. The failure is surfaced so the caller sees the
// ambiguity instead of a silently doubled write.
func (c *Client) mutate(ctx context.Context, fn func() error) error {
	once := c.cfg
	once.MaxRetries = 0
	return c.execute(ctx, once, fn)
}

func (c *Client) execute(ctx context.Context, cfg resilience.Config, fn func() error) error {
	var typed error
	_, err := c.cb.Execute(func() (any, error) {
		execErr := resilience.RetryWithBackoff(ctx, cfg, fn)
		if isTyped(execErr) {
			typed = execErr
			return nil, nil
		}
		return nil, execErr
	})
	if typed != nil {
		return typed
	}
	return c.wrapErr(err)
}

func isTyped(err error) bool {
	var (
		nf *domain.ErrNotFound
		cf *domain.ErrConflict
		vd *domain.ErrValidation
	)
	return errors.As(err, &nf) || errors.As(err, &cf) || errors.As(err, &vd)
}

func (c *Client) wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if isTyped(err) {
		return err
	}
	return &domain.ErrBackendUnavailable{Service: "baserow", Err: err}
}

// row is one Baserow record: field_<id> keys plus the intrinsic "id".
type row map[string]any

type listResponse struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []row  `json:"results"`
}

func (c *Client) do(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("baserow: request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	c.logger.Debug("baserow: request done",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
	)
	return resp.StatusCode, raw, nil
}

// statusError classifies a non-2xx Baserow response; 4xx responses are
// permanent so the retry loop does not replay them.
func statusError(method, url string, status int, body []byte) error {
	err := fmt.Errorf("baserow %s %s returned %d: %s", method, url, status, string(body))
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}

// listRows fetches every row of a table, following pagination, and
// returns them sorted by row id ascending (creation order).
func (c *Client) listRows(ctx context.Context, tableID int64, filters map[string]string) ([]row, error) {
	url := fmt.Sprintf("%s/api/database/rows/table/%d/?size=200", c.baseURL, tableID)
	for k, v := range filters {
		url += fmt.Sprintf("&filter__%s__equal=%s", k, v)
	}

	var out []row
	for url != "" {
		status, body, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if status < 200 || status >= 300 {
			return nil, statusError(http.MethodGet, url, status, body)
		}
		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("decode table %d: %w", tableID, err))
		}
		out = append(out, page.Results...)
		url = page.Next
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id() < out[j].id() })
	return out, nil
}

// getRow fetches one row, mapping 404 to a typed not-found.
func (c *Client) getRow(ctx context.Context, tableID, rowID int64, resource, id string) (row, error) {
	url := fmt.Sprintf("%s/api/database/rows/table/%d/%d/", c.baseURL, tableID, rowID)
	status, body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: id})
	}
	if status < 200 || status >= 300 {
		return nil, statusError(http.MethodGet, url, status, body)
	}
	var r row
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode %s row: %w", resource, err))
	}
	return r, nil
}

func (c *Client) createRow(ctx context.Context, tableID int64, payload map[string]any, resource string) (row, error) {
	url := fmt.Sprintf("%s/api/database/rows/table/%d/", c.baseURL, tableID)
	status, body, err := c.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, statusError(http.MethodPost, url, status, body)
	}
	var r row
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode created %s: %w", resource, err))
	}
	return r, nil
}

func (c *Client) patchRow(ctx context.Context, tableID, rowID int64, payload map[string]any, resource, id string) (row, error) {
	url := fmt.Sprintf("%s/api/database/rows/table/%d/%d/", c.baseURL, tableID, rowID)
	status, body, err := c.do(ctx, http.MethodPatch, url, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: id})
	}
	if status < 200 || status >= 300 {
		return nil, statusError(http.MethodPatch, url, status, body)
	}
	var r row
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode patched %s: %w", resource, err))
	}
	return r, nil
}

func (c *Client) deleteRow(ctx context.Context, tableID, rowID int64, resource, id string) error {
	url := fmt.Sprintf("%s/api/database/rows/table/%d/%d/", c.baseURL, tableID, rowID)
	status, body, err := c.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: id})
	}
	if status < 200 || status >= 300 {
		return statusError(http.MethodDelete, url, status, body)
	}
	return nil
}

// Ping verifies the Baserow API answers for the organizations table.
func (c *Client) Ping(ctx context.Context) error {
	t := c.mapping.table(domain.EntityOrganization)
	return c.call(ctx, func() error {
		url := fmt.Sprintf("%s/api/database/rows/table/%d/?size=1", c.baseURL, t.TableID)
		status, body, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if status < 200 || status >= 300 {
			return statusError(http.MethodGet, url, status, body)
		}
		return nil
	})
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (c *Client) Close() error { return nil }
