// Package supabase implements the Store contract against a Supabase
// project through its PostgREST API. Every query the relational adapter
// expresses as SQL is expressed here as PostgREST filter syntax.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"
	"github.com/consigline/crm-api-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

var _ port.Store = (*Client)(nil)

// Client wraps HTTP calls to the Supabase PostgREST API and implements
// port.Store.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	bulkhead       *resilience.Bulkhead
	logger         *zap.Logger
}

// NewClient creates a Supabase-backed store.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		logger:         logger,
	}
}

// call runs a read behind the circuit breaker and retry policy, then
// maps whatever comes out into the domain error taxonomy. Typed domain
// errors pass through untouched and are hidden from the breaker's
// failure accounting: a 404 or 409 comes from a healthy backend.
func (c *Client) call(ctx context.Context, fn func() error) error {
	return c.execute(ctx, c.cfg, fn)
}

// mutate runs a write exactly once behind the breaker. POST, PATCH and
// DELETE are never replayed: a network error or 5xx can arrive after
// PostgREST already committed the statement, and a retry would insert a
// duplicate row. The failure is surfaced so the caller sees the
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
	return &domain.ErrBackendUnavailable{Service: "supabase", Err: err}
}

// statusError classifies a non-2xx PostgREST response. 409 is a
// uniqueness violation; other 4xx responses are permanent so the retry
// loop does not replay them.
func statusError(table string, status int, body []byte) error {
	if status == http.StatusConflict {
		return resilience.Permanent(&domain.ErrConflict{Message: "record conflicts with an existing one"})
	}
	err := fmt.Errorf("supabase %s returned %d: %s", table, status, string(body))
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}

func (c *Client) setHeaders(req *http.Request, prefer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
}

// doGet executes an authenticated GET against PostgREST.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: GET request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: GET non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, statusError(path, resp.StatusCode, body)
	}

	c.logger.Debug("supabase: GET OK", zap.String("path", path), zap.Int("status", resp.StatusCode))
	return body, nil
}

// Ping verifies the PostgREST endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, func() error {
		_, err := c.doGet(ctx, "organizations?select=id&limit=1")
		return err
	})
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (c *Client) Close() error { return nil }
