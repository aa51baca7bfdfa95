// Package supabase provides a client for Supabase (PostgREST).
// Used as the hosted data backend for recurring rules and ledger transactions.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const serviceName = "supabase"

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client. Calls go through cb and are retried
// according to cfg.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// IsBreakerFailure reports whether err should count towards tripping the
// breaker. Lookups that miss and duplicate inserts are answers, not outages.
func IsBreakerFailure(err error) bool {
	var nf *domain.ErrNotFound
	var dup *domain.ErrDuplicate
	return !errors.As(err, &nf) && !errors.As(err, &dup)
}

// statusError is a non-2xx PostgREST response.
type statusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// doRequest executes an authenticated request to Supabase PostgREST.
// payload, when non-nil, is sent as the JSON body.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	var headers map[string]string
	if prefer != "" {
		headers = map[string]string{"Prefer": prefer}
	}
	body, _, err := c.send(ctx, method, path, payload, headers)
	return body, err
}

// send is doRequest with extra request headers and the response headers
// returned.
func (c *Client) send(ctx context.Context, method, path string, payload any, headers map[string]string) ([]byte, http.Header, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var reader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, resilience.Permanent(err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.Header, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		serr := &statusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(body)}
		// Client errors will not get better on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, nil, resilience.Permanent(serr)
		}
		return nil, nil, serr
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, resp.Header, nil
}

// execute runs fn through the circuit breaker with retries. Domain errors
// (not found, duplicate) and cancellation come back as they are; a missed
// deadline is ErrTimeout and every other failure is reported as
// ErrCircuitOpen or ErrExternalService.
func (c *Client) execute(ctx context.Context, op string, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	if err == nil {
		return nil
	}
	if !IsBreakerFailure(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: serviceName + "/" + op}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if resilience.IsOpen(err) {
		return &domain.ErrCircuitOpen{Service: serviceName}
	}
	return &domain.ErrExternalService{Service: serviceName + "/" + op, Err: err}
}

// pageSize is the number of rows requested per Range page. It matches the
// stock Supabase db-max-rows so a capped server still fills whole pages.
const pageSize = 1000

// getAll reads every row a GET selects by walking Range pages until
// Content-Range reports the end. decode is handed each page body and
// returns how many rows it held. A server that answers with a different
// range than asked for, or stops short of its own total, is an error.
func (c *Client) getAll(ctx context.Context, op, path string, decode func(body []byte) (int, error)) error {
	offset := 0
	for {
		var n, first, total int
		err := c.execute(ctx, op, func() error {
			body, hdr, err := c.send(ctx, http.MethodGet, path, nil, map[string]string{
				"Range-Unit": "items",
				"Range":      fmt.Sprintf("%d-%d", offset, offset+pageSize-1),
				"Prefer":     "count=exact",
			})
			if err != nil {
				return err
			}
			start, t, err := parseContentRange(hdr.Get("Content-Range"))
			if err != nil {
				return resilience.Permanent(err)
			}
			if start >= 0 && start != offset {
				return resilience.Permanent(fmt.Errorf("asked for rows from %d, got range starting at %d", offset, start))
			}
			first, total = start, t
			if len(body) == 0 {
				n = 0
				return nil
			}
			n, err = decode(body)
			if err != nil {
				return resilience.Permanent(err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		offset += n
		switch {
		case total >= 0 && offset >= total:
			return nil
		case total >= 0 && n == 0:
			return &domain.ErrExternalService{
				Service: serviceName + "/" + op,
				Err:     fmt.Errorf("result truncated at %d of %d rows", offset, total),
			}
		case total < 0 && n < pageSize:
			return nil
		case first < 0:
			return &domain.ErrExternalService{
				Service: serviceName + "/" + op,
				Err:     fmt.Errorf("full page of %d rows without Content-Range", n),
			}
		}
	}
}

// parseContentRange reads a PostgREST Content-Range header such as
// "0-999/1500", "*/0" or "0-9/*". Unknown parts are -1; a missing header
// yields (-1, -1).
func parseContentRange(h string) (start, total int, err error) {
	start, total = -1, -1
	if h == "" {
		return start, total, nil
	}
	rng, size, ok := strings.Cut(strings.TrimSpace(h), "/")
	if !ok {
		return 0, 0, fmt.Errorf("malformed Content-Range %q", h)
	}
	if size != "*" {
		if total, err = strconv.Atoi(size); err != nil {
			return 0, 0, fmt.Errorf("malformed Content-Range %q", h)
		}
	}
	if rng != "*" {
		first, _, _ := strings.Cut(rng, "-")
		if start, err = strconv.Atoi(first); err != nil {
			return 0, 0, fmt.Errorf("malformed Content-Range %q", h)
		}
	}
	return start, total, nil
}

// Ping issues a cheap read to confirm PostgREST is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodGet, "recurring_rules?select=id&limit=1", nil, "")
	return err
}
