// Package client talks to a node's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alekseysidorov/exonum-harness/api"
	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/tracing"
	"github.com/alekseysidorov/exonum-harness/types"
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusServiceUnavailable ||
		e.Status == http.StatusBadGateway ||
		e.Status == http.StatusGatewayTimeout ||
		e.Status == http.StatusTooManyRequests
}

// Client is an API client. Requests failing with a network error or a
// temporary status are retried with exponential backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	newBackoff func() backoff.BackOff
	tracer     *tracing.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBackoff replaces the retry policy. newBackoff is called once per request.
func WithBackoff(newBackoff func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackoff = newBackoff
	}
}

// WithoutRetries disables retries.
func WithoutRetries() Option {
	return WithBackoff(func() backoff.BackOff { return &backoff.StopBackOff{} })
}

// WithTracer propagates the trace context of each request.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// NewBackoff is the default retry policy: exponential from 100ms, capped
// at 2s between attempts and 10s overall.
func NewBackoff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.MaxInterval = 2 * time.Second
	eb.MaxElapsedTime = 10 * time.Second
	return eb
}

// New creates a client for the API at baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		newBackoff: NewBackoff,
		tracer:     tracing.NewNopTracer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON to path and decodes the JSON response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, data, out)
}

// SendTx submits tx to path and returns the hash reported by the node.
func (c *Client) SendTx(ctx context.Context, path string, tx blockchain.Transaction) (types.Hash, error) {
	var resp api.TxResponse
	if err := c.Post(ctx, path, api.NewTxRequest(tx), &resp); err != nil {
		return nil, err
	}
	return resp.TxHash, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	ctx, span := c.tracer.StartSpan(ctx, "client "+method+" "+path)
	defer span.End()

	op := func() error {
		err := c.once(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return backoff.Permanent(err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) || errors.As(err, &statusErr) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, backoff.WithContext(c.newBackoff(), ctx))
	span.RecordError(err)
	return err
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.tracer.Inject(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		_ = json.Unmarshal(data, &apiErr)
		return &StatusError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
