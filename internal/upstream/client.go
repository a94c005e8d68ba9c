// Package upstream is the typed client for the Head Office ERP REST API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const maxBodyBytes = 16 << 20

type tokenContextKey struct{}

// WithToken attaches the bearer token used for API calls made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token stored by WithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *Metrics
}

// Client performs authenticated calls against the API and decodes envelopes.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
	group   singleflight.Group
}

// NewClient validates options and constructs a Client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("upstream: base url required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream: base url %q must be absolute", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{base: base, http: httpClient, timeout: timeout, logger: logger, metrics: opts.Metrics}, nil
}

// get issues a GET and decodes the envelope payload. Identical concurrent reads
// made with the same token share a single round trip. The shared call runs
// detached from any one caller's cancellation and is bounded by the client
// timeout; each caller still stops waiting when its own ctx ends.
func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var zero T
	token := TokenFromContext(ctx)
	key := token + "|" + path + "?" + query.Encode()
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.do(context.WithoutCancel(ctx), http.MethodGet, path, query, nil)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return decodeEnvelope[T](path, res.Val.([]byte))
	}
}

func post[T any](ctx context.Context, c *Client, path string, payload any) (T, error) {
	var zero T
	body, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("upstream: %s: encode body: %w", path, err)
	}
	raw, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return zero, err
	}
	return decodeEnvelope[T](path, raw)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.base.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("upstream: %s: build request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(path, "error", time.Since(start))
		c.logger.Warn("upstream request failed", slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("upstream: %s: %w: %w", path, ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.observe(path, statusClass(resp.StatusCode), time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("upstream: %s: read body: %w: %w", path, ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Path: path, Status: resp.StatusCode}
		var env Result[json.RawMessage]
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Messages = env.Errors
		}
		return nil, apiErr
	}
	return raw, nil
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
