package client

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

	"github.com/google/uuid"
	"github.com/phrazzld/tickerwatch/internal/config"
	"github.com/phrazzld/tickerwatch/internal/platform/jsoncase"
	"github.com/phrazzld/tickerwatch/internal/redact"
)

// RequestIDHeader carries a fresh UUID on every request so client and server
// logs can be correlated.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a failed response is kept on HTTPError.
const maxErrorBody = 64 << 10

// Client talks to the analysis server's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is left
// as configured by the caller.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the server described by cfg.
func New(cfg config.APIConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", ErrInvalidConfig, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "api_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes the normalized response into out.
// Non-2xx responses are returned as *HTTPError; the body is kept so callers
// can extract structured details.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.With("method", method, "path", path, "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("request failed", "error", redact.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody*16))
	if err != nil {
		return fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}

	log.Debug("request completed",
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       raw,
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return decode(raw, out)
}

// decode normalizes snake_case keys to camelCase and unmarshals into out.
func decode(raw []byte, out interface{}) error {
	normalized, err := jsoncase.Normalize(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// decodeErrorBody extracts a structured error payload. Servers either send
// it at the top level or nest it under "detail"; both are accepted.
func decodeErrorBody(raw []byte, out interface{}) bool {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	normalized, err := jsoncase.Normalize(raw)
	if err != nil {
		return false
	}
	if json.Unmarshal(normalized, &envelope) == nil && len(envelope.Detail) > 0 && envelope.Detail[0] == '{' {
		return json.Unmarshal(envelope.Detail, out) == nil
	}
	return json.Unmarshal(normalized, out) == nil
}
