// Package gateway is the client for the Apex27 property management API.
//
// Every call is a single HTTP request. There are no retries: a failed
// call surfaces as *APIError (non-2xx) or a transport error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/walkthrough/internal/metrics"
)

const (
	// DefaultBaseURL is the production Apex27 API.
	DefaultBaseURL = "https://api.apex27.co.uk"

	// APIKeyHeader carries the API key on direct requests.
	APIKeyHeader = "X-Api-Key"

	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second
)

// Config contains configuration for the gateway client.
type Config struct {
	// BaseURL is the API root, or the proxy endpoint when ViaProxy is set.
	BaseURL string
	APIKey  string

	// ViaProxy sends the target path as a "path" query parameter and
	// leaves the API key to the proxy.
	ViaProxy bool

	Timeout time.Duration
}

// Client calls the property management API.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// New creates a gateway client.
func New(config Config, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if !config.ViaProxy && config.APIKey == "" {
		return nil, fmt.Errorf("apex27 API key is required")
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With("component", "gateway"),
		now:    time.Now,
	}, nil
}

// Do performs a request and returns the decoded body: JSON when the body
// parses as JSON regardless of Content-Type, otherwise the raw text.
// A JSON-encodable body is sent as application/json.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, body any) (any, error) {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	data, err := c.send(ctx, "do", method, path, params, reader, contentType)
	if err != nil {
		return nil, err
	}
	return decodeBody(data), nil
}

// send executes one request and returns the response body of a 2xx reply.
func (c *Client) send(ctx context.Context, op, method, path string, params url.Values, body io.Reader, contentType string) (data []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.GatewayCall(op, time.Since(start), err)
		if err != nil {
			c.logger.Warn("API call failed", "op", op, "method", method, "path", path, "error", err)
		} else {
			c.logger.Debug("API call", "op", op, "method", method, "path", path, "duration", time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, params), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if !c.config.ViaProxy {
		req.Header.Set(APIKeyHeader, c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: decodeBody(data)}
	}
	return data, nil
}

func (c *Client) buildURL(path string, params url.Values) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}

	if c.config.ViaProxy {
		q.Set("path", path)
		return c.config.BaseURL + "?" + q.Encode()
	}

	u := c.config.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// decodeBody returns the body parsed as JSON, or as text when it is not
// valid JSON.
func decodeBody(data []byte) any {
	var v any
	if err := json.Unmarshal(data, &v); err == nil {
		return v
	}
	return string(data)
}

// getJSON fetches path and decodes the JSON body into out. It reports false
// when the body is not JSON of the expected shape.
func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) (bool, error) {
	data, err := c.send(ctx, op, http.MethodGet, path, params, nil, "")
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Debug("Unexpected response shape", "op", op, "error", err)
		return false, nil
	}
	return true, nil
}

// sendJSON marshals body, sends it and decodes any JSON reply into out
// when out is non-nil.
func (c *Client) sendJSON(ctx context.Context, op, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	data, err := c.send(ctx, op, method, path, nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: unexpected response: %w", op, err)
	}
	return nil
}
