// Package api provides the REST request function and typed calls against the
// HR backend.
//
// Every call is a single attempt with no retry. Responses follow one policy:
//   - 401/403: the unauthorized handler runs (store-wide session clear) and
//     [ErrUnauthorized] is returned
//   - any other non-2xx: nil result, nil error (callers treat it as failure)
//   - 2xx with an empty body: nil result, nil error
//   - otherwise the raw JSON body
//
// Key types:
//   - [Client] - request function plus typed endpoint helpers
//   - [Options] - per-request method, body, token and headers
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"onboard/internal/output"
)

// ErrUnauthorized is returned when the server rejects the session (401/403).
var ErrUnauthorized = errors.New("session rejected by server")

// Options configures a single request.
type Options struct {
	// Method is the HTTP method. Defaults to GET.
	Method string

	// Body is JSON-encoded when non-nil.
	Body any

	// Token is sent as a bearer credential when non-empty.
	Token string

	// Headers are added to the request.
	Headers map[string]string
}

// Client issues requests against the HR API base URL.
type Client struct {
	baseURL        string
	http           *http.Client
	onUnauthorized func()
}

// NewClient creates a Client for the given base URL. A zero timeout leaves
// the transport default in place.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.http = hc
}

// SetUnauthorizedHandler configures the callback run on 401/403 responses.
//
// The auth layer installs a handler that clears the session store; the
// wizard has no special handling and is simply preempted.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Request performs one request against endpoint (a path relative to the
// base URL) and applies the response policy described in the package doc.
func (c *Client) Request(ctx context.Context, endpoint string, opts Options) (json.RawMessage, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		output.Debugf("api: %s %s -> %d, clearing session", method, endpoint, resp.StatusCode)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		output.Debugf("api: %s %s -> %d", method, endpoint, resp.StatusCode)
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s %s: response is not valid JSON", method, endpoint)
	}
	return json.RawMessage(data), nil
}
