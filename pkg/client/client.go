// Package client talks to the Boruta admin REST API. Every endpoint wraps its
// payload in a {"data": ...} envelope and reports field errors as
// {"errors": {"field": ["message"]}}.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Default collection paths below the API base URL.
const (
	DefaultScopesPath  = "/api/scopes"
	DefaultClientsPath = "/oauth/api/clients"
)

// Client is the Boruta admin API client. The bearer token is fixed at
// construction; build a new Client after the session token changes.
type Client struct {
	baseURL     string
	token       string
	scopesPath  string
	clientsPath string
	httpClient  *http.Client
	logger      *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithScopesPath overrides DefaultScopesPath.
func WithScopesPath(p string) Option {
	return func(c *Client) { c.scopesPath = "/" + strings.Trim(p, "/") }
}

// WithClientsPath overrides DefaultClientsPath.
func WithClientsPath(p string) Option {
	return func(c *Client) { c.clientsPath = "/" + strings.Trim(p, "/") }
}

// WithLogger logs each request at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new API client.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		scopesPath:  DefaultScopesPath,
		clientsPath: DefaultClientsPath,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the {"data": ...} wrapper of every API response.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
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
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("decode response: missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}

	var apiErr struct {
		Errors  json.RawMessage `json:"errors"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(respBody, &apiErr) != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	if len(apiErr.Errors) > 0 {
		var fields map[string][]string
		if json.Unmarshal(apiErr.Errors, &fields) == nil && len(fields) > 0 {
			httpErr.Errors = fields
			return httpErr
		}
	}
	switch {
	case apiErr.Error != "":
		httpErr.Message = apiErr.Error
	case apiErr.Message != "":
		httpErr.Message = apiErr.Message
	}
	return httpErr
}
