// Package gateway is the HTTP client for the retailer's REST backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blakitny/storefront/pkg/config"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/logger"
)

const (
	defaultTimeout      = 10 * time.Second
	errorBodyReadLimit  = 1024
	defaultRefreshPause = time.Second
)

// Client talks to the backend on behalf of every session. Authenticated calls go through Session.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	refreshBackoff time.Duration
	logg           *logger.Logger
	sleep          func(context.Context, time.Duration) error
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRefreshBackoff sets the pause taken before and after a token refresh.
func WithRefreshBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.refreshBackoff = d
		}
	}
}

// WithLogger attaches a logger for refresh and failure diagnostics.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// NewClient builds a backend client rooted at baseURL (e.g. https://shop.example/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("backend base url is required")
	}
	client := &Client{
		baseURL:        trimmed,
		httpClient:     &http.Client{Timeout: defaultTimeout},
		refreshBackoff: defaultRefreshPause,
		sleep:          pause,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.logg == nil {
		client.logg = logger.Nop()
	}
	return client, nil
}

// NewFromConfig builds a client from the backend section of the config.
func NewFromConfig(cfg config.BackendConfig, logg *logger.Logger) (*Client, error) {
	return NewClient(cfg.BaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithRefreshBackoff(cfg.RefreshBackoff),
		WithLogger(logg),
	)
}

type request struct {
	method string
	path   string
	body   any
	bearer string
}

// do executes one request and decodes a 2xx body into dest (when dest is non-nil).
// It returns the HTTP status alongside the error so callers can branch on 401.
func (c *Client) do(ctx context.Context, req request, dest any) (int, error) {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build backend request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", req.method, req.path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeForStatus(resp.StatusCode), cause, fmt.Sprintf("%s %s failed", req.method, req.path)).
			WithUpstreamStatus(resp.StatusCode)
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s %s", req.method, req.path))
	}
	return resp.StatusCode, nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
