package client

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

	"github.com/dmitrijs2005/timekeeper/internal/common"
)

const (
	// APIPrefix is prepended to every endpoint passed to Do.
	APIPrefix = "/api/v1"

	healthPath     = "/health"
	defaultTimeout = 12 * time.Second
	maxErrorBody   = 4 << 10
)

type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

type Option func(*HTTPClient)

func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.http = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewHTTPClient returns a client for the server at baseURL (scheme + host,
// without the API prefix). tokens may be nil for unauthenticated use.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) (*HTTPClient, error) {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("server url %q: %w", baseURL, common.ErrorInvalidArgument)
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) Do(ctx context.Context, method, endpoint string, payload json.RawMessage) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+APIPrefix+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	return c.send(ctx, req)
}

// Ping checks the server's health endpoint. It never sends the credential.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	raw, err := c.send(ctx, req)
	if err != nil {
		return err
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Status != "healthy" {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type tokenKey struct{}

// WithToken returns a context whose requests carry token instead of the
// TokenSource's credential. Used to verify a credential before storing it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *HTTPClient) authorize(ctx context.Context, req *http.Request) error {
	if token, ok := ctx.Value(tokenKey{}).(string); ok {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		return nil
	}
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("credential: %w", err)
	}
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return nil
}

func (c *HTTPClient) send(ctx context.Context, req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, mapTransportError(ctx, err)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		return raw, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, mapStatus(resp.StatusCode, raw)
}

// mapTransportError turns a failed round trip into ErrUnavailable unless the
// caller's own context was cancelled.
func mapTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func mapStatus(code int, body []byte) error {
	detail := errorDetail(body)
	switch {
	case code == http.StatusUnauthorized:
		return &APIError{StatusCode: code, Detail: detail, kind: ErrUnauthorized}
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable, code == http.StatusGatewayTimeout:
		return &APIError{StatusCode: code, Detail: detail, kind: ErrUnavailable}
	case code >= 500:
		return &APIError{StatusCode: code, Detail: detail, kind: ErrServer}
	default:
		return &APIError{StatusCode: code, Detail: detail, kind: ErrRejected}
	}
}

// errorDetail extracts FastAPI's {"detail": ...} message; validation errors
// carry a list there, which is returned as raw JSON.
func errorDetail(body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil || len(e.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return string(e.Detail)
}
