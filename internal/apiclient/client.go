// Package apiclient is the HTTP gateway to the course API. It attaches the
// bearer token to every request and retries transient failures with
// exponential backoff, so callers only see a terminal success or failure.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/me/coursebook/internal/logging"
	"github.com/me/coursebook/pkg/model"
)

// TokenSource supplies the current bearer token. An empty string means
// no token is sent. ctx is the request context.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration // per attempt
	Retry   RetryPolicy
}

// DefaultConfig returns the default timeout and retry policy for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: DefaultTimeout,
		Retry:   DefaultRetryPolicy(),
	}
}

// Request is one logical API call. The body is sent unchanged on every
// attempt.
type Request struct {
	Method string
	Path   string // joined to the base URL
	Header http.Header
	Body   []byte
}

// Response is a successful (2xx) API response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is an HTTP client for the course API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     RetryPolicy
	tokens     TokenSource
	logger     *slog.Logger
	sleep      sleepFunc
}

// Option configures optional Client dependencies.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is
// overwritten by Config.Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSleep replaces the backoff wait, e.g. to record delays in tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

// New creates a Client. tokens may be nil for anonymous use. The retry
// policy is clamped to at most DefaultMaxRetries retries and a
// DefaultMaxDelay backoff ceiling.
func New(cfg Config, tokens TokenSource, logger *slog.Logger, opts ...Option) *Client {
	def := DefaultRetryPolicy()
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = def.BaseDelay
	}
	if cfg.Retry.MaxDelay <= 0 || cfg.Retry.MaxDelay > DefaultMaxDelay {
		cfg.Retry.MaxDelay = def.MaxDelay
	}
	cfg.Retry.MaxRetries = min(max(cfg.Retry.MaxRetries, 0), DefaultMaxRetries)

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		policy: cfg.Retry,
		tokens: tokens,
		logger: logging.OrDiscard(logger).With("component", "apiclient"),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Timeout = cfg.Timeout
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req, retrying transient failures. A returned error is the
// failure of the last attempt, unchanged apart from its attempt count:
// *NetworkError, *HTTPError, a request-construction error, or the context
// error if ctx ended first.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	reqID := "req_" + uuid.New().String()[:8]
	url := c.baseURL + req.Path
	logger := c.logger.With("method", req.Method, "url", url, "request_id", reqID)

	state := RetryState{}
	for {
		resp, err := c.attempt(ctx, req, url, reqID)
		if err == nil {
			if state.Attempt > 0 {
				logger.Info("request succeeded after retry", "attempts", state.Attempt+1)
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		setAttempts(err, state.Attempt+1)

		if !c.policy.ShouldRetry(state, err) {
			if state.Attempt > 0 && IsRetryable(err) {
				logger.Warn("retries exhausted", "attempts", state.Attempt+1, "error", err)
			}
			return nil, err
		}

		delay := c.policy.Delay(state, err)
		state = state.Next()
		logger.Warn("retrying request", "attempt", state.Attempt, "delay", delay, "error", err)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt performs a single HTTP round trip.
func (c *Client) attempt(ctx context.Context, req *Request, url, reqID string) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)
	if c.tokens != nil {
		if tok := c.tokens.Token(ctx); tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	c.logger.Debug("HTTP request", "method", req.Method, "url", url)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(req.Method, url, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classifyTransport(req.Method, url, fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("HTTP response", "status", httpResp.StatusCode, "bytes", len(respBody))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     req.Method,
			URL:        url,
			StatusCode: httpResp.StatusCode,
			Message:    serverMessage(respBody),
			Body:       string(respBody),
			RetryAfter: httpResp.Header.Get("Retry-After"),
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// serverMessage extracts "message" (or "error.message") from an error body.
func serverMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	if envelope.Error != nil {
		return envelope.Error.Message
	}
	return ""
}

// do marshals body, sends the request and parses the envelope.
func (c *Client) do(ctx context.Context, method, path string, body any) (*model.Response, error) {
	req := &Request{Method: method, Path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req.Body = data
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var envelope model.Response
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return &envelope, nil
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return &envelope, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*model.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*model.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*model.Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*model.Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// DecodeData unmarshals the envelope's data field into dest.
func DecodeData(resp *model.Response, dest any) error {
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("decode response: empty data")
	}
	if err := json.Unmarshal(resp.Data, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
