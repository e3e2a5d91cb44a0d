package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// HTTPError is an API response with a non-2xx status.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string // server-provided message, if the body carried one
	Body       string
	RetryAfter string // Retry-After header, if any
	Attempts   int
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsServerFault reports a 5xx status.
func (e *HTTPError) IsServerFault() bool {
	return e.StatusCode >= 500
}

// IsRetryable reports whether the status is worth another attempt:
// server faults and 429 Too Many Requests.
func (e *HTTPError) IsRetryable() bool {
	return e.IsServerFault() || e.StatusCode == http.StatusTooManyRequests
}

// NetworkError is a transport failure: the connection could not be
// established, broke mid-request, or the attempt timed out.
type NetworkError struct {
	Method   string
	URL      string
	Timeout  bool
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	kind := "network error"
	if e.Timeout {
		kind = "timeout"
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, kind, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Kind returns "timeout" or "network".
func (e *NetworkError) Kind() string {
	if e.Timeout {
		return "timeout"
	}
	return "network"
}

// IsRetryable returns true if err is a transient failure: a network error,
// a timeout, a 5xx response or a 429.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	return false
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// classifyTransport wraps an error returned by http.Client.Do.
func classifyTransport(method, url string, err error) *NetworkError {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		timeout = true
	}
	return &NetworkError{Method: method, URL: url, Timeout: timeout, Err: err}
}

func setAttempts(err error, n int) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		httpErr.Attempts = n
		return
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		netErr.Attempts = n
	}
}
