package apiclient

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Default retry settings.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// RetryState is the retry bookkeeping of one logical request. It is a
// value: each retry derives a new state instead of mutating the old one.
type RetryState struct {
	// Attempt counts retries already scheduled; 0 before the first retry.
	Attempt int
}

// Next returns the state after one more retry.
func (s RetryState) Next() RetryState {
	return RetryState{Attempt: s.Attempt + 1}
}

// RetryPolicy decides whether and when a failed attempt is retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns 3 retries, 1s base, 10s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultRetryDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// ShouldRetry reports whether err qualifies for another attempt given the
// retries already used.
func (p RetryPolicy) ShouldRetry(state RetryState, err error) bool {
	return state.Attempt < p.MaxRetries && IsRetryable(err)
}

// Backoff returns min(base * 2^attempt, max).
func (p RetryPolicy) Backoff(state RetryState) time.Duration {
	d := p.BaseDelay
	for i := 0; i < state.Attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Delay returns the wait before the next attempt. A Retry-After header on a
// rate-limited response overrides the computed backoff, still capped at
// MaxDelay.
func (p RetryPolicy) Delay(state RetryState, err error) time.Duration {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter != "" {
		if secs, convErr := strconv.Atoi(strings.TrimSpace(httpErr.RetryAfter)); convErr == nil && secs >= 0 {
			d := time.Duration(secs) * time.Second
			if d > p.MaxDelay {
				d = p.MaxDelay
			}
			return d
		}
	}
	return p.Backoff(state)
}

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
