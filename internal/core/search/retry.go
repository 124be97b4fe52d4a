package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultMaxRetries   = 3
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 30 * time.Second
)

// RetryConfig configures retries of throttled and failed index requests.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	// MaxDelay caps both the exponential delay and a server Retry-After hint.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
	}
}

// StatusError is a non-200 index response.
type StatusError struct {
	Code int
	Body string
	// RetryAfter is the throttling hint of a 429 or 503 response.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: status %d", e.sentinel(), e.Code)
	}

	return fmt.Sprintf("%v: status %d, body: %s", e.sentinel(), e.Code, e.Body)
}

// Unwrap maps 5xx and 429 to ErrServerError and everything else to ErrBadRequest.
func (e *StatusError) Unwrap() error {
	return e.sentinel()
}

func (e *StatusError) sentinel() error {
	if e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests {
		return ErrServerError
	}

	return ErrBadRequest
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}

// withRetry runs op and retries ErrServerError. Delays double from
// InitialDelay unless the server sent a Retry-After hint.
func withRetry[T any](ctx context.Context, cfg RetryConfig, op func() (T, error)) (T, error) {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}

	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}

	var (
		result T
		err    error
	)

	backoff := cfg.InitialDelay

	for attempt := 0; ; attempt++ {
		result, err = op()
		if err == nil || !errors.Is(err, ErrServerError) || attempt == cfg.MaxRetries {
			return result, err
		}

		delay := backoff
		backoff *= 2

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
			delay = statusErr.RetryAfter
		}

		delay = min(delay, cfg.MaxDelay)

		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return result, fmt.Errorf("retry interrupted: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
