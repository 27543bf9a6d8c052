package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultRetryBase  = time.Second
)

// retryPolicy bounds doWithRetry. The wait before attempt n is
// base*n² plus up to half of that again as jitter.
type retryPolicy struct {
	maxRetries int
	base       time.Duration
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	base := time.Duration(attempt*attempt) * p.base
	return base + time.Duration(rand.Int64N(int64(base/2+1)))
}

// statusError is a non-2xx answer. Retryable for 5xx and 429.
type statusError struct {
	statusCode int
	body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.statusCode, e.body)
}

func (e *statusError) retryable() bool {
	return e.statusCode >= 500 || e.statusCode == http.StatusTooManyRequests
}

// doWithRetry executes an HTTP request, retrying network failures, 5xx and 429
// with backoff. Other responses, including non-2xx ones, are returned as-is.
func doWithRetry(ctx context.Context, client *http.Client, policy retryPolicy, buildReq func() (*http.Request, error), logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= policy.maxRetries; attempt++ {
		if attempt > 0 {
			wait := policy.backoff(attempt)
			logger.Warn("retrying request", "attempt", attempt+1, "backoff", wait, "err", lastErr)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		if se := (&statusError{statusCode: resp.StatusCode}); se.retryable() {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			se.body = string(body)
			lastErr = se
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("giving up after %d retries: %w", policy.maxRetries, lastErr)
}
