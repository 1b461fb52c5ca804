// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for the entity API client.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/pdiddy/paper-reader/internal/logger"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// retryable responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// MaxRetryAfter caps how long a server-provided Retry-After can make us wait.
var MaxRetryAfter = 30 * time.Second

const defaultMaxRetries = 3

// Retryable reports whether a response status should be retried: HTTP 429
// (Too Many Requests) and 503 (Service Unavailable).
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes an HTTP request and retries retryable statuses with
// exponential backoff starting at RetryBaseDelay. A Retry-After header in
// seconds overrides the computed delay, up to MaxRetryAfter.
//
// When maxRetries is 0 the default (3) is used. Requests with a body must
// set GetBody (http.NewRequest does for bytes and strings readers) so the
// body can be replayed. If the context is cancelled during a backoff wait
// the function returns ctx.Err(). After exhausting retries the last
// response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, log *logger.Logger) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	log = logger.OrNop(log)

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if after := retryAfter(resp.Header.Get("Retry-After")); after > 0 {
			backoff = after
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		log.Debug().
			Str("url", req.URL.String()).
			Int("status", resp.StatusCode).
			Dur("backoff", backoff).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Msg("retrying request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > MaxRetryAfter {
		return MaxRetryAfter
	}
	return d
}
