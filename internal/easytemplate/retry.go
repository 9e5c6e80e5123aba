package easytemplate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// RetryPolicy bounds how rate-limited calls are retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the first backoff; each further retry doubles it.
	BaseDelay time.Duration
	// MaxDelay caps any single wait, including server hints. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultRetryPolicy retries three times, waiting 2s, 4s and 8s unless the
// server says otherwise.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
	}
}

// Delay returns the wait before retry number attempt (0-based). A positive
// hint from the server takes precedence over the exponential schedule.
func (p RetryPolicy) Delay(attempt int, hint time.Duration) time.Duration {
	d := hint
	if d <= 0 {
		d = p.BaseDelay << attempt
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// withRetry runs fn, retrying only when it fails with HTTP 429. Every other
// failure, and the last 429, is returned as is.
func withRetry[T any](
	ctx context.Context,
	c *Client,
	op string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		var etErr *Error
		if !errors.As(err, &etErr) || etErr.StatusCode != http.StatusTooManyRequests {
			return zero, err
		}
		c.observer.RateLimited(op)

		if attempt >= c.policy.MaxRetries {
			c.logger.Warn("rate limited, retries exhausted",
				slog.String("op", op),
				slog.Int("attempts", attempt+1),
			)
			return zero, err
		}

		delay := c.policy.Delay(attempt, etErr.RetryAfter)
		c.observer.Retry(op)
		c.logger.Warn("rate limited, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
		)

		if sleepErr := c.sleepFunc(ctx, delay); sleepErr != nil {
			return zero, &Error{
				Kind:   KindRateLimited,
				Detail: "canceled while waiting to retry: " + sleepErr.Error(),
				Err:    sleepErr,
			}
		}
	}
}
