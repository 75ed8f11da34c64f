package etl

import (
	"context"
	"time"

	"github.com/mpawlak/statsync/pkg/logger"
)

// RetryPolicy bounds how often a batch write is attempted and how long to
// back off between attempts. Quota/rate-limit failures back off on a 3^k
// curve instead of 2^k to give the destination more room to recover.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Do invokes op up to MaxRetries times. Permanent errors (malformed records,
// missing key fields) are returned immediately without further attempts.
// When all attempts fail the last error is wrapped in
// BatchWriteExhaustedError. The backoff sleep is cut short by context
// cancellation.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if isPermanent(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		delay := p.backoff(attempt, isQuotaError(lastErr))
		logger.Warnf("attempt %d/%d failed: %v, retrying in %v", attempt, attempts, lastErr, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &BatchWriteExhaustedError{Attempts: attempts, Cause: lastErr}
}

// backoff computes the delay before retry attempt k (1-indexed):
// BaseDelay * 2^(k-1), or BaseDelay * 3^(k-1) for quota errors.
func (p RetryPolicy) backoff(attempt int, quota bool) time.Duration {
	factor := time.Duration(1)
	base := time.Duration(2)
	if quota {
		base = 3
	}
	for i := 1; i < attempt; i++ {
		factor *= base
	}
	return p.BaseDelay * factor
}
