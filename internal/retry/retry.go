// Package retry implements bounded exponential backoff with jitter for
// the OCR submission flow.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/docuscan/internal/errors"
)

// Policy bounds attempts and spaces retries. Only errors flagged
// retryable trigger another attempt; everything else propagates on
// first occurrence.
type Policy struct {
	// MaxAttempts is the total attempt budget (1 initial + retries).
	MaxAttempts int
	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// sleep is swapped out by tests.
	sleep func(context.Context, time.Duration) error
}

// Default returns the standard policy: 3 attempts total, 1s base delay.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// Backoff computes the delay before the given attempt (attempt >= 2):
// base * 2^(attempt-2) plus a uniform jitter in [0, 0.5) of the delay,
// so concurrent clients do not retry in lockstep.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 2)
	jitter := time.Duration(rand.Float64() * 0.5 * float64(delay))
	return delay + jitter
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
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

// Do runs fn under the policy. Cancellation is checked at the top of
// every attempt and during backoff sleeps, and is never itself retried.
// When all attempts are exhausted the last observed error propagates.
func Do[T any](ctx context.Context, p Policy, logger *zap.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, errors.Wrap(err, errors.KindCancelled, "processing cancelled")
		}

		if attempt > 1 {
			delay := p.Backoff(attempt)
			logger.Info("Retrying OCR submission",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.MaxAttempts),
				zap.Duration("delay", delay),
			)
			if err := p.wait(ctx, delay); err != nil {
				return zero, errors.Wrap(err, errors.KindCancelled, "processing cancelled")
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errors.Retryable(err) {
			return zero, err
		}
		logger.Warn("OCR submission attempt failed",
			zap.Int("attempt", attempt),
			zap.String("kind", string(errors.KindOf(err))),
			zap.Error(err),
		)
	}

	if lastErr != nil {
		return zero, lastErr
	}
	return zero, errors.New(errors.KindUnknown,
		fmt.Sprintf("failed after %d attempts", p.MaxAttempts))
}
