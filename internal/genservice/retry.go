package genservice

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/tourforge-core/internal/infrastructure/config"
)

// Policy bounds a retried operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// PerAttemptTimeout is the deadline applied to each individual attempt.
	// Zero means no per-attempt deadline beyond the caller's context.
	PerAttemptTimeout time.Duration

	// BaseDelay seeds the linear backoff: the wait before attempt k+1 is
	// BaseDelay * k. Linear rather than exponential because generation
	// jobs already take tens of seconds; exponential gaps would dwarf the
	// work itself.
	BaseDelay time.Duration
}

// PolicyFromConfig builds a Policy from retry configuration.
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		MaxAttempts:       cfg.MaxAttempts,
		PerAttemptTimeout: time.Duration(cfg.PerAttemptTimeout) * time.Second,
		BaseDelay:         time.Duration(cfg.BaseDelay) * time.Millisecond,
	}
}

// Operation is one attempt of a retryable unit of work, returning a
// result reference on success.
type Operation func(ctx context.Context) (string, error)

// Retry runs op under the policy, returning the first success.
//
// Each attempt gets a fresh context carrying the per-attempt timeout. An
// attempt that exceeds it fails with context.DeadlineExceeded and counts
// against the budget. Cancellation of the parent ctx stops the loop
// immediately, including mid-backoff.
//
// If every attempt fails, the last attempt's error is wrapped as
// RetriesExhausted with the attempt count attached.
func Retry(ctx context.Context, policy Policy, op Operation) (string, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := policy.BaseDelay * time.Duration(attempt-1)
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return "", &JobError{Kind: KindCanceled, Detail: "retry cancelled during backoff", Err: ctx.Err()}
				case <-timer.C:
				}
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if policy.PerAttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.PerAttemptTimeout)
		}

		result, err := op(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}

		// Caller cancellation is not a retryable failure.
		if ctx.Err() != nil {
			return "", &JobError{Kind: KindCanceled, Detail: "retry cancelled", Err: ctx.Err()}
		}

		lastErr = err
	}

	return "", &JobError{
		Kind:     KindRetriesExhausted,
		Detail:   fmt.Sprintf("all %d attempts failed", maxAttempts),
		Attempts: maxAttempts,
		Err:      lastErr,
	}
}
