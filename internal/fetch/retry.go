package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Policy controls retry classification and backoff.
type Policy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	JitterFraction    float64
	RetryableStatuses []int
}

// RetryInterceptor wraps fetch calls with outcome classification and
// exponential backoff. A transient outcome is retried up to MaxRetries
// times; exhausting retries converts it into a permanent failure.
type RetryInterceptor struct {
	client    Client
	policy    Policy
	retryable map[int]bool
	logger    *slog.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryInterceptor(client Client, policy Policy, logger *slog.Logger) *RetryInterceptor {
	retryable := make(map[int]bool, len(policy.RetryableStatuses))
	for _, status := range policy.RetryableStatuses {
		retryable[status] = true
	}

	return &RetryInterceptor{
		client:    client,
		policy:    policy,
		retryable: retryable,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Execute runs the classified fetch through the retry middleware.
func (r *RetryInterceptor) Execute(ctx context.Context, url string) Outcome {
	return Chain(r.classify, r.Retry())(ctx, url)
}

// classify performs one attempt and maps it onto the outcome taxonomy:
// 2xx success, retryable or network-level failures transient, everything
// else permanent.
func (r *RetryInterceptor) classify(ctx context.Context, url string) Outcome {
	resp, err := r.client.Fetch(ctx, url)
	if err != nil {
		// Timeouts, resets and refused connections all surface here.
		return Transient(err.Error(), 0)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Success(resp.Body, resp.StatusCode)
	case r.retryable[resp.StatusCode]:
		return Transient(fmt.Sprintf("retryable status %d", resp.StatusCode), resp.StatusCode)
	default:
		return Permanent(fmt.Sprintf("status %d", resp.StatusCode), resp.StatusCode)
	}
}

// Retry returns the retry middleware. It is exported separately so the
// backoff behavior can be tested in isolation around a stub RoundTrip.
func (r *RetryInterceptor) Retry() Middleware {
	return func(next RoundTrip) RoundTrip {
		return func(ctx context.Context, url string) Outcome {
			var last Outcome

			for attempt := 0; ; attempt++ {
				last = next(ctx, url)
				last.Attempts = attempt + 1

				if last.Kind != OutcomeTransient {
					return last
				}

				if attempt >= r.policy.MaxRetries {
					last.Kind = OutcomePermanent
					last.Reason = fmt.Sprintf("retries exhausted after %d attempts: %s", last.Attempts, last.Reason)
					return last
				}

				delay := r.backoff(attempt)
				r.logger.Warn("transient fetch failure, backing off",
					"url", url,
					"attempt", attempt+1,
					"reason", last.Reason,
					"delay", delay)

				if err := r.sleep(ctx, delay); err != nil {
					last.Kind = OutcomePermanent
					last.Reason = fmt.Sprintf("cancelled during backoff: %s", err)
					return last
				}
			}
		}
	}
}

// backoff computes initialDelay * 2^attempt capped at MaxDelay, with
// bounded random jitter of +/- JitterFraction.
func (r *RetryInterceptor) backoff(attempt int) time.Duration {
	base := r.policy.InitialDelay
	for i := 0; i < attempt && base < r.policy.MaxDelay; i++ {
		base *= 2
	}
	if base > r.policy.MaxDelay {
		base = r.policy.MaxDelay
	}

	if r.policy.JitterFraction > 0 {
		spread := (rand.Float64()*2 - 1) * r.policy.JitterFraction
		base = time.Duration(float64(base) * (1 + spread))
	}

	if base > r.policy.MaxDelay {
		base = r.policy.MaxDelay
	}
	return base
}

// sleepContext sleeps without holding any lock or rate-limit token, so
// backoff never blocks other workers.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
