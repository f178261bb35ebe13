// Package retry re-invokes provider calls that failed transiently, using
// exponential backoff with jitter.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
)

// Config controls backoff timing and the attempt ceiling.
type Config struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64

	// OnRetry fires before each wait, for logging and telemetry only.
	// It must not affect control flow.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultConfig returns the standard retry policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
	}
}

var retryablePatterns = []string{
	"rate limit",
	"429",
	"500",
	"502",
	"503",
	"504",
	"timeout",
	"timed out",
	"econnreset",
	"econnrefused",
	"enotfound",
	"socket hang up",
	"network",
	"temporarily unavailable",
}

// IsRetryable classifies an error as transient. Rate-limit errors always
// qualify; provider API errors qualify by status code; everything else is
// matched against known transient failure phrases. Pure, no side effects.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *domain.RateLimitErr
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var apiErr *domain.APIErr
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Delay computes the backoff before attempt n (1-indexed):
// min(initial*multiplier^(n-1), max), jittered by plus or minus 10% of the
// capped value. rnd must yield values in [0,1).
func Delay(attempt int, cfg Config, rnd func() float64) time.Duration {
	base := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	capped := math.Min(base, float64(cfg.MaxDelay))

	jitter := capped * 0.1 * (2*rnd() - 1)
	return time.Duration(capped + jitter)
}

// Do invokes fn up to cfg.MaxAttempts times. Fatal errors abort immediately;
// after exhausting attempts the last error is returned unchanged so callers
// can still match on its kind. A vendor retry-after hint is honored as a
// lower bound on the computed delay.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == cfg.MaxAttempts {
			return zero, err
		}

		delay := Delay(attempt, cfg, rand.Float64)

		var rateLimitErr *domain.RateLimitErr
		if errors.As(err, &rateLimitErr) && rateLimitErr.RetryAfter > delay {
			delay = rateLimitErr.RetryAfter
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(err, attempt, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// Wrap returns a zero-argument function that runs fn under the given retry
// policy every time it is invoked.
func Wrap[T any](cfg Config, fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, cfg, fn)
	}
}
