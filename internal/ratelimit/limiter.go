// Package ratelimit implements a per-provider sliding-window rate limiter
// over requests per minute and tokens per minute.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config holds the limits enforced by one Limiter.
type Config struct {
	MaxRequestsPerMinute int
	MaxTokensPerMinute   int
}

// DefaultConfig returns the limits applied when a provider has no
// explicit configuration.
func DefaultConfig() Config {
	return Config{
		MaxRequestsPerMinute: 60,
		MaxTokensPerMinute:   100000,
	}
}

const window = 60 * time.Second

type tokenEntry struct {
	at     time.Time
	tokens int
}

// Limiter admits calls for a single provider identity. It keeps two
// sliding-window ledgers: request timestamps and token entries. Safe for
// concurrent use; the lock is never held across a wait.
type Limiter struct {
	mu       sync.Mutex
	cfg      Config
	requests []time.Time
	tokens   []tokenEntry
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a Limiter with the given config.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CheckAndWait blocks until the call is admitted under both the request and
// token budgets, then records a request timestamp and a token entry carrying
// estimatedTokens. After any wait the check restarts from scratch because
// the other budget may still be exhausted.
func (l *Limiter) CheckAndWait(ctx context.Context, estimatedTokens int) error {
	for {
		wait, admitted := l.tryAdmit(estimatedTokens)
		if admitted {
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAdmit performs one admission attempt. It returns the wait duration
// until the relevant oldest entry leaves the window when admission fails.
func (l *Limiter) tryAdmit(estimatedTokens int) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.requests) >= l.cfg.MaxRequestsPerMinute {
		return l.waitFor(l.requests[0], now), false
	}

	used := 0
	for _, e := range l.tokens {
		used += e.tokens
	}
	if used+estimatedTokens > l.cfg.MaxTokensPerMinute && len(l.tokens) > 0 {
		return l.waitFor(l.tokens[0].at, now), false
	}

	l.requests = append(l.requests, now)
	l.tokens = append(l.tokens, tokenEntry{at: now, tokens: estimatedTokens})
	return 0, true
}

func (l *Limiter) waitFor(oldest, now time.Time) time.Duration {
	wait := oldest.Add(window).Sub(now)
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// RecordActualUsage overwrites the most recent token entry with the real
// usage reported by the provider, keeping window accounting accurate
// without re-running admission.
func (l *Limiter) RecordActualUsage(tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tokens) == 0 {
		return
	}
	l.tokens[len(l.tokens)-1].tokens = tokens
}

// UsageSnapshot is a point-in-time view of in-window consumption.
type UsageSnapshot struct {
	Requests int
	Tokens   int
}

// Usage prunes expired entries and reports current in-window consumption.
func (l *Limiter) Usage() UsageSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())

	used := 0
	for _, e := range l.tokens {
		used += e.tokens
	}
	return UsageSnapshot{Requests: len(l.requests), Tokens: used}
}

// Remaining prunes expired entries and reports leftover in-window capacity.
func (l *Limiter) Remaining() UsageSnapshot {
	u := l.Usage()
	return UsageSnapshot{
		Requests: max(0, l.cfg.MaxRequestsPerMinute-u.Requests),
		Tokens:   max(0, l.cfg.MaxTokensPerMinute-u.Tokens),
	}
}

// Reset clears both ledgers.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests = nil
	l.tokens = nil
}

// prune drops entries older than the sliding window. Caller holds the lock.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-window)

	i := 0
	for i < len(l.requests) && !l.requests[i].After(cutoff) {
		i++
	}
	l.requests = l.requests[i:]

	j := 0
	for j < len(l.tokens) && !l.tokens[j].at.After(cutoff) {
		j++
	}
	l.tokens = l.tokens[j:]
}
