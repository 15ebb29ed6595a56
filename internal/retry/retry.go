// Package retry implements exponential backoff with jitter for tool and LLM
// calls.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes a backoff schedule.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Factor      float64
	Max         time.Duration
	Jitter      float64 // fraction, e.g. 0.2 for ±20%
}

// DefaultPolicy is the standard backoff schedule: 0.5s base, doubling each
// attempt, capped at 5s, with ±20% jitter.
func DefaultPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Base:        500 * time.Millisecond,
		Factor:      2,
		Max:         5 * time.Second,
		Jitter:      0.2,
	}
}

// Delay returns the backoff delay that follows failed attempt N (0-indexed),
// with jitter.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.Base)
	for i := 0; i < attempt; i++ {
		d *= p.Factor
	}
	if cap := float64(p.Max); d > cap {
		d = cap
	}
	if p.Jitter > 0 {
		spread := d * p.Jitter
		d += (rand.Float64()*2 - 1) * spread
		if d < 0 {
			d = 0
		}
	}
	return time.Duration(d)
}

// TerminalFunc reports whether err should stop retrying immediately. Injected
// by the caller since the classification lives in internal/apperr.
type TerminalFunc func(error) bool

// Do runs fn up to policy.MaxAttempts times, sleeping according to Delay
// between attempts, honoring ctx cancellation, and stopping early when
// isTerminal(err) is true. Returns the last error on exhaustion.
func Do(ctx context.Context, policy Policy, isTerminal TerminalFunc, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if isTerminal != nil && isTerminal(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Delay(attempt)):
		}
	}
	return lastErr
}
