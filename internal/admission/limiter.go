// Package admission implements per-caller request rate limiting with fixed
// windows that reset lazily.
package admission

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Class names a rate limit policy.
type Class string

const (
	ClassGeneral Class = "general"
	ClassIngest  Class = "ingest"
)

// Policy is the number of requests allowed per window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicies returns the built-in policies: 100 requests per minute in
// general and 5 uploads per ten minutes.
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassGeneral: {Limit: 100, Window: time.Minute},
		ClassIngest:  {Limit: 5, Window: 10 * time.Minute},
	}
}

// Decision is the outcome of one Check.
type Decision struct {
	Allowed bool
	// Count is the number of requests seen in the current window, this one included.
	Count   int64
	Limit   int
	ResetAt time.Time
	// RetryAfter is set when the request is denied. It is always at least one second.
	RetryAfter time.Duration
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// CounterStore counts requests per key in fixed windows.
// Increment must be atomic per key: it starts a new window of the given
// length when the key has none or its window has ended, adds one, and
// returns the new count with the window's end.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (count int64, resetAt time.Time, err error)
}

// Limiter applies policies to callers using a CounterStore.
type Limiter struct {
	store    CounterStore
	policies map[Class]Policy
	now      func() time.Time
}

// NewLimiter creates a Limiter. Missing classes fall back to DefaultPolicies.
func NewLimiter(store CounterStore, policies map[Class]Policy) *Limiter {
	merged := DefaultPolicies()
	for class, p := range policies {
		merged[class] = p
	}
	return &Limiter{
		store:    store,
		policies: merged,
		now:      time.Now,
	}
}

// Check counts one request of identityKey against class.
// A store failure allows the request and is returned alongside the decision
// so that the caller can log it.
func (l *Limiter) Check(ctx context.Context, identityKey string, class Class) (Decision, error) {
	policy, ok := l.policies[class]
	if !ok {
		return Decision{Allowed: true}, fmt.Errorf("unknown rate limit class %q", class)
	}
	if policy.Limit <= 0 {
		return Decision{Allowed: true, Limit: policy.Limit}, nil
	}
	if identityKey == "" {
		identityKey = "unknown"
	}

	now := l.now()
	count, resetAt, err := l.store.Increment(ctx, string(class)+":"+identityKey, policy.Window, now)
	if err != nil {
		return Decision{Allowed: true, Limit: policy.Limit}, fmt.Errorf("rate limit store: %w", err)
	}

	d := Decision{
		Allowed: count <= int64(policy.Limit),
		Count:   count,
		Limit:   policy.Limit,
		ResetAt: resetAt,
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(now)
		if d.RetryAfter < time.Second {
			d.RetryAfter = time.Second
		}
	}
	return d, nil
}

// Policy returns the policy of a class.
func (l *Limiter) Policy(class Class) (Policy, bool) {
	p, ok := l.policies[class]
	return p, ok
}
