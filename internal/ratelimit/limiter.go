// Package ratelimit implements fixed-window request throttling keyed by
// sender or caller identity. A window resets entirely when a hit lands after
// expiry; there is no sliding computation.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Scope prefixes counter keys so inbound-reply and outbound-send throttling
// never share windows.
type Scope string

const (
	ScopeInboundReply Scope = "inbound-reply"
	ScopeOutboundSend Scope = "outbound-send"
)

// CounterStore persists fixed-window counters. Hit must be atomic: two
// concurrent hits on the same key must observe distinct counts.
type CounterStore interface {
	// Hit increments the counter for key, creating a fresh window when none
	// exists or the previous one has expired. Returns the post-increment
	// count and the start of the current window.
	Hit(ctx context.Context, key string, window time.Duration) (count int64, windowStart time.Time, err error)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds returns the wait hint rounded up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int((d.RetryAfter + time.Second - 1) / time.Second)
}

// Limiter applies a fixed-window cap on top of a CounterStore.
type Limiter struct {
	store  CounterStore
	scope  Scope
	max    int
	window time.Duration
	now    func() time.Time
}

// NewLimiter builds a limiter for one scope. Window defaults to one hour
// when non-positive.
func NewLimiter(store CounterStore, scope Scope, max int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Hour
	}
	return &Limiter{
		store:  store,
		scope:  scope,
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Allow registers a hit for identity and decides whether the call may
// proceed. The count is incremented before comparison, so two simultaneous
// calls can never both observe a free slot; denied calls keep counting
// within the window they landed in.
func (l *Limiter) Allow(ctx context.Context, identity string) (Decision, error) {
	key := fmt.Sprintf("%s:%s", l.scope, identity)

	count, windowStart, err := l.store.Hit(ctx, key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit hit %s: %w", key, err)
	}

	d := Decision{
		Allowed: count <= int64(l.max),
		Limit:   l.max,
	}

	if remaining := int64(l.max) - count; remaining > 0 {
		d.Remaining = int(remaining)
	}

	if !d.Allowed {
		elapsed := l.now().Sub(windowStart)
		if wait := l.window - elapsed; wait > 0 {
			d.RetryAfter = wait
		}
	}

	return d, nil
}
