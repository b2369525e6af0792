// Package ratelimit provides request rate limiting behind a small Limiter
// capability. Counters live in a CounterStore so several processes can share
// one budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Defaults match one request per second averaged over a minute.
const (
	DefaultLimit  = 60
	DefaultWindow = time.Minute
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, at least one second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now).Round(time.Second)
	if wait < time.Second {
		return time.Second
	}
	return wait
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// CounterStore increments a per-key counter inside a fixed window that
// starts at the first hit. It returns the count after the increment and the
// time the current window ends.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// FixedWindow allows limit hits per key per window.
type FixedWindow struct {
	store  CounterStore
	limit  int
	window time.Duration
}

// NewFixedWindow returns a fixed-window limiter over store. Non-positive
// limit or window fall back to the defaults.
func NewFixedWindow(store CounterStore, limit int, window time.Duration) *FixedWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &FixedWindow{store: store, limit: limit, window: window}
}

func (f *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	count, resetAt, err := f.store.Incr(ctx, key, f.window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	remaining := f.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(f.limit),
		Limit:     f.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
