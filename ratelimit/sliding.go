package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow is an in-memory per-key sliding-window limiter. It keeps the
// timestamp of every allowed hit inside the window, so it suits low-volume
// endpoints such as metric beacons.
type SlidingWindow struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	stop   chan struct{}
	once   sync.Once
}

// NewSlidingWindow allows max hits per key within any window-long span.
func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	l := &SlidingWindow{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		stop:   make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *SlidingWindow) prune(key string, cutoff time.Time) []time.Time {
	hits := l.hits[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Allow records a hit for key when it is under the limit.
func (l *SlidingWindow) Allow(_ context.Context, key string) (Decision, error) {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(key, cutoff)
	d := Decision{Limit: l.max}
	if len(kept) >= l.max {
		l.hits[key] = kept
		d.ResetAt = now.Add(l.window)
		if len(kept) > 0 {
			d.ResetAt = kept[0].Add(l.window)
		}
		return d, nil
	}
	kept = append(kept, now)
	l.hits[key] = kept
	d.Allowed = true
	d.Remaining = l.max - len(kept)
	d.ResetAt = kept[0].Add(l.window)
	return d, nil
}

func (l *SlidingWindow) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for key := range l.hits {
				kept := l.prune(key, cutoff)
				if len(kept) == 0 {
					delete(l.hits, key)
				} else {
					l.hits[key] = kept
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (l *SlidingWindow) Close() error {
	l.once.Do(func() { close(l.stop) })
	return nil
}
