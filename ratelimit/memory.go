package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process memory. A janitor goroutine drops
// expired windows; Close stops it.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewMemoryStore returns a store whose janitor runs every interval.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	if interval <= 0 {
		interval = DefaultWindow
	}
	m := &MemoryStore{
		counters: make(map[string]*counter),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go m.cleanup(interval)
	return m
}

func (m *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{resetAt: now.Add(window)}
		m.counters[key] = c
	}
	c.count++
	return c.count, c.resetAt, nil
}

// Len reports how many keys are tracked.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}

// Sweep removes expired windows.
func (m *MemoryStore) Sweep() {
	now := m.now()
	m.mu.Lock()
	for key, c := range m.counters {
		if !now.Before(c.resetAt) {
			delete(m.counters, key)
		}
	}
	m.mu.Unlock()
}

func (m *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// Close stops the janitor.
func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}
