package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "ratelimit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// stores returns every CounterStore implementation driven by clk.
func stores(t *testing.T, clk *clock) map[string]CounterStore {
	mem := NewMemoryStore(time.Hour)
	mem.now = clk.now
	t.Cleanup(func() { mem.Close() })

	sq := newSQLiteStore(t)
	sq.now = clk.now

	return map[string]CounterStore{"memory": mem, "sqlite": sq}
}

func TestFixedWindowBlocksAfterLimit(t *testing.T) {
	for name, store := range stores(t, newClock()) {
		t.Run(name, func(t *testing.T) {
			l := NewFixedWindow(store, 3, time.Minute)
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				d, err := l.Allow(ctx, "203.0.113.10")
				require.NoError(t, err)
				assert.True(t, d.Allowed, "hit %d", i)
				assert.Equal(t, 3-i, d.Remaining)
				assert.Equal(t, 3, d.Limit)
			}
			d, err := l.Allow(ctx, "203.0.113.10")
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Equal(t, 0, d.Remaining)
		})
	}
}

func TestFixedWindowResetsAfterWindow(t *testing.T) {
	clk := newClock()
	for name, store := range stores(t, clk) {
		t.Run(name, func(t *testing.T) {
			l := NewFixedWindow(store, 1, time.Minute)
			ctx := context.Background()
			key := "reset-" + name

			d, err := l.Allow(ctx, key)
			require.NoError(t, err)
			require.True(t, d.Allowed)
			assert.WithinDuration(t, clk.now().Add(time.Minute), d.ResetAt, time.Millisecond)

			d, err = l.Allow(ctx, key)
			require.NoError(t, err)
			assert.False(t, d.Allowed)

			clk.advance(time.Minute)
			d, err = l.Allow(ctx, key)
			require.NoError(t, err)
			assert.True(t, d.Allowed, "expected hit after window to be allowed")
			assert.WithinDuration(t, clk.now().Add(time.Minute), d.ResetAt, time.Millisecond)
		})
	}
}

func TestFixedWindowIsPerKey(t *testing.T) {
	for name, store := range stores(t, newClock()) {
		t.Run(name, func(t *testing.T) {
			l := NewFixedWindow(store, 1, time.Minute)
			ctx := context.Background()

			d, _ := l.Allow(ctx, "203.0.113.30")
			assert.True(t, d.Allowed)
			d, _ = l.Allow(ctx, "203.0.113.31")
			assert.True(t, d.Allowed, "second key should be independent")
			d, _ = l.Allow(ctx, "203.0.113.30")
			assert.False(t, d.Allowed)
		})
	}
}

func TestFixedWindowDefaults(t *testing.T) {
	l := NewFixedWindow(NewMemoryStore(time.Hour), 0, 0)
	assert.Equal(t, DefaultLimit, l.limit)
	assert.Equal(t, DefaultWindow, l.window)
}

func TestSQLiteStoreSharedAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	la := NewFixedWindow(a, 2, time.Minute)
	lb := NewFixedWindow(b, 2, time.Minute)

	d, _ := la.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	d, _ = lb.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	d, _ = la.Allow(ctx, "k")
	assert.False(t, d.Allowed, "budget should be shared between handles")
}

func TestSQLiteStoreConcurrentIncr(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Incr(ctx, "busy", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, _, err := s.Incr(ctx, "busy", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(21), count)
}

func TestSQLiteStoreCleanup(t *testing.T) {
	clk := newClock()
	s := newSQLiteStore(t)
	s.now = clk.now
	ctx := context.Background()

	_, _, err := s.Incr(ctx, "old", time.Minute)
	require.NoError(t, err)
	clk.advance(30 * time.Second)
	_, _, err = s.Incr(ctx, "new", time.Minute)
	require.NoError(t, err)

	clk.advance(45 * time.Second)
	n, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStoreSweep(t *testing.T) {
	clk := newClock()
	m := NewMemoryStore(time.Hour)
	defer m.Close()
	m.now = clk.now

	ctx := context.Background()
	m.Incr(ctx, "a", time.Minute)
	m.Incr(ctx, "b", 2*time.Minute)
	require.Equal(t, 2, m.Len())

	clk.advance(90 * time.Second)
	m.Sweep()
	assert.Equal(t, 1, m.Len())
}

func TestSlidingWindowBlocksAfterMax(t *testing.T) {
	l := NewSlidingWindow(2, 200*time.Millisecond)
	defer l.Close()
	ctx := context.Background()
	ip := "203.0.113.10"

	d, _ := l.Allow(ctx, ip)
	if !d.Allowed {
		t.Fatalf("expected first attempt to be allowed")
	}
	d, _ = l.Allow(ctx, ip)
	if !d.Allowed {
		t.Fatalf("expected second attempt to be allowed")
	}
	d, _ = l.Allow(ctx, ip)
	if d.Allowed {
		t.Fatalf("expected third attempt to be blocked")
	}
	if d, _ = l.Allow(ctx, "203.0.113.11"); !d.Allowed {
		t.Fatalf("expected another key to be allowed")
	}
}

func TestSlidingWindowResetsAfterWindow(t *testing.T) {
	l := NewSlidingWindow(1, 150*time.Millisecond)
	defer l.Close()
	ctx := context.Background()
	ip := "203.0.113.20"

	if d, _ := l.Allow(ctx, ip); !d.Allowed {
		t.Fatalf("expected first attempt to be allowed")
	}
	if d, _ := l.Allow(ctx, ip); d.Allowed {
		t.Fatalf("expected second attempt to be blocked")
	}

	time.Sleep(200 * time.Millisecond)
	if d, _ := l.Allow(ctx, ip); !d.Allowed {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Now()
	tests := []struct {
		reset time.Time
		want  time.Duration
	}{
		{now.Add(42 * time.Second), 42 * time.Second},
		{now.Add(100 * time.Millisecond), time.Second},
		{now.Add(-time.Second), time.Second},
	}
	for _, tt := range tests {
		if got := (Decision{ResetAt: tt.reset}).RetryAfter(now); got != tt.want {
			t.Errorf("RetryAfter(%v) = %v, want %v", tt.reset.Sub(now), got, tt.want)
		}
	}
}

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("store down")
}

func serve(t *testing.T, mw echo.MiddlewareFunc, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Use(mw)
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/", ok)
	e.GET("/api/health", ok)
	e.GET("/public/*", ok)
	e.GET("/logo.png", ok)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "127.0.0.1:4321"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	clk := newClock()
	mem := NewMemoryStore(time.Hour)
	defer mem.Close()
	mem.now = clk.now

	mw := Middleware(Config{Limiter: NewFixedWindow(mem, 2, time.Minute), Now: clk.now})
	hdr := map[string]string{"X-Forwarded-For": "198.51.100.7"}

	rec := serve(t, mw, "/", hdr)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	serve(t, mw, "/", hdr)
	rec = serve(t, mw, "/", hdr)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too Many Requests", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec = serve(t, mw, "/", map[string]string{"X-Forwarded-For": "198.51.100.8"})
	assert.Equal(t, http.StatusOK, rec.Code, "other client should be unaffected")
}

func TestMiddlewareSkipsStaticAndHealth(t *testing.T) {
	mem := NewMemoryStore(time.Hour)
	defer mem.Close()
	mw := Middleware(Config{Limiter: NewFixedWindow(mem, 1, time.Minute)})

	for _, target := range []string{"/api/health", "/public/app.css", "/logo.png"} {
		for i := 0; i < 3; i++ {
			rec := serve(t, mw, target, nil)
			assert.Equal(t, http.StatusOK, rec.Code, "%s hit %d", target, i)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		}
	}
	assert.Equal(t, 0, mem.Len())
}

func TestMiddlewareFailsOpen(t *testing.T) {
	rec := serve(t, Middleware(Config{Limiter: errLimiter{}}), "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
