package ratelimit

import (
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Config configures Middleware.
type Config struct {
	Limiter Limiter

	// KeyFunc identifies the caller. Defaults to c.RealIP(), which honours
	// the Echo IPExtractor.
	KeyFunc func(c echo.Context) string

	// Skipper defaults to DefaultSkipper.
	Skipper func(c echo.Context) bool

	// Now is used for Retry-After. Defaults to time.Now.
	Now func() time.Time
}

var staticExtensions = map[string]bool{
	".css": true, ".js": true, ".map": true, ".ico": true, ".svg": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".avif": true, ".woff": true, ".woff2": true, ".ttf": true, ".txt": true,
	".xml": true,
}

// DefaultSkipper exempts static assets and the health check.
func DefaultSkipper(c echo.Context) bool {
	p := c.Request().URL.Path
	if strings.HasPrefix(p, "/public/") || p == "/api/health" {
		return true
	}
	return staticExtensions[strings.ToLower(path.Ext(p))]
}

// Middleware rejects callers over their budget with 429 Too Many Requests.
// Limiter errors are logged and the request is let through.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c echo.Context) string { return c.RealIP() }
	}
	if cfg.Skipper == nil {
		cfg.Skipper = DefaultSkipper
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Limiter == nil || cfg.Skipper(c) {
				return next(c)
			}
			key := cfg.KeyFunc(c)
			if key == "" {
				key = "unknown"
			}

			d, err := cfg.Limiter.Allow(c.Request().Context(), key)
			if err != nil {
				c.Logger().Errorf("rate limit: %v", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retry := d.RetryAfter(cfg.Now())
				h.Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
				return c.String(http.StatusTooManyRequests, "Too Many Requests")
			}
			return next(c)
		}
	}
}
