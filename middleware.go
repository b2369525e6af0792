package folio

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/folio/ratelimit"
)

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; " +
	"style-src 'self' 'unsafe-inline'; img-src 'self' https: data:; font-src 'self'; " +
	"connect-src 'self'; worker-src 'self' blob:; media-src 'self' data:"

func (a *App) setupMiddleware() error {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	if a.Config.CanonicalHost {
		e.Pre(canonicalHostMiddleware(a.Config.URL))
	} else {
		e.Pre(wwwRedirect(a.Config.URL))
	}
	e.Pre(middleware.RemoveTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
	}))

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s) id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	if a.Config.MetricsEnabled {
		mw, err := echoprometheus.MiddlewareConfig{
			Namespace:  "folio",
			Registerer: a.Registry,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}.ToMiddleware()
		if err != nil {
			return err
		}
		e.Use(mw)
	}

	e.Use(ratelimit.Middleware(ratelimit.Config{
		Limiter: a.limiter,
		Skipper: func(c echo.Context) bool {
			return isExport(c.Request().Context()) || ratelimit.DefaultSkipper(c)
		},
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/public/") || isExport(c.Request().Context())
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: contentSecurityPolicy,
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
	}))

	e.Use(cacheControlMiddleware)
	return nil
}

func (a *App) metricsHandler() echo.HandlerFunc {
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: a.Registry,
	})
}

// cacheControlMiddleware sets Cache-Control by path. Error responses are
// never cached.
func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		res := c.Response()
		path := c.Request().URL.Path
		switch {
		case strings.HasPrefix(path, "/public/"):
			res.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		case path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt":
			res.Header().Set("Cache-Control", "public, max-age=86400")
		case strings.HasPrefix(path, "/api/") || path == "/metrics":
			res.Header().Set("Cache-Control", "no-store")
		default:
			res.Header().Set("Cache-Control", "public, max-age=3600")
		}
		res.Before(func() {
			if res.Status >= http.StatusBadRequest {
				res.Header().Set("Cache-Control", "no-store")
			}
		})
		return next(c)
	}
}

// wwwRedirect keeps the www prefix of the request host consistent with the
// site URL. Local hosts are exempt.
func wwwRedirect(siteURL string) echo.MiddlewareFunc {
	cfg := middleware.RedirectConfig{
		Skipper: func(c echo.Context) bool {
			return isLocalHost(c.Request().Host)
		},
		Code: http.StatusMovedPermanently,
	}
	if u, err := url.Parse(siteURL); err == nil && strings.HasPrefix(u.Hostname(), "www.") {
		return middleware.WWWRedirectWithConfig(cfg)
	}
	return middleware.NonWWWRedirectWithConfig(cfg)
}

// canonicalHostMiddleware permanently redirects requests for any other host
// to the host of siteURL, keeping path and query. Local hosts are exempt.
func canonicalHostMiddleware(siteURL string) echo.MiddlewareFunc {
	canonical, err := url.Parse(siteURL)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if err != nil || canonical.Host == "" || req.Host == canonical.Host || isLocalHost(req.Host) {
				return next(c)
			}
			target := *req.URL
			target.Scheme = canonical.Scheme
			target.Host = canonical.Host
			return c.Redirect(http.StatusMovedPermanently, target.String())
		}
	}
}

func isLocalHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type exportKey struct{}

func withExport(ctx context.Context) context.Context {
	return context.WithValue(ctx, exportKey{}, true)
}

func isExport(ctx context.Context) bool {
	v, _ := ctx.Value(exportKey{}).(bool)
	return v
}
