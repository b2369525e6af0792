package folio

import (
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Environments accepted by SiteConfig.Environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// StaticPage is an extra sitemap entry for a page the site serves itself
// (e.g. a CV or notes page registered with WithCustomRoutes).
type StaticPage struct {
	Path       string
	ChangeFreq string
	Priority   float64
}

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string // Site name (default "Folio")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD
	Version     string // Reported by /api/health (default "1.0.0")
	Environment string // development, production or test (default development)

	Addr       string // Listen address (default ":3000")
	ContentDir string // Post directory (default "content/posts")
	StaticDir  string // User static assets (default "public")

	HomePostCount int          // Posts shown on the home page (default 3)
	StaticPages   []StaticPage // Extra sitemap entries
	CanonicalHost bool         // Redirect other hosts to URL's host

	RateLimit       int           // Requests per window per IP (default 60)
	RateLimitWindow time.Duration // default 1 minute
	RateLimitDBPath string        // SQLite counter store; empty keeps counters in memory

	MetricsEnabled bool // Expose prometheus /metrics

	VitalsEnabled           bool          // Collect Web Vitals on /api/metrics
	VitalsDatabasePath      string        // default "data/vitals.db"
	VitalsRetention         time.Duration // default 90 days
	ExternalMetricsEndpoint string        // optional forward target

	ImageCacheTTL time.Duration // Image dimension cache TTL (default 5min)
	LogLevel      string        // debug, info, warn, error (default info)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Folio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content/posts"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.HomePostCount == 0 {
		c.HomePostCount = 3
	}
	if c.RateLimit == 0 {
		c.RateLimit = 60
	}
	if c.RateLimitWindow == 0 {
		c.RateLimitWindow = time.Minute
	}
	if c.VitalsDatabasePath == "" {
		c.VitalsDatabasePath = "data/vitals.db"
	}
	if c.VitalsRetention == 0 {
		c.VitalsRetention = 90 * 24 * time.Hour
	}
	if c.ImageCacheTTL == 0 {
		c.ImageCacheTTL = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports configuration that would make the site misbehave.
func (c SiteConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("folio: URL must be an absolute http(s) URL, got %q", c.URL)
	}
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("folio: Environment must be development, production or test, got %q", c.Environment)
	}
	if c.ExternalMetricsEndpoint != "" {
		u, err := url.Parse(c.ExternalMetricsEndpoint)
		if err != nil || u.Host == "" {
			return fmt.Errorf("folio: ExternalMetricsEndpoint must be an absolute URL, got %q", c.ExternalMetricsEndpoint)
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("folio: RateLimit must not be negative")
	}
	return nil
}

// ConfigFromEnv builds a SiteConfig from environment variables. Unset
// variables leave the defaults in place.
func ConfigFromEnv() SiteConfig {
	cfg := SiteConfig{
		Name:                    EnvOr("SITE_NAME", ""),
		URL:                     EnvOr("SITE_URL", ""),
		Description:             EnvOr("SITE_DESCRIPTION", ""),
		Author:                  EnvOr("SITE_AUTHOR", ""),
		Version:                 EnvOr("SITE_VERSION", ""),
		Environment:             EnvOr("APP_ENV", ""),
		Addr:                    EnvOr("ADDR", ""),
		ContentDir:              EnvOr("CONTENT_DIR", ""),
		StaticDir:               EnvOr("STATIC_DIR", ""),
		RateLimitDBPath:         EnvOr("RATE_LIMIT_DB", ""),
		VitalsDatabasePath:      EnvOr("METRICS_DB", ""),
		ExternalMetricsEndpoint: EnvOr("EXTERNAL_METRICS_ENDPOINT", ""),
		LogLevel:                EnvOr("LOG_LEVEL", ""),
		CanonicalHost:           envBool("CANONICAL_HOST", false),
		MetricsEnabled:          envBool("METRICS_ENABLED", true),
		VitalsEnabled:           envBool("VITALS_ENABLED", true),
	}
	if n, err := strconv.Atoi(EnvOr("RATE_LIMIT_MAX", "")); err == nil {
		cfg.RateLimit = n
	}
	if d, err := time.ParseDuration(EnvOr("RATE_LIMIT_WINDOW", "")); err == nil {
		cfg.RateLimitWindow = d
	}
	if n, err := strconv.Atoi(EnvOr("HOME_POST_COUNT", "")); err == nil {
		cfg.HomePostCount = n
	}
	return cfg
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(EnvOr(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithContentFS reads posts from dir inside fsys instead of
// SiteConfig.ContentDir on disk.
func WithContentFS(fsys fs.FS, dir string) Option {
	return func(a *App) {
		a.contentFS = fsys
		a.contentDir = dir
	}
}

// WithStaticDir sets the directory for user-owned static assets.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithMetricsRegistry registers prometheus collectors on reg instead of a
// fresh registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.Registry = reg
	}
}
