// Package folio is a portfolio and blog engine built with Go, Echo, and templ.
// Posts are markdown files with front matter, read from disk on every
// request; there is no database of posts and no admin surface.
//
// Sites provide their own templ components via the ViewFuncs struct or use
// the defaults from the views package. folio handles routing, markdown
// rendering, the sitemap and feed, rate limiting, and Web Vitals collection.
package folio

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/media"
	"github.com/eringen/folio/ratelimit"
	"github.com/eringen/folio/views"
	"github.com/eringen/folio/vitals"
)

// ViewFuncs holds the templ components the engine calls when rendering
// pages. Nil fields fall back to the views package.
type ViewFuncs struct {
	Home        func(site views.Site, latest []content.Post, jsonLD string) templ.Component
	BlogList    func(page views.ListPage) templ.Component
	Post        func(page views.PostPage) templ.Component
	NotFound    func(site views.Site) templ.Component
	ServerError func(site views.Site) templ.Component
}

// DefaultViews returns the built-in components.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		BlogList:    views.BlogList,
		Post:        views.Post,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

func (v *ViewFuncs) fill() {
	d := DefaultViews()
	if v.Home == nil {
		v.Home = d.Home
	}
	if v.BlogList == nil {
		v.BlogList = d.BlogList
	}
	if v.Post == nil {
		v.Post = d.Post
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
}

// App is the central folio application. It wires together the content
// loader, markdown renderer, handlers, middleware, and views.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Posts    *content.Loader
	Markdown *markdown.Renderer
	Images   *media.Resolver
	Views    ViewFuncs
	Registry *prometheus.Registry

	highlighter  *markdown.ChromaHighlighter
	limiter      ratelimit.Limiter
	vitals       *vitals.Handler
	closers      []func() error
	customRoutes []func(*App)
	contentFS    fs.FS
	contentDir   string
	started      time.Time
	instance     string
	ready        bool
}

// New creates a folio App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()
	views.fill()

	a := &App{
		Config:   cfg,
		Echo:     echo.New(),
		Views:    views,
		started:  time.Now(),
		instance: uuid.NewString(),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	if a.contentFS == nil {
		a.contentFS = os.DirFS(a.Config.ContentDir)
		a.contentDir = "."
	}
	a.Posts = content.NewLoader(a.contentFS, a.contentDir)

	a.Images = media.NewResolver(a.Config.StaticDir, "/public", a.Config.ImageCacheTTL)
	a.highlighter = markdown.NewChromaHighlighter(markdown.DefaultStyle)
	a.Markdown = markdown.NewRenderer(
		markdown.WithHighlighter(a.highlighter),
		markdown.WithLocalImages(&markdown.OptimizedImages{
			Sizer: a.Images,
			Sizes: "(max-width: 768px) 100vw, 768px",
		}),
	)

	if a.Registry == nil {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return a
}

// Logger returns the Echo logger.
func (a *App) Logger() echo.Logger {
	return a.Echo.Logger
}

// Setup validates the configuration, opens the stores, and registers
// middleware and routes. Start calls it; call it directly to serve the app
// through Echo.ServeHTTP (tests, Export). It is a no-op after the first
// successful call.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}
	a.Echo.Logger.SetLevel(parseLevel(a.Config.LogLevel))

	a.limiter = a.newLimiter()

	if a.Config.VitalsEnabled {
		h, err := a.newVitalsHandler()
		if err != nil {
			a.Close()
			return fmt.Errorf("folio: init vitals: %w", err)
		}
		a.vitals = h
	}

	if err := a.setupMiddleware(); err != nil {
		a.Close()
		return fmt.Errorf("folio: init middleware: %w", err)
	}
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start sets up the app and starts the server.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Logger().Infof("folio: serving %s on %s", a.Config.URL, a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) newLimiter() ratelimit.Limiter {
	var store ratelimit.CounterStore
	if path := a.Config.RateLimitDBPath; path != "" {
		s, err := ratelimit.NewSQLiteStore(path)
		if err == nil {
			stop := s.StartCleanupScheduler(10*time.Minute, func(err error) {
				a.Logger().Errorf("rate limit cleanup: %v", err)
			})
			a.closers = append(a.closers, func() error {
				stop()
				return s.Close()
			})
			store = s
		} else {
			a.Logger().Warnf("rate limit: %v; falling back to in-memory counters", err)
		}
	}
	if store == nil {
		m := ratelimit.NewMemoryStore(a.Config.RateLimitWindow)
		a.closers = append(a.closers, m.Close)
		store = m
	}
	return ratelimit.NewFixedWindow(store, a.Config.RateLimit, a.Config.RateLimitWindow)
}

func (a *App) newVitalsHandler() (*vitals.Handler, error) {
	store, err := vitals.NewStore(a.Config.VitalsDatabasePath)
	if err != nil {
		return nil, err
	}
	stopCleanup := store.StartCleanupScheduler(a.Config.VitalsRetention, 24*time.Hour, func(err error) {
		a.Logger().Errorf("vitals cleanup: %v", err)
	})
	a.closers = append(a.closers, func() error {
		stopCleanup()
		return store.Close()
	})

	recorder, err := vitals.NewRecorder(a.Registry)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewSlidingWindow(30, time.Minute)
	a.closers = append(a.closers, limiter.Close)

	opts := []vitals.Option{
		vitals.WithSink(store),
		vitals.WithSink(recorder),
		vitals.WithSummary(store, a.Config.VitalsRetention),
		vitals.WithLimiter(limiter),
	}
	if endpoint := a.Config.ExternalMetricsEndpoint; endpoint != "" {
		fwd := vitals.NewForwarder(endpoint, a.Config.Environment, func(err error) {
			a.Logger().Warnf("vitals forward: %v", err)
		})
		a.closers = append(a.closers, func() error {
			fwd.Wait()
			return nil
		})
		opts = append(opts, vitals.WithSink(fwd))
	}
	return vitals.NewHandler(opts...), nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets are served under /public/ ahead of the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(embeddedFS))))
	for _, name := range embeddedFiles {
		e.GET("/public/"+name, embeddedHandler)
	}
	e.GET("/public/chroma.css", a.handleChromaCSS)

	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/blogs", a.handleBlogList)
	e.GET("/blogs/:slug", a.handlePost)

	e.GET("/api/health", a.handleHealth)
	if a.vitals != nil {
		a.vitals.RegisterRoutes(e)
	}
	if a.Config.MetricsEnabled {
		e.GET("/metrics", a.metricsHandler())
	}
}

// Close stops background jobs and closes the stores, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) site() views.Site {
	return views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		Version:     a.Config.Version,
		Vitals:      a.vitals != nil,
	}
}

func parseLevel(s string) glog.Lvl {
	switch s {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	default:
		return glog.INFO
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
