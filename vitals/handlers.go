package vitals

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/ratelimit"
)

// Sink receives every accepted metric.
type Sink interface {
	Record(ctx context.Context, m Metric) error
}

// Summarizer aggregates stored metrics for the GET endpoint.
type Summarizer interface {
	Summarize(ctx context.Context, since time.Time) ([]Summary, error)
}

// Handler serves the metrics collection endpoint.
type Handler struct {
	sinks         []Sink
	summarizer    Summarizer
	summaryWindow time.Duration
	limiter       ratelimit.Limiter
	now           func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithSink adds a destination for accepted metrics.
func WithSink(s Sink) Option {
	return func(h *Handler) { h.sinks = append(h.sinks, s) }
}

// WithSummary enables the aggregate summary on GET over the given window.
func WithSummary(s Summarizer, window time.Duration) Option {
	return func(h *Handler) {
		h.summarizer = s
		h.summaryWindow = window
	}
}

// WithLimiter rate-limits POSTs per client IP.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// NewHandler creates a metrics handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{summaryWindow: 7 * 24 * time.Hour, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the endpoint at /api/metrics.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/metrics", h.Collect)
	e.GET("/api/metrics", h.Describe)
}

type collectResponse struct {
	Success bool   `json:"success"`
	Metric  Metric `json:"metric"`
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// Collect validates, enriches and fans out one metric.
func (h *Handler) Collect(c echo.Context) error {
	if h.limiter != nil {
		d, err := h.limiter.Allow(c.Request().Context(), c.RealIP())
		if err != nil {
			c.Logger().Errorf("metrics rate limit: %v", err)
		} else if !d.Allowed {
			return errorJSON(c, http.StatusTooManyRequests, "Too many requests")
		}
	}

	var req metricRequest
	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		c.Logger().Errorf("Error processing metrics: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to process metrics")
	}
	if req.Name == "" || req.Value == nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid metric format")
	}
	if err := validateRequest(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid metric format")
	}

	m := h.enrich(c, req)
	c.Logger().Infof("%s", LogLine(m))

	ctx := c.Request().Context()
	for _, s := range h.sinks {
		if err := s.Record(ctx, m); err != nil {
			c.Logger().Errorf("record metric: %v", err)
		}
	}

	return c.JSON(http.StatusOK, collectResponse{Success: true, Metric: m})
}

func (h *Handler) enrich(c echo.Context, req metricRequest) Metric {
	r := c.Request()
	m := Metric{
		Name:           req.Name,
		Value:          *req.Value,
		Rating:         req.Rating,
		ID:             req.ID,
		Delta:          req.Delta,
		NavigationType: req.NavigationType,
		Timestamp:      h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		URL:            truncate(r.Referer(), maxURLLen),
		UserAgent:      truncate(r.UserAgent(), maxUALen),
	}
	if m.Rating == "" {
		m.Rating = Rate(m.Name, m.Value)
	}
	if m.URL == "" {
		m.URL = "unknown"
	}
	if m.UserAgent == "" {
		m.UserAgent = "unknown"
	} else {
		m.Browser, m.OS, m.Device = ParseUserAgent(m.UserAgent)
	}
	return m
}

type fieldFormat struct {
	Name           string `json:"name"`
	Value          string `json:"value"`
	Rating         string `json:"rating"`
	ID             string `json:"id"`
	Delta          string `json:"delta"`
	NavigationType string `json:"navigationType"`
}

type describeResponse struct {
	Message string      `json:"message"`
	Methods []string    `json:"methods"`
	Format  fieldFormat `json:"format"`
	Since   string      `json:"since,omitempty"`
	Summary []Summary   `json:"summary,omitempty"`
}

// Describe documents the POST format and, when a summarizer is configured,
// reports aggregates for the recent window.
func (h *Handler) Describe(c echo.Context) error {
	resp := describeResponse{
		Message: "Performance metrics endpoint",
		Methods: []string{"POST"},
		Format: fieldFormat{
			Name:           "string",
			Value:          "number",
			Rating:         "string (good|needs-improvement|poor)",
			ID:             "string (unique metric id)",
			Delta:          "number",
			NavigationType: "string",
		},
	}
	if h.summarizer != nil {
		since := h.now().Add(-h.summaryWindow)
		summary, err := h.summarizer.Summarize(c.Request().Context(), since)
		if err != nil {
			c.Logger().Errorf("summarize metrics: %v", err)
			return errorJSON(c, http.StatusInternalServerError, "Internal server error")
		}
		resp.Since = since.UTC().Format(time.RFC3339)
		resp.Summary = summary
	}
	return c.JSON(http.StatusOK, resp)
}
