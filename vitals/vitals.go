// Package vitals collects Core Web Vitals reported by browsers.
package vitals

import (
	"fmt"
	"strings"
)

// Ratings as reported by the web-vitals library.
const (
	RatingGood             = "good"
	RatingNeedsImprovement = "needs-improvement"
	RatingPoor             = "poor"
)

// Metric is one enriched measurement.
type Metric struct {
	Name           string  `json:"name"`
	Value          float64 `json:"value"`
	Rating         string  `json:"rating,omitempty"`
	ID             string  `json:"id"`
	Delta          float64 `json:"delta"`
	NavigationType string  `json:"navigationType"`
	Timestamp      string  `json:"timestamp"`
	URL            string  `json:"url"`
	UserAgent      string  `json:"userAgent"`
	Browser        string  `json:"browser,omitempty"`
	OS             string  `json:"os,omitempty"`
	Device         string  `json:"device,omitempty"`
}

// metricRequest is the POST body. Value is a pointer so a missing value can
// be told apart from zero.
type metricRequest struct {
	Name           string   `json:"name"`
	Value          *float64 `json:"value"`
	Rating         string   `json:"rating"`
	ID             string   `json:"id"`
	Delta          float64  `json:"delta"`
	NavigationType string   `json:"navigationType"`
}

// Input validation limits for the collect endpoint.
const (
	maxNameLen   = 32
	maxIDLen     = 128
	maxNavLen    = 32
	maxURLLen    = 2048
	maxUALen     = 512
	maxBodyBytes = 16 << 10
)

func validateRequest(req *metricRequest) error {
	if len(req.Name) > maxNameLen {
		return fmt.Errorf("name exceeds maximum length of %d", maxNameLen)
	}
	if len(req.ID) > maxIDLen {
		return fmt.Errorf("id exceeds maximum length of %d", maxIDLen)
	}
	if len(req.NavigationType) > maxNavLen {
		return fmt.Errorf("navigationType exceeds maximum length of %d", maxNavLen)
	}
	if *req.Value < 0 {
		return fmt.Errorf("value must not be negative")
	}
	switch req.Rating {
	case "", RatingGood, RatingNeedsImprovement, RatingPoor:
	default:
		return fmt.Errorf("unknown rating %q", req.Rating)
	}
	return nil
}

type threshold struct {
	good, poor float64
}

// thresholds are the published Web Vitals boundaries: values at or below
// good are good, above poor are poor. CLS is unitless; the rest are ms.
var thresholds = map[string]threshold{
	"LCP":  {2500, 4000},
	"FID":  {100, 300},
	"INP":  {200, 500},
	"CLS":  {0.1, 0.25},
	"FCP":  {1800, 3000},
	"TTFB": {800, 1800},
}

// KnownName reports whether name is a metric with published thresholds.
func KnownName(name string) bool {
	_, ok := thresholds[name]
	return ok
}

// Rate classifies value for the named metric. Unknown metrics return "".
func Rate(name string, value float64) string {
	t, ok := thresholds[name]
	if !ok {
		return ""
	}
	switch {
	case value <= t.good:
		return RatingGood
	case value <= t.poor:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

// LogLine formats a metric the way it is written to the server log.
func LogLine(m Metric) string {
	return fmt.Sprintf("[%s] %.2fms (%s)", m.Name, m.Value, m.Rating)
}

// ParseUserAgent extracts browser, OS, and device from a User-Agent string.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// Order matters: more specific patterns before generic ones.
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// Android before Linux since Android UAs contain "linux".
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	// iPad UAs contain "mobile", so check tablet first.
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}

	return
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
