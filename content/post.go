// Package content loads blog posts from a directory of markdown files with
// YAML front matter.
package content

import (
	"net/url"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format for post dates.
const DateLayout = "2006-01-02"

// Post is one blog entry as read from its content file.
type Post struct {
	Slug        string
	Title       string
	Date        string    // as authored in front matter
	Time        time.Time // Date parsed; used for ordering
	Description string
	Tags        []string
	Content     string // raw markdown body
}

// Link returns the public path of the post, with the slug path-escaped.
func (p Post) Link() string {
	return "/blogs/" + url.PathEscape(p.Slug)
}

// Day returns the post date formatted as YYYY-MM-DD.
func (p Post) Day() string {
	if p.Time.IsZero() {
		return p.Date
	}
	return p.Time.Format(DateLayout)
}

// HasTag reports whether the post carries tag, compared case-insensitively.
func (p Post) HasTag(tag string) bool {
	want := NormalizeTag(tag)
	for _, t := range p.Tags {
		if NormalizeTag(t) == want {
			return true
		}
	}
	return false
}

// NormalizeTag lowercases and trims a tag for comparison.
func NormalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err == nil {
		return t, nil
	}
	if ts, err2 := time.Parse(time.RFC3339, s); err2 == nil {
		return ts, nil
	}
	return time.Time{}, err
}
