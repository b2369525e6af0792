package views

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/markdown"
)

// MermaidScript is loaded on pages that contain at least one diagram.
const MermaidScript = "/public/mermaid-init.js"

// TagLink returns the listing URL filtered by tag.
func TagLink(tag string) string {
	return "/blogs?tag=" + url.QueryEscape(tag)
}

// FormatDate renders a post date for display, e.g. "January 2, 2006".
func FormatDate(p content.Post) string {
	if p.Time.IsZero() {
		return p.Date
	}
	return p.Time.Format("January 2, 2006")
}

// ReadingTime estimates minutes to read words at 200 wpm, at least one.
func ReadingTime(words int) string {
	m := (words + 199) / 200
	if m < 1 {
		m = 1
	}
	return strconv.Itoa(m) + " min read"
}

func year() string {
	return strconv.Itoa(time.Now().Year())
}

func joinTitle(parts ...string) string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}

func pageTitle(site Site, meta PageMeta) string {
	if meta.Title != "" {
		return meta.Title
	}
	return site.Name
}

func pageDescription(site Site, meta PageMeta) string {
	if meta.Description != "" {
		return meta.Description
	}
	return site.Description
}

func ogType(meta PageMeta) string {
	if meta.OGType != "" {
		return meta.OGType
	}
	return "website"
}

func footerName(site Site) string {
	if site.Author != "" {
		return site.Author
	}
	return site.Name
}

// json.Marshal escapes <, > and &, so the block cannot close the tag.
func jsonLDScript(doc string) string {
	return `<script type="application/ld+json">` + doc + `</script>`
}

func pageScripts(site Site, meta PageMeta) []Script {
	scripts := append([]Script(nil), meta.Scripts...)
	if site.Vitals {
		scripts = append(scripts, Script{Src: "/public/vitals.js", Module: true})
	}
	return scripts
}

func isActiveTag(tag, active string) bool {
	return active != "" && content.NormalizeTag(tag) == content.NormalizeTag(active)
}

// tocEntries returns the headings worth a table of contents: h1 to h3 with
// an anchor, and only when the post has more than two headings.
func tocEntries(headings []markdown.TOCEntry) []markdown.TOCEntry {
	if len(headings) <= 2 {
		return nil
	}
	var out []markdown.TOCEntry
	for _, e := range headings {
		if e.ID == "" || e.Level > 3 {
			continue
		}
		out = append(out, e)
	}
	return out
}

func tocClass(level int) string {
	return "toc-h" + strconv.Itoa(level)
}

func homeMeta(site Site, jsonLD string) PageMeta {
	return PageMeta{URL: site.URL, JSONLD: jsonLD}
}

func listMeta(page ListPage) PageMeta {
	title := "Blog"
	if page.ActiveTag != "" {
		title = "Posts tagged " + page.ActiveTag
	}
	return PageMeta{
		Title: joinTitle(title, page.Site.Name),
		URL:   strings.TrimSuffix(page.Site.URL, "/") + "/blogs",
	}
}

func postMeta(page PostPage) PageMeta {
	p := page.Post
	meta := PageMeta{
		Title:       joinTitle(p.Title, page.Site.Name),
		Description: p.Description,
		URL:         strings.TrimSuffix(page.Site.URL, "/") + p.Link(),
		OGType:      "article",
		JSONLD:      page.JSONLD,
	}
	if page.Result.Diagrams > 0 {
		meta.Scripts = append(meta.Scripts, Script{Src: MermaidScript, Module: true})
	}
	return meta
}
