package folio

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/content"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

func priority(p float64) string {
	if p <= 0 {
		return ""
	}
	return strconv.FormatFloat(p, 'f', 1, 64)
}

// sitemapURLs lists the home page, the listing, configured static pages,
// and every post. The site-level pages carry the newest post's date.
func (a *App) sitemapURLs(posts []content.Post) []sitemapURL {
	base := a.Config.URL
	var latest string
	if len(posts) > 0 {
		latest = posts[0].Day()
	}
	urls := []sitemapURL{
		{Loc: BuildURL(base), LastMod: latest, ChangeFreq: "monthly", Priority: priority(1)},
		{Loc: BuildURL(base, "blogs"), LastMod: latest, ChangeFreq: "weekly", Priority: priority(0.7)},
	}
	for _, sp := range a.Config.StaticPages {
		freq := sp.ChangeFreq
		if freq == "" {
			freq = "monthly"
		}
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, sp.Path),
			ChangeFreq: freq,
			Priority:   priority(sp.Priority),
		})
	}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, "blogs", p.Slug),
			LastMod:    p.Day(),
			ChangeFreq: "monthly",
			Priority:   priority(0.6),
		})
	}
	return urls
}

func (a *App) renderSitemap(c echo.Context, posts []content.Post) error {
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  a.sitemapURLs(posts),
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
