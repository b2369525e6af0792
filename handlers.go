package folio

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/views"
)

const relatedPostLimit = 3

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Posts.ListAll()
	if err != nil {
		return err
	}
	latest := posts
	if n := a.Config.HomePostCount; n > 0 && len(latest) > n {
		latest = latest[:n]
	}
	return Render(c, a.Views.Home(a.site(), latest, WebsiteJSONLD(a.Config)))
}

func (a *App) handleBlogList(c echo.Context) error {
	tag := strings.TrimSpace(c.QueryParam("tag"))
	posts, err := a.Posts.ListAll()
	if err != nil {
		return err
	}
	tags := content.Tags(posts)
	if tag != "" {
		posts = content.FilterByTag(posts, tag)
	}
	return Render(c, a.Views.BlogList(views.ListPage{
		Site:      a.site(),
		Posts:     posts,
		Tags:      tags,
		ActiveTag: tag,
	}))
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Posts.GetBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		}
		return err
	}

	body, res, err := a.Markdown.RenderString(post.Content)
	if err != nil {
		return err
	}

	// Related posts are best effort.
	var related []content.Post
	if all, err := a.Posts.ListAll(); err != nil {
		c.Logger().Warnf("related posts for %s: %v", post.Slug, err)
	} else {
		related = FilterRelatedPosts(post, all, relatedPostLimit)
	}

	return Render(c, a.Views.Post(views.PostPage{
		Site:    a.site(),
		Post:    post,
		Body:    templ.Raw(body),
		Result:  res,
		Related: related,
		JSONLD:  BlogPostingJSONLD(post, a.Config, res.Words),
	}))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Posts.ListAll()
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Posts.ListAll()
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

// handleRobots serves the user's robots.txt when present and a generated
// one pointing at the sitemap otherwise.
func (a *App) handleRobots(c echo.Context) error {
	file := filepath.Join(a.Config.StaticDir, "robots.txt")
	if _, err := os.Stat(file); err == nil {
		return c.File(file)
	}
	body := "User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: " + BuildURL(a.Config.URL, "sitemap.xml") + "\n"
	return c.String(http.StatusOK, body)
}

func (a *App) handleChromaCSS(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/css; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return a.highlighter.WriteCSS(c.Response())
}

type healthResponse struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
	Version     string  `json:"version"`
	Instance    string  `json:"instance"`
}

func (a *App) handleHealth(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	return c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Uptime:      time.Since(a.started).Seconds(),
		Environment: a.Config.Environment,
		Version:     a.Config.Version,
		Instance:    a.instance,
	})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if (ok && he.Code == http.StatusNotFound) || errors.Is(err, content.ErrNotFound) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.site()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
