package folio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ExportResult summarizes a static export.
type ExportResult struct {
	Pages  int // rendered routes
	Assets int // files copied from the static dir
}

// Export renders every public page through the app's own router and writes
// them under outDir, together with the static directory, so the site can be
// served by any file server. /api endpoints are not exported.
func (a *App) Export(ctx context.Context, outDir string) (ExportResult, error) {
	var res ExportResult
	if err := a.Setup(); err != nil {
		return res, err
	}
	posts, err := a.Posts.ListAll()
	if err != nil {
		return res, err
	}

	routes := []string{"/", "/blogs", "/sitemap.xml", "/feed.xml", "/robots.txt", "/public/chroma.css"}
	for _, name := range embeddedFiles {
		routes = append(routes, "/public/"+name)
	}
	for _, sp := range a.Config.StaticPages {
		routes = append(routes, path.Join("/", sp.Path))
	}
	for _, p := range posts {
		routes = append(routes, p.Link())
	}

	host := "localhost"
	if u, err := url.Parse(a.Config.URL); err == nil && u.Host != "" {
		host = u.Host
	}

	n, err := copyDir(os.DirFS(a.Config.StaticDir), filepath.Join(outDir, "public"))
	res.Assets = n
	if err != nil {
		return res, fmt.Errorf("copy static dir: %w", err)
	}

	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		body, err := a.exportRoute(ctx, host, route)
		if err != nil {
			return res, err
		}
		if err := writeFile(filepath.Join(outDir, exportPath(route)), body); err != nil {
			return res, err
		}
		res.Pages++
	}
	return res, nil
}

func (a *App) exportRoute(ctx context.Context, host, route string) ([]byte, error) {
	req := httptest.NewRequest(http.MethodGet, route, nil).WithContext(withExport(ctx))
	req.Host = host
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		return nil, fmt.Errorf("export %s: status %d", route, rec.Code)
	}
	return rec.Body.Bytes(), nil
}

// exportPath maps a route to a file: extension-less routes become
// directory index pages. Escaped segments are written unescaped, the way a
// file server will look them up.
func exportPath(route string) string {
	if u, err := url.PathUnescape(route); err == nil {
		route = u
	}
	clean := strings.TrimPrefix(path.Clean("/"+route), "/")
	if clean == "" {
		return "index.html"
	}
	if path.Ext(clean) != "" {
		return filepath.FromSlash(clean)
	}
	return filepath.Join(filepath.FromSlash(clean), "index.html")
}

func writeFile(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o644)
}

// copyDir copies every regular file of fsys under dst, overwriting existing
// files. A missing source directory copies nothing.
func copyDir(fsys fs.FS, dst string) (int, error) {
	n := 0
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == "." && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dst, filepath.FromSlash(p)), data); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
