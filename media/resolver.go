// Package media measures site-local images and manages their responsive
// width variants.
package media

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp"
)

// Widths are the responsive breakpoints variants are generated for.
var Widths = []int{640, 750, 828, 1080, 1200, 1920}

type entry struct {
	modTime  time.Time
	width    int
	height   int
	variants []int
	fetched  time.Time
	missing  bool
}

// Resolver maps root-relative image URLs to files under a static directory
// and reports their intrinsic size and available variants. Lookups are
// cached per path for ttl and reloaded when the file's mtime changes.
type Resolver struct {
	root   string
	prefix string
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
}

// NewResolver serves URLs under prefix (e.g. "/public") from root.
// URLs without the prefix are resolved directly against root.
func NewResolver(root, prefix string, ttl time.Duration) *Resolver {
	return &Resolver{
		root:    root,
		prefix:  strings.TrimSuffix(prefix, "/"),
		ttl:     ttl,
		entries: make(map[string]*entry),
	}
}

// Dimensions returns the intrinsic size of the image at src.
func (r *Resolver) Dimensions(src string) (int, int, bool) {
	e := r.lookup(src)
	if e == nil || e.missing {
		return 0, 0, false
	}
	return e.width, e.height, true
}

// SrcSet returns a srcset listing every generated variant narrower than the
// original, followed by the original itself. It is empty when no variants
// exist.
func (r *Resolver) SrcSet(src string) string {
	e := r.lookup(src)
	if e == nil || e.missing || len(e.variants) == 0 {
		return ""
	}
	clean := cleanURL(src)
	parts := make([]string, 0, len(e.variants)+1)
	for _, w := range e.variants {
		parts = append(parts, VariantName(clean, w)+" "+strconv.Itoa(w)+"w")
	}
	parts = append(parts, clean+" "+strconv.Itoa(e.width)+"w")
	return strings.Join(parts, ", ")
}

// Invalidate drops every cached entry.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.entries = make(map[string]*entry)
	r.mu.Unlock()
}

func (r *Resolver) valid(e *entry) bool {
	return e != nil && time.Since(e.fetched) < r.ttl
}

// lookup tries a read lock first and only takes the write lock to reload.
func (r *Resolver) lookup(src string) *entry {
	file, ok := r.file(src)
	if !ok {
		return nil
	}

	r.mu.RLock()
	e := r.entries[file]
	if r.valid(e) {
		r.mu.RUnlock()
		return e
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	e = r.entries[file]
	if r.valid(e) {
		return e
	}
	e = r.load(file, e)
	r.entries[file] = e
	return e
}

func (r *Resolver) load(file string, prev *entry) *entry {
	now := time.Now()
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return &entry{missing: true, fetched: now}
	}
	if prev != nil && !prev.missing && prev.modTime.Equal(info.ModTime()) {
		e := *prev
		e.variants = existingVariants(file, e.width)
		e.fetched = now
		return &e
	}

	f, err := os.Open(file)
	if err != nil {
		return &entry{missing: true, fetched: now}
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return &entry{missing: true, fetched: now}
	}
	return &entry{
		modTime:  info.ModTime(),
		width:    cfg.Width,
		height:   cfg.Height,
		variants: existingVariants(file, cfg.Width),
		fetched:  now,
	}
}

// file converts a URL path to a file under root. Paths escaping root are
// rejected.
func (r *Resolver) file(src string) (string, bool) {
	clean := cleanURL(src)
	if !strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, "//") {
		return "", false
	}
	if strings.Contains(clean, "..") {
		return "", false
	}
	rel := clean
	if r.prefix != "" && strings.HasPrefix(rel, r.prefix+"/") {
		rel = strings.TrimPrefix(rel, r.prefix)
	}
	rel = path.Clean(rel)
	if rel == "/" {
		return "", false
	}
	return filepath.Join(r.root, filepath.FromSlash(rel)), true
}

// cleanURL strips any query or fragment from src.
func cleanURL(src string) string {
	src = strings.TrimSpace(src)
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	return src
}

func existingVariants(file string, width int) []int {
	var out []int
	for _, w := range Widths {
		if w >= width {
			continue
		}
		if _, err := os.Stat(VariantName(file, w)); err == nil {
			out = append(out, w)
		}
	}
	sort.Ints(out)
	return out
}
