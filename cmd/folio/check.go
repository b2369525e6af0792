package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/media"
)

// CheckCmd validates the content directory.
type CheckCmd struct {
	Dir    string `short:"d" help:"Content directory (overrides CONTENT_DIR)."`
	Static string `short:"s" help:"Static directory (overrides STATIC_DIR)."`
	Watch  bool   `short:"w" help:"Re-check whenever a post changes."`
}

// Problem is one finding. Warnings do not fail the check.
type Problem struct {
	File    string
	Message string
	Warning bool
}

func (p Problem) String() string {
	level := "error"
	if p.Warning {
		level = "warning"
	}
	return fmt.Sprintf("%s: %s: %s", level, p.File, p.Message)
}

// Report is the outcome of one check run.
type Report struct {
	Posts    int
	Problems []Problem
}

// Errors counts the problems that are not warnings.
func (r Report) Errors() int {
	n := 0
	for _, p := range r.Problems {
		if !p.Warning {
			n++
		}
	}
	return n
}

// imageAudit records site-local images that cannot be found while passing
// rendering through.
type imageAudit struct {
	images  *media.Resolver
	next    markdown.ImageRenderer
	missing []string
}

func (a *imageAudit) RenderImage(w io.Writer, img markdown.ImageRef) error {
	if _, _, ok := a.images.Dimensions(img.Src); !ok {
		a.missing = append(a.missing, img.Src)
	}
	return a.next.RenderImage(w, img)
}

// checkContent parses every post in dir, renders its body, and verifies
// local images exist under static.
func checkContent(dir, static string) (Report, error) {
	var rep Report
	fsys := os.DirFS(dir)
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rep, fmt.Errorf("content directory %s does not exist", dir)
		}
		return rep, err
	}

	images := media.NewResolver(static, "/public", 0)
	seen := make(map[string]string)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		slug, ok := content.SlugFromFilename(e.Name())
		if !ok {
			continue
		}
		rep.Posts++
		file := filepath.Join(dir, e.Name())

		if prev, dup := seen[slug]; dup {
			rep.Problems = append(rep.Problems, Problem{File: file, Message: fmt.Sprintf("slug %q also used by %s", slug, prev)})
			continue
		}
		seen[slug] = file

		raw, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			rep.Problems = append(rep.Problems, Problem{File: file, Message: err.Error()})
			continue
		}
		post, err := content.Parse(slug, raw)
		if err != nil {
			rep.Problems = append(rep.Problems, Problem{File: file, Message: err.Error()})
			continue
		}

		audit := &imageAudit{images: images, next: &markdown.OptimizedImages{Sizer: images}}
		r := markdown.NewRenderer(markdown.WithLocalImages(audit))
		if _, err := r.Render(io.Discard, post.Content); err != nil {
			rep.Problems = append(rep.Problems, Problem{File: file, Message: err.Error()})
			continue
		}
		for _, src := range audit.missing {
			rep.Problems = append(rep.Problems, Problem{File: file, Message: "image not found: " + src, Warning: true})
		}
	}
	return rep, nil
}

func (c *CheckCmd) Run(_ *CLI) error {
	dir, static := contentDir(c.Dir), staticDir(c.Static)
	if !c.Watch {
		rep, err := c.runOnce(dir, static)
		if err != nil {
			return err
		}
		if n := rep.Errors(); n > 0 {
			return fmt.Errorf("%d problems found", n)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return c.watch(ctx, dir, static)
}

func (c *CheckCmd) runOnce(dir, static string) (Report, error) {
	rep, err := checkContent(dir, static)
	if err != nil {
		return rep, err
	}
	for _, p := range rep.Problems {
		fmt.Println(p)
	}
	fmt.Printf("%d posts checked, %d errors, %d warnings\n", rep.Posts, rep.Errors(), len(rep.Problems)-rep.Errors())
	return rep, nil
}

func (c *CheckCmd) watch(ctx context.Context, dir, static string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if _, err := c.runOnce(dir, static); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	fmt.Printf("Watching %s for changes...\n", dir)

	// Editors emit bursts of events per save; check once the burst settles.
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				debounce = time.After(200 * time.Millisecond)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-debounce:
			debounce = nil
			fmt.Println()
			if _, err := c.runOnce(dir, static); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
	}
}
