package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/eringen/folio"
	"github.com/eringen/folio/content"
)

// PostsCmd lists posts newest first.
type PostsCmd struct {
	Dir string `short:"d" help:"Content directory (overrides CONTENT_DIR)."`
	Tag string `short:"t" help:"Only list posts with this tag."`
}

func (p *PostsCmd) Run(_ *CLI) error {
	loader := content.NewLoader(os.DirFS(contentDir(p.Dir)), ".")
	posts, err := loader.ListAll()
	if err != nil {
		return err
	}
	if p.Tag != "" {
		posts = content.FilterByTag(posts, p.Tag)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSLUG\tTITLE\tTAGS")
	for _, post := range posts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", post.Day(), post.Slug, post.Title, strings.Join(post.Tags, ", "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d posts\n", len(posts))
	return nil
}

// contentDir resolves a --dir flag against CONTENT_DIR and the default.
func contentDir(flag string) string {
	if flag != "" {
		return flag
	}
	return folio.EnvOr("CONTENT_DIR", "content/posts")
}

// staticDir resolves a --static flag against STATIC_DIR and the default.
func staticDir(flag string) string {
	if flag != "" {
		return flag
	}
	return folio.EnvOr("STATIC_DIR", "public")
}
