package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/eringen/folio"
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/scaffold"
)

// NewCmd scaffolds a project.
type NewCmd struct {
	Name   string `arg:"" help:"Project name or module path, e.g. myblog or github.com/user/myblog."`
	NoTidy bool   `name:"no-tidy" help:"Skip go mod tidy."`
}

func (n *NewCmd) Run(_ *CLI) error {
	// Derive project directory name from the last path segment.
	dirName := n.Name
	if idx := strings.LastIndex(n.Name, "/"); idx >= 0 {
		dirName = n.Name[idx+1:]
	}
	if dirName == "" {
		return fmt.Errorf("invalid project name %q", n.Name)
	}

	data := scaffold.Data{
		ProjectName: dirName,
		ModuleName:  n.Name,
		SiteName:    scaffold.ToTitle(dirName),
		Date:        time.Now().Format(content.DateLayout),
	}

	fmt.Printf("Creating new folio project: %s\n\n", dirName)
	if err := scaffold.Write(dirName, data, os.Stdout); err != nil {
		return err
	}

	if !n.NoTidy {
		// Resolve dependencies and generate go.sum.
		fmt.Println("\nResolving Go dependencies...")
		tidy := exec.Command("go", "mod", "tidy")
		tidy.Dir = dirName
		tidy.Stdout = os.Stdout
		tidy.Stderr = os.Stderr
		if err := tidy.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "\nWarning: go mod tidy failed: %v\n", err)
			fmt.Fprintf(os.Stderr, "Run 'cd %s && go mod tidy' manually after fixing.\n", dirName)
		}
	}

	fmt.Println()
	fmt.Println("Done! Next steps:")
	fmt.Println()
	fmt.Printf("  cd %s\n", dirName)
	fmt.Println("  cp .env.example .env")
	fmt.Println("  make run")
	fmt.Println()
	fmt.Println("Write posts in content/posts, then run 'folio check'.")
	return nil
}

// DraftCmd writes a new post with a front matter header.
type DraftCmd struct {
	Title       string   `arg:"" help:"Post title."`
	Description string   `short:"m" help:"Post description."`
	Tags        []string `short:"t" help:"Comma-separated tags."`
	Dir         string   `short:"d" help:"Content directory (overrides CONTENT_DIR)."`
	Date        string   `help:"Publication date (YYYY-MM-DD), defaults to today."`
}

func (d *DraftCmd) Run(_ *CLI) error {
	path, err := writeDraft(contentDir(d.Dir), d.Title, d.Description, d.Date, d.Tags)
	if err != nil {
		return err
	}
	fmt.Printf("  created %s\n", path)
	return nil
}

func writeDraft(dir, title, description, date string, tags []string) (string, error) {
	slug := folio.Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("title %q has no usable characters for a slug", title)
	}
	if date == "" {
		date = time.Now().Format(content.DateLayout)
	}
	if _, err := content.ParseDate(date); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	if description == "" {
		description = title
	}

	for _, ext := range content.Extensions {
		if _, err := os.Stat(filepath.Join(dir, slug+ext)); err == nil {
			return "", fmt.Errorf("post %q already exists", slug)
		}
	}

	doc, err := content.Marshal(content.Post{
		Title:       title,
		Date:        date,
		Description: description,
		Tags:        tags,
		Content:     "\nWrite something.\n",
	})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, slug+".md")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
