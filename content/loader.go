package content

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Extensions lists the content file extensions in lookup priority order.
var Extensions = []string{".mdx", ".md"}

// Loader reads posts from a single directory of an fs.FS. It holds no
// state between calls: every call re-reads and re-parses the files.
type Loader struct {
	fsys fs.FS
	dir  string
}

// NewLoader returns a Loader for dir inside fsys. Use "." for the FS root.
func NewLoader(fsys fs.FS, dir string) *Loader {
	if dir == "" {
		dir = "."
	}
	return &Loader{fsys: fsys, dir: path.Clean(dir)}
}

// ListAll returns every post in the directory, newest first. Posts with the
// same date keep directory order. A missing directory yields no posts.
func (l *Loader) ListAll() ([]Post, error) {
	entries, err := fs.ReadDir(l.fsys, l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Post{}, nil
		}
		return nil, fmt.Errorf("content: read dir %s: %w", l.dir, err)
	}

	posts := make([]Post, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		slug, ok := SlugFromFilename(name)
		if !ok {
			continue
		}
		if prev, dup := seen[slug]; dup {
			return nil, &DuplicateSlugError{Slug: slug, Files: []string{prev, name}}
		}
		seen[slug] = name

		p, err := l.load(slug, name)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Time.After(posts[j].Time)
	})
	return posts, nil
}

// GetBySlug returns the post whose file name (minus extension) equals slug.
// It returns ErrNotFound when there is no such file. A directory named like
// a post is not a post.
func (l *Loader) GetBySlug(slug string) (Post, error) {
	if !validSlug(slug) {
		return Post{}, ErrNotFound
	}
	for _, ext := range Extensions {
		name := slug + ext
		fi, err := fs.Stat(l.fsys, path.Join(l.dir, name))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return Post{}, fmt.Errorf("content: stat %s: %w", name, err)
		case fi.IsDir():
			continue
		}
		return l.load(slug, name)
	}
	return Post{}, ErrNotFound
}

func (l *Loader) load(slug, name string) (Post, error) {
	raw, err := fs.ReadFile(l.fsys, path.Join(l.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Post{}, err
		}
		return Post{}, fmt.Errorf("content: read %s: %w", name, err)
	}
	p, err := parse(name, slug, raw)
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// Parse builds a post from a raw content document.
func Parse(slug string, raw []byte) (Post, error) {
	return parse(slug, slug, raw)
}

func parse(file, slug string, raw []byte) (Post, error) {
	front, body, had, err := Split(raw)
	if err != nil {
		return Post{}, &FormatError{File: file, Err: err}
	}
	if !had {
		return Post{}, &FormatError{File: file, Field: "title"}
	}
	fm, err := decodeFrontMatter(front)
	if err != nil {
		return Post{}, &FormatError{File: file, Err: err}
	}

	switch {
	case fm.Title == nil:
		return Post{}, &FormatError{File: file, Field: "title"}
	case fm.Date == nil:
		return Post{}, &FormatError{File: file, Field: "date"}
	case fm.Description == nil:
		return Post{}, &FormatError{File: file, Field: "description"}
	}

	t, err := ParseDate(*fm.Date)
	if err != nil {
		return Post{}, &FormatError{File: file, Field: "date", Err: err}
	}

	tags := fm.Tags
	if tags == nil {
		tags = []string{}
	}

	return Post{
		Slug:        slug,
		Title:       *fm.Title,
		Date:        *fm.Date,
		Time:        t,
		Description: *fm.Description,
		Tags:        tags,
		Content:     string(body),
	}, nil
}

// SlugFromFilename strips a content extension from name. Extensions match
// case-sensitively, as GetBySlug looks files up by exact name. ok is false
// for files that are not posts.
func SlugFromFilename(name string) (slug string, ok bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	ext := path.Ext(name)
	for _, e := range Extensions {
		if ext == e {
			slug = strings.TrimSuffix(name, ext)
			return slug, slug != ""
		}
	}
	return "", false
}

func validSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	return !strings.ContainsAny(slug, `/\`) && !strings.Contains(slug, "..")
}

// Tags returns the sorted, deduplicated, normalized tags of posts.
func Tags(posts []Post) []string {
	set := make(map[string]struct{})
	for _, p := range posts {
		for _, t := range p.Tags {
			if n := NormalizeTag(t); n != "" {
				set[n] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// FilterByTag returns the posts carrying tag. An empty tag returns posts.
func FilterByTag(posts []Post, tag string) []Post {
	if NormalizeTag(tag) == "" {
		return posts
	}
	var out []Post
	for _, p := range posts {
		if p.HasTag(tag) {
			out = append(out, p)
		}
	}
	return out
}
