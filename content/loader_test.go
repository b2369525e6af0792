package content

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func file(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"posts/first-post.mdx": file("---\ntitle: First\ndate: 2024-01-01\ndescription: The first one\ntags: [go, web]\n---\nHello **world**.\n"),
		"posts/second.md":      file("---\ntitle: Second\ndate: \"2024-03-15\"\ndescription: Second post\n---\nBody two\n"),
		"posts/third.mdx":      file("---\r\ntitle: Third\r\ndate: 2023-12-31\r\ndescription: CRLF post\r\ntags:\r\n  - rust\r\n---\r\nCRLF body\r\n"),
		"posts/notes.txt":      file("not a post"),
		"posts/drafts/x.mdx":   file("---\ntitle: Nested\ndate: 2025-01-01\ndescription: ignored\n---\n"),
	}
}

func TestGetBySlug(t *testing.T) {
	l := NewLoader(testFS(), "posts")

	p, err := l.GetBySlug("first-post")
	require.NoError(t, err)
	assert.Equal(t, "first-post", p.Slug)
	assert.Equal(t, "First", p.Title)
	assert.Equal(t, "2024-01-01", p.Date)
	assert.Equal(t, "The first one", p.Description)
	assert.Equal(t, []string{"go", "web"}, p.Tags)
	assert.Equal(t, "Hello **world**.\n", p.Content)
	assert.Equal(t, "/blogs/first-post", p.Link())
}

func TestLinkEscapesSlug(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"hello", "/blogs/hello"},
		{"hello world", "/blogs/hello%20world"},
		{"100%", "/blogs/100%25"},
		{"what?", "/blogs/what%3F"},
		{"c#", "/blogs/c%23"},
	}
	for _, tt := range tests {
		if got := (Post{Slug: tt.slug}).Link(); got != tt.want {
			t.Errorf("Link() for %q = %q, want %q", tt.slug, got, tt.want)
		}
	}
}

func TestGetBySlugDefaultsTagsToEmpty(t *testing.T) {
	l := NewLoader(testFS(), "posts")

	p, err := l.GetBySlug("second")
	require.NoError(t, err)
	require.NotNil(t, p.Tags)
	assert.Empty(t, p.Tags)
	assert.Equal(t, "2024-03-15", p.Date)
}

func TestGetBySlugCRLF(t *testing.T) {
	l := NewLoader(testFS(), "posts")

	p, err := l.GetBySlug("third")
	require.NoError(t, err)
	assert.Equal(t, "Third", p.Title)
	assert.Equal(t, []string{"rust"}, p.Tags)
	assert.Equal(t, "CRLF body\r\n", p.Content)
}

func TestGetBySlugNotFound(t *testing.T) {
	l := NewLoader(testFS(), "posts")

	for _, slug := range []string{"nonexistent", "", "..", "../posts/second", "drafts/x", `a\b`, "notes"} {
		_, err := l.GetBySlug(slug)
		assert.ErrorIs(t, err, ErrNotFound, "slug %q", slug)
	}
}

func TestEveryListedPostResolvesBySlug(t *testing.T) {
	fsys := testFS()
	fsys["posts/Upper.MD"] = file("---\ntitle: Upper\ndate: 2024-02-01\ndescription: d\n---\n")
	fsys["posts/Mixed.Mdx"] = file("---\ntitle: Mixed\ndate: 2024-02-02\ndescription: d\n---\n")
	fsys["posts/folder.mdx/inner.md"] = file("---\ntitle: Inner\ndate: 2024-02-03\ndescription: d\n---\n")
	l := NewLoader(fsys, "posts")

	posts, err := l.ListAll()
	require.NoError(t, err)
	require.Len(t, posts, 3)
	for _, p := range posts {
		got, err := l.GetBySlug(p.Slug)
		require.NoError(t, err, "slug %q", p.Slug)
		assert.Equal(t, p.Title, got.Title)
	}

	for _, slug := range []string{"Upper", "Mixed", "folder"} {
		_, err := l.GetBySlug(slug)
		assert.ErrorIs(t, err, ErrNotFound, "slug %q", slug)
	}
}

func TestListAllSortedByDateDescending(t *testing.T) {
	l := NewLoader(testFS(), "posts")

	posts, err := l.ListAll()
	require.NoError(t, err)
	require.Len(t, posts, 3)

	slugs := make([]string, len(posts))
	for i, p := range posts {
		slugs[i] = p.Slug
	}
	assert.Equal(t, []string{"second", "first-post", "third"}, slugs)

	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i-1].Time.Before(posts[i].Time), "%s before %s", posts[i-1].Slug, posts[i].Slug)
	}
}

func TestListAllStableForEqualDates(t *testing.T) {
	fsys := fstest.MapFS{
		"a.md": file("---\ntitle: A\ndate: 2024-05-05\ndescription: a\n---\n"),
		"b.md": file("---\ntitle: B\ndate: 2024-05-05\ndescription: b\n---\n"),
		"c.md": file("---\ntitle: C\ndate: 2024-05-05\ndescription: c\n---\n"),
	}
	posts, err := NewLoader(fsys, ".").ListAll()
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "a", posts[0].Slug)
	assert.Equal(t, "b", posts[1].Slug)
	assert.Equal(t, "c", posts[2].Slug)
}

func TestListAllMissingDirectory(t *testing.T) {
	posts, err := NewLoader(fstest.MapFS{}, "posts").ListAll()
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"title", "---\ndate: 2024-01-01\ndescription: d\n---\nbody", "title"},
		{"date", "---\ntitle: T\ndescription: d\n---\nbody", "date"},
		{"description", "---\ntitle: T\ndate: 2024-01-01\n---\nbody", "description"},
		{"no header", "just a body", "title"},
		{"bad date", "---\ntitle: T\ndate: yesterday\ndescription: d\n---\n", "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("post", []byte(tt.doc))
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.field, fe.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestFormatErrorFailsListingButNotOtherLookups(t *testing.T) {
	fsys := fstest.MapFS{
		"good.md":   file("---\ntitle: Good\ndate: 2024-01-01\ndescription: ok\n---\n"),
		"broken.md": file("---\ntitle: Broken\ndate: 2024-01-02\n---\n"),
	}
	l := NewLoader(fsys, ".")

	_, err := l.ListAll()
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "broken.md", fe.File)
	assert.Equal(t, "description", fe.Field)

	p, err := l.GetBySlug("good")
	require.NoError(t, err)
	assert.Equal(t, "Good", p.Title)

	_, err = l.GetBySlug("broken")
	require.ErrorAs(t, err, &fe)
}

func TestUnterminatedFrontMatter(t *testing.T) {
	_, err := Parse("x", []byte("---\ntitle: T\n"))
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, ErrMissingClosingDelimiter)
}

func TestDuplicateSlug(t *testing.T) {
	fsys := fstest.MapFS{
		"same.md":  file("---\ntitle: A\ndate: 2024-01-01\ndescription: a\n---\n"),
		"same.mdx": file("---\ntitle: B\ndate: 2024-01-01\ndescription: b\n---\n"),
	}
	_, err := NewLoader(fsys, ".").ListAll()
	var de *DuplicateSlugError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "same", de.Slug)
}

func TestMarshalRoundTrip(t *testing.T) {
	in := Post{Title: "A", Date: "2024-01-01", Description: "B", Tags: []string{"x", "y"}}
	doc, err := Marshal(in)
	require.NoError(t, err)

	got, err := Parse("round-trip", doc)
	require.NoError(t, err)
	assert.Equal(t, "round-trip", got.Slug)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "2024-01-01", got.Date)
	assert.Equal(t, "B", got.Description)
	assert.Equal(t, []string{"x", "y"}, got.Tags)
	assert.Equal(t, "", got.Content)
}

func TestTagsAndFilter(t *testing.T) {
	posts, err := NewLoader(testFS(), "posts").ListAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"go", "rust", "web"}, Tags(posts))

	goPosts := FilterByTag(posts, " GO ")
	require.Len(t, goPosts, 1)
	assert.Equal(t, "first-post", goPosts[0].Slug)

	assert.Len(t, FilterByTag(posts, ""), 3)
	assert.Empty(t, FilterByTag(posts, "python"))
}

func TestSlugFromFilename(t *testing.T) {
	tests := []struct {
		name string
		slug string
		ok   bool
	}{
		{"hello.mdx", "hello", true},
		{"hello.md", "hello", true},
		{"Hello.MD", "", false},
		{"Hello.Mdx", "", false},
		{"hello.txt", "", false},
		{".hidden.md", "", false},
		{".md", "", false},
	}
	for _, tt := range tests {
		slug, ok := SlugFromFilename(tt.name)
		if slug != tt.slug || ok != tt.ok {
			t.Errorf("SlugFromFilename(%q) = (%q, %v), want (%q, %v)", tt.name, slug, ok, tt.slug, tt.ok)
		}
	}
}
