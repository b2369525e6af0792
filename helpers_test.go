package folio

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/eringen/folio/content"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Go & Echo: a tour!  ", "go-echo-a-tour"},
		{"already-a-slug", "already-a-slug"},
		{"***", ""},
		{"Version 2.0", "version-2-0"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", nil, "https://example.com/"},
		{"https://example.com/", nil, "https://example.com/"},
		{"https://example.com", []string{"blogs", "hello"}, "https://example.com/blogs/hello"},
		{"https://example.com/site", []string{"blogs"}, "https://example.com/site/blogs"},
		{"https://example.com", []string{"/cv"}, "https://example.com/cv"},
		{"https://example.com", []string{"blogs", "a b"}, "https://example.com/blogs/a%20b"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %q) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func post(slug string, tags ...string) content.Post {
	return content.Post{Slug: slug, Title: slug, Tags: tags}
}

func slugs(posts []content.Post) []string {
	var out []string
	for _, p := range posts {
		out = append(out, p.Slug)
	}
	return out
}

func TestFilterRelatedPosts(t *testing.T) {
	all := []content.Post{
		post("current", "Go", "web"),
		post("a", "go"),
		post("b", "life"),
		post("c", " WEB "),
		post("d", "go", "web"),
	}

	got := slugs(FilterRelatedPosts(all[0], all, 0))
	if want := []string{"a", "c", "d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("related = %v, want %v", got, want)
	}

	got = slugs(FilterRelatedPosts(all[0], all, 2))
	if want := []string{"a", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("limited related = %v, want %v", got, want)
	}

	if got := FilterRelatedPosts(post("untagged"), all, 0); got != nil {
		t.Fatalf("untagged post has related %v", slugs(got))
	}
}

func TestBlogPostingJSONLD(t *testing.T) {
	p := content.Post{
		Slug:        "hello",
		Title:       "Hello </script>",
		Description: "desc",
		Date:        "2024-03-01",
		Time:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Tags:        []string{"go", "web"},
	}
	cfg := SiteConfig{Name: "Site", URL: "https://example.com", Author: "Ada"}

	raw := BlogPostingJSONLD(p, cfg, 321)
	if strings.Contains(raw, "</script>") {
		t.Fatalf("JSON-LD not escaped: %s", raw)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["url"] != "https://example.com/blogs/hello" {
		t.Errorf("url = %v", got["url"])
	}
	if got["datePublished"] != "2024-03-01" {
		t.Errorf("datePublished = %v", got["datePublished"])
	}
	if got["keywords"] != "go, web" {
		t.Errorf("keywords = %v", got["keywords"])
	}
	if got["wordCount"] != float64(321) {
		t.Errorf("wordCount = %v", got["wordCount"])
	}

	if strings.Contains(BlogPostingJSONLD(p, cfg, 0), "wordCount") {
		t.Errorf("wordCount emitted for zero words")
	}
}

func TestWebsiteJSONLDOmitsEmptyAuthor(t *testing.T) {
	raw := WebsiteJSONLD(SiteConfig{Name: "Site", URL: "https://example.com"})
	if strings.Contains(raw, "author") {
		t.Errorf("author emitted: %s", raw)
	}
	if !strings.Contains(raw, `"url":"https://example.com/"`) {
		t.Errorf("url missing: %s", raw)
	}
}
