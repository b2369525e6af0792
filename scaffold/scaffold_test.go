package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eringen/folio/content"
)

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "myblog")
	var log bytes.Buffer
	data := Data{ProjectName: "myblog", ModuleName: "example.com/me/myblog", SiteName: "My Blog", Date: "2024-05-01"}

	if err := Write(dir, data, &log); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for _, name := range []string{"go.mod", "main.go", ".env.example", ".gitignore", "Makefile", "content/posts/hello-world.md", "public/.gitkeep"} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
		if !strings.Contains(log.String(), filepath.Join(dir, filepath.FromSlash(name))) {
			t.Errorf("%s not reported", name)
		}
	}

	mod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(mod), "module example.com/me/myblog\n") {
		t.Errorf("go.mod = %q", mod)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "content", "posts", "hello-world.md"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := content.Parse("hello-world", raw)
	if err != nil {
		t.Fatalf("sample post does not parse: %v", err)
	}
	if p.Day() != "2024-05-01" || p.Description != "The first post on My Blog." {
		t.Errorf("sample post = %+v", p)
	}
}

func TestWriteRefusesExistingDir(t *testing.T) {
	if err := Write(t.TempDir(), Data{}, nil); err == nil {
		t.Fatal("expected error for existing directory")
	}
}

func TestToTitle(t *testing.T) {
	tests := map[string]string{
		"my-blog": "My Blog",
		"myblog":  "Myblog",
		"a--b":    "A  B",
	}
	for in, want := range tests {
		if got := ToTitle(in); got != want {
			t.Errorf("ToTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
