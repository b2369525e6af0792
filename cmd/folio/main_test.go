package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio/content"
)

func writeFile(t *testing.T, name, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(data), 0o644))
}

func writePNG(t *testing.T, name string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	writeFile(t, name, buf.String())
}

const goodPost = `---
title: Good
date: 2024-01-01
description: fine
---
![here](/public/img/here.png)

![gone](/public/img/gone.png)
`

func TestCheckContent(t *testing.T) {
	dir := t.TempDir()
	posts := filepath.Join(dir, "posts")
	static := filepath.Join(dir, "public")

	writeFile(t, filepath.Join(posts, "good.md"), goodPost)
	writeFile(t, filepath.Join(posts, "bad.md"), "---\ntitle: Bad\n---\nbody\n")
	writeFile(t, filepath.Join(posts, "dup.md"), "---\ntitle: A\ndate: 2024-01-01\ndescription: a\n---\n")
	writeFile(t, filepath.Join(posts, "dup.mdx"), "---\ntitle: B\ndate: 2024-01-01\ndescription: b\n---\n")
	writeFile(t, filepath.Join(posts, "notes.txt"), "ignored")
	writePNG(t, filepath.Join(static, "img", "here.png"))

	rep, err := checkContent(posts, static)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Posts)
	assert.Equal(t, 2, rep.Errors())

	var files []string
	for _, p := range rep.Problems {
		files = append(files, filepath.Base(p.File))
		if p.Warning {
			assert.Equal(t, "good.md", filepath.Base(p.File))
			assert.Equal(t, "image not found: /public/img/gone.png", p.Message)
		}
	}
	assert.ElementsMatch(t, []string{"bad.md", "dup.mdx", "good.md"}, files)
}

func TestCheckContentMissingDir(t *testing.T) {
	_, err := checkContent(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	require.Error(t, err)
}

func TestWriteDraft(t *testing.T) {
	dir := t.TempDir()

	path, err := writeDraft(dir, "Hello, Echo & templ!", "", "2024-06-01", []string{"go", "web"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hello-echo-templ.md"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	p, err := content.Parse("hello-echo-templ", raw)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Echo & templ!", p.Title)
	assert.Equal(t, "Hello, Echo & templ!", p.Description)
	assert.Equal(t, "2024-06-01", p.Day())
	assert.Equal(t, []string{"go", "web"}, p.Tags)

	_, err = writeDraft(dir, "Hello Echo templ", "", "2024-06-02", nil)
	assert.Error(t, err, "same slug must not be overwritten")

	_, err = writeDraft(dir, "Other", "", "June 1st", nil)
	assert.Error(t, err)

	_, err = writeDraft(dir, "!!!", "", "", nil)
	assert.Error(t, err)
}
