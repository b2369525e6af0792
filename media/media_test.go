package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, name string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(name)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestResolverDimensions(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "img", "a.png"), 1000, 500)

	r := NewResolver(root, "/public", time.Minute)

	tests := []struct {
		src  string
		w, h int
		ok   bool
	}{
		{"/public/img/a.png", 1000, 500, true},
		{"/img/a.png", 1000, 500, true},
		{"/public/img/a.png?v=2", 1000, 500, true},
		{"/public/img/missing.png", 0, 0, false},
		{"/public/../secret.png", 0, 0, false},
		{"//cdn.example.com/a.png", 0, 0, false},
		{"https://example.com/a.png", 0, 0, false},
		{"/", 0, 0, false},
	}
	for _, tt := range tests {
		w, h, ok := r.Dimensions(tt.src)
		if w != tt.w || h != tt.h || ok != tt.ok {
			t.Errorf("Dimensions(%q) = (%d, %d, %v), want (%d, %d, %v)", tt.src, w, h, ok, tt.w, tt.h, tt.ok)
		}
	}
}

func TestResolverCachesWithinTTL(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.png")
	writePNG(t, file, 300, 200)

	r := NewResolver(root, "", time.Hour)
	w, _, ok := r.Dimensions("/a.png")
	require.True(t, ok)
	assert.Equal(t, 300, w)

	require.NoError(t, os.Remove(file))
	w, _, ok = r.Dimensions("/a.png")
	assert.True(t, ok, "cached entry should survive within TTL")
	assert.Equal(t, 300, w)

	r.Invalidate()
	_, _, ok = r.Dimensions("/a.png")
	assert.False(t, ok)
}

func TestResolverReloadsAfterTTL(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.png")
	writePNG(t, file, 300, 200)

	r := NewResolver(root, "", 0)
	w, _, _ := r.Dimensions("/a.png")
	assert.Equal(t, 300, w)

	writePNG(t, file, 120, 60)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(file, later, later))

	w, h, ok := r.Dimensions("/a.png")
	require.True(t, ok)
	assert.Equal(t, 120, w)
	assert.Equal(t, 60, h)
}

func TestGenerateVariantsAndSrcSet(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "img", "wide.png")
	writePNG(t, src, 1000, 500)

	variants, err := GenerateVariants(src, Widths, false)
	require.NoError(t, err)
	require.Len(t, variants, 3) // 640, 750, 828

	assert.Equal(t, filepath.Join(root, "img", "wide-640w.jpg"), variants[0].Path)
	assert.Equal(t, 320, variants[0].Height)

	f, err := os.Open(variants[0].Path)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 320, cfg.Height)

	again, err := GenerateVariants(src, Widths, false)
	require.NoError(t, err)
	for _, v := range again {
		assert.True(t, v.Skipped, "%s should be up to date", v.Path)
	}

	r := NewResolver(root, "/public", time.Minute)
	assert.Equal(t,
		"/public/img/wide-640w.jpg 640w, /public/img/wide-750w.jpg 750w, /public/img/wide-828w.jpg 828w, /public/img/wide.png 1000w",
		r.SrcSet("/public/img/wide.png"))
}

func TestSrcSetEmptyWithoutVariants(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 50, 50)
	r := NewResolver(root, "", time.Minute)
	assert.Equal(t, "", r.SrcSet("/a.png"))
	assert.Equal(t, "", r.SrcSet("/missing.png"))
}

func TestFindImagesSkipsVariants(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 10, 10)
	writePNG(t, filepath.Join(root, "sub", "b.png"), 10, 10)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a-640w.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	found, err := FindImages(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(root, "a.png"), filepath.Join(root, "sub", "b.png")}, found)
}

func TestVariantName(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  string
	}{
		{"/img/photo.png", 640, "/img/photo-640w.jpg"},
		{"photo.jpeg", 1920, "photo-1920w.jpg"},
		{"noext", 750, "noext-750w.jpg"},
	}
	for _, tt := range tests {
		if got := VariantName(tt.name, tt.width); got != tt.want {
			t.Errorf("VariantName(%q, %d) = %q, want %q", tt.name, tt.width, got, tt.want)
		}
		if !IsVariant(tt.want) {
			t.Errorf("IsVariant(%q) = false", tt.want)
		}
	}
}
