package media

import (
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/image/draw"
)

const jpegQuality = 80

var reVariant = regexp.MustCompile(`-\d+w\.jpg$`)

// Extensions lists the image formats the resolver and generator understand.
var Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Variant describes one generated width variant.
type Variant struct {
	Path    string
	Width   int
	Height  int
	Skipped bool // up to date, not rewritten
}

// VariantName returns the variant path for name at width:
// "img/photo.png" becomes "img/photo-640w.jpg".
func VariantName(name string, width int) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%dw.jpg", strings.TrimSuffix(name, ext), width)
}

// IsVariant reports whether name is a generated variant.
func IsVariant(name string) bool {
	return reVariant.MatchString(name)
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindImages walks root and returns every source image, skipping variants.
func FindImages(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsImage(p) || IsVariant(p) {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find images in %s: %w", root, err)
	}
	return out, nil
}

// GenerateVariants writes a JPEG copy of src at each width narrower than the
// original, resized with Catmull-Rom. Variants newer than src are left alone
// unless force is set.
func GenerateVariants(src string, widths []int, force bool) ([]Variant, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", src, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var out []Variant
	for _, target := range widths {
		if target <= 0 || target >= w {
			continue
		}
		v := Variant{Path: VariantName(src, target), Width: target, Height: h * target / w}
		if !force {
			if vi, err := os.Stat(v.Path); err == nil && !vi.ModTime().Before(info.ModTime()) {
				v.Skipped = true
				out = append(out, v)
				continue
			}
		}

		dst := image.NewRGBA(image.Rect(0, 0, v.Width, v.Height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		if err := writeJPEG(v.Path, dst); err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func writeJPEG(name string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), ".variant-*")
	if err != nil {
		return fmt.Errorf("create variant: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode jpeg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write variant: %w", err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("write variant: %w", err)
	}
	return nil
}
