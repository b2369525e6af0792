package markdown

import (
	"fmt"
	"html"
	"io"
	"strconv"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used for code fences.
const DefaultStyle = "dracula"

// ChromaHighlighter highlights code with chroma, emitting CSS classes.
// The matching stylesheet comes from WriteCSS.
type ChromaHighlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewChromaHighlighter returns a highlighter for the named chroma style.
// Unknown styles fall back to chroma's default.
func NewChromaHighlighter(style string) *ChromaHighlighter {
	return &ChromaHighlighter{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.TabWidth(2)),
	}
}

// Highlight writes code inside a wrapper carrying a language badge.
// Languages chroma does not know are rendered with the plain-text lexer.
func (h *ChromaHighlighter) Highlight(w io.Writer, lang, code string) error {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return fmt.Errorf("highlight %s: %w", lang, err)
	}
	l := html.EscapeString(lang)
	if _, err := io.WriteString(w, `<div class="code-block-wrapper"><span class="code-lang code-lang-`+l+`">`+l+`</span>`); err != nil {
		return err
	}
	if err := h.formatter.Format(w, h.style, it); err != nil {
		return fmt.Errorf("highlight %s: %w", lang, err)
	}
	_, err = io.WriteString(w, "</div>")
	return err
}

// WriteCSS writes the stylesheet for the highlighter's style.
func (h *ChromaHighlighter) WriteCSS(w io.Writer) error {
	return h.formatter.WriteCSS(w, h.style)
}

// MermaidRenderer emits a container the mermaid client script picks up
// after the page loads.
type MermaidRenderer struct{}

func (MermaidRenderer) RenderDiagram(w io.Writer, source string) error {
	_, err := io.WriteString(w, `<div class="mermaid-container"><pre class="mermaid">`+html.EscapeString(source)+`</pre></div>`)
	return err
}

// PlainImages renders an unoptimized <img>.
type PlainImages struct{}

func (PlainImages) RenderImage(w io.Writer, img ImageRef) error {
	_, err := io.WriteString(w, `<img src="`+img.Src+`" alt="`+html.EscapeString(img.Alt)+`"`+titleAttr(img.Title)+` class="post-image"/>`)
	return err
}

// ImageSizer supplies intrinsic dimensions and responsive variants for
// site-local images.
type ImageSizer interface {
	Dimensions(src string) (width, height int, ok bool)
	SrcSet(src string) string
}

// Default intrinsic size used when an image cannot be measured.
const (
	DefaultImageWidth  = 1024
	DefaultImageHeight = 768
)

// OptimizedImages renders site-local images with explicit dimensions,
// responsive sizes and loading hints. The first image of a post is fetched
// eagerly at high priority; later ones load lazily.
type OptimizedImages struct {
	Sizer ImageSizer // optional
	Sizes string     // defaults to "100vw"
}

func (o *OptimizedImages) RenderImage(w io.Writer, img ImageRef) error {
	width, height := DefaultImageWidth, DefaultImageHeight
	var srcset string
	if o.Sizer != nil {
		if wd, ht, ok := o.Sizer.Dimensions(img.Src); ok {
			width, height = wd, ht
		}
		srcset = o.Sizer.SrcSet(img.Src)
	}
	sizes := o.Sizes
	if sizes == "" {
		sizes = "100vw"
	}

	loading := `loading="lazy"`
	if img.Index == 0 {
		loading = `fetchpriority="high" loading="eager"`
	}

	alt := img.Alt
	if alt == "" {
		alt = "Blog Image"
	}

	tag := `<span class="post-image-frame"><img ` + loading +
		` width="` + strconv.Itoa(width) + `" height="` + strconv.Itoa(height) + `"` +
		` src="` + img.Src + `" alt="` + html.EscapeString(alt) + `"` + titleAttr(img.Title)
	if srcset != "" {
		tag += ` srcset="` + html.EscapeString(srcset) + `"`
	}
	tag += ` sizes="` + html.EscapeString(sizes) + `" decoding="async" class="post-image"/></span>`
	_, err := io.WriteString(w, tag)
	return err
}

func titleAttr(title string) string {
	if title == "" {
		return ""
	}
	return ` title="` + html.EscapeString(title) + `"`
}
