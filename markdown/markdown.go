// Package markdown renders post bodies to HTML. Source is parsed into a
// closed set of block and inline variants, and leaf transforms (code fences,
// images) are delegated to pluggable strategies.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// DiagramLanguage is the fence tag routed to the diagram strategy.
const DiagramLanguage = "mermaid"

var reLang = regexp.MustCompile(`^[A-Za-z0-9_+#.-]+$`)

// Highlighter renders a code fence with a known language.
type Highlighter interface {
	Highlight(w io.Writer, lang, code string) error
}

// DiagramRenderer renders the source of a diagram fence.
type DiagramRenderer interface {
	RenderDiagram(w io.Writer, source string) error
}

// ImageRenderer renders a single image reference.
type ImageRenderer interface {
	RenderImage(w io.Writer, img ImageRef) error
}

// ImageRef is an image as seen by an ImageRenderer. Src has already passed
// SafeURL. Index counts images in document order, starting at 0.
type ImageRef struct {
	Src   string
	Alt   string
	Title string
	Index int
}

// TOCEntry is a heading collected while rendering.
type TOCEntry struct {
	Level int
	ID    string
	Text  string
}

// Result summarizes one render pass.
type Result struct {
	Diagrams int
	Images   int
	Words    int
	Headings []TOCEntry
}

// Renderer converts markdown to HTML. It is safe for concurrent use once
// constructed.
type Renderer struct {
	highlighter  Highlighter
	diagrams     DiagramRenderer
	localImages  ImageRenderer
	remoteImages ImageRenderer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithHighlighter sets the strategy for fences with a language tag.
func WithHighlighter(h Highlighter) Option {
	return func(r *Renderer) { r.highlighter = h }
}

// WithDiagramRenderer sets the strategy for mermaid fences.
func WithDiagramRenderer(d DiagramRenderer) Option {
	return func(r *Renderer) { r.diagrams = d }
}

// WithLocalImages sets the strategy for root-relative image paths.
func WithLocalImages(ir ImageRenderer) Option {
	return func(r *Renderer) { r.localImages = ir }
}

// WithRemoteImages sets the strategy for all other image references.
func WithRemoteImages(ir ImageRenderer) Option {
	return func(r *Renderer) { r.remoteImages = ir }
}

// NewRenderer returns a Renderer with chroma highlighting, mermaid diagrams,
// optimized local images without size lookup, and plain remote images.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		highlighter:  NewChromaHighlighter(DefaultStyle),
		diagrams:     MermaidRenderer{},
		localImages:  &OptimizedImages{},
		remoteImages: PlainImages{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the HTML for src to w.
func (r *Renderer) Render(w io.Writer, src string) (Result, error) {
	blocks, err := Parse(src)
	if err != nil {
		return Result{}, err
	}
	p := &pass{r: r}
	for _, b := range blocks {
		if err := p.block(b); err != nil {
			return Result{}, err
		}
	}
	p.res.Words = len(strings.Fields(src))
	if _, err := w.Write(p.buf.Bytes()); err != nil {
		return Result{}, err
	}
	return p.res, nil
}

// RenderString renders src and returns the HTML.
func (r *Renderer) RenderString(src string) (string, Result, error) {
	var buf bytes.Buffer
	res, err := r.Render(&buf, src)
	if err != nil {
		return "", Result{}, err
	}
	return buf.String(), res, nil
}

// Component returns a templ.Component that renders src.
func (r *Renderer) Component(src string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := r.Render(w, src)
		return err
	})
}

// pass holds the state of one render.
type pass struct {
	r   *Renderer
	buf bytes.Buffer
	res Result
}

func (p *pass) block(b Block) error {
	switch b := b.(type) {
	case Paragraph:
		return p.paragraph(b)
	case Heading:
		level := b.Level
		if level < 1 || level > 6 {
			level = 6
		}
		tag := "h" + strconv.Itoa(level)
		p.buf.WriteString("<" + tag)
		if b.ID != "" {
			p.buf.WriteString(` id="` + html.EscapeString(b.ID) + `"`)
		}
		p.buf.WriteString(">")
		if err := p.inlines(b.Inlines); err != nil {
			return err
		}
		p.buf.WriteString("</" + tag + ">")
		p.res.Headings = append(p.res.Headings, TOCEntry{Level: b.Level, ID: b.ID, Text: inlineText(b.Inlines)})
		return nil
	case List:
		tag := "ul"
		if b.Ordered {
			tag = "ol"
		}
		p.buf.WriteString("<" + tag)
		if b.Ordered && b.Start != 1 {
			p.buf.WriteString(` start="` + strconv.Itoa(b.Start) + `"`)
		}
		p.buf.WriteString(">")
		for _, item := range b.Items {
			p.buf.WriteString("<li>")
			for _, child := range item.Blocks {
				if err := p.block(child); err != nil {
					return err
				}
			}
			p.buf.WriteString("</li>")
		}
		p.buf.WriteString("</" + tag + ">")
		return nil
	case CodeFence:
		return p.codeFence(b)
	case Blockquote:
		p.buf.WriteString("<blockquote>")
		for _, child := range b.Blocks {
			if err := p.block(child); err != nil {
				return err
			}
		}
		p.buf.WriteString("</blockquote>")
		return nil
	case ThematicBreak:
		p.buf.WriteString("<hr/>")
		return nil
	case Table:
		return p.table(b)
	case HTMLBlock:
		p.buf.WriteString(`<pre class="raw-html">`)
		p.buf.WriteString(html.EscapeString(b.Raw))
		p.buf.WriteString("</pre>")
		return nil
	default:
		return &UnknownNodeError{Kind: typeName(b)}
	}
}

// paragraph renders a paragraph whose only child is an image as a <div>,
// since the optimized image wrapper is block-level and cannot sit in <p>.
func (p *pass) paragraph(b Paragraph) error {
	if b.Tight {
		return p.inlines(b.Inlines)
	}
	openTag, closeTag := "<p>", "</p>"
	if _, ok := b.SoleImage(); ok {
		openTag, closeTag = `<div class="post-figure">`, "</div>"
	}
	p.buf.WriteString(openTag)
	if err := p.inlines(b.Inlines); err != nil {
		return err
	}
	p.buf.WriteString(closeTag)
	return nil
}

func (p *pass) codeFence(b CodeFence) error {
	lang := b.Lang
	switch {
	case lang == DiagramLanguage:
		p.res.Diagrams++
		return p.r.diagrams.RenderDiagram(&p.buf, strings.TrimSpace(b.Text))
	case lang != "" && reLang.MatchString(lang):
		return p.r.highlighter.Highlight(&p.buf, lang, strings.TrimSuffix(b.Text, "\n"))
	default:
		p.buf.WriteString(`<pre class="code-block"><code class="inline-code">`)
		p.buf.WriteString(html.EscapeString(b.Text))
		p.buf.WriteString("</code></pre>")
		return nil
	}
}

func (p *pass) table(t Table) error {
	cell := func(tag string, i int, c TableCell) error {
		p.buf.WriteString("<" + tag)
		if i < len(t.Align) && t.Align[i] != "" {
			p.buf.WriteString(` style="text-align:` + t.Align[i] + `"`)
		}
		p.buf.WriteString(">")
		if err := p.inlines(c.Inlines); err != nil {
			return err
		}
		p.buf.WriteString("</" + tag + ">")
		return nil
	}

	p.buf.WriteString("<table><thead><tr>")
	for i, c := range t.Header {
		if err := cell("th", i, c); err != nil {
			return err
		}
	}
	p.buf.WriteString("</tr></thead>")
	if len(t.Rows) > 0 {
		p.buf.WriteString("<tbody>")
		for _, row := range t.Rows {
			p.buf.WriteString("<tr>")
			for i, c := range row {
				if err := cell("td", i, c); err != nil {
					return err
				}
			}
			p.buf.WriteString("</tr>")
		}
		p.buf.WriteString("</tbody>")
	}
	p.buf.WriteString("</table>")
	return nil
}

func (p *pass) inlines(in []Inline) error {
	for _, n := range in {
		if err := p.inline(n); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) inline(n Inline) error {
	switch n := n.(type) {
	case Text:
		p.buf.WriteString(html.EscapeString(n.Value))
	case Emphasis:
		tag := "em"
		if n.Level >= 2 {
			tag = "strong"
		}
		p.buf.WriteString("<" + tag + ">")
		if err := p.inlines(n.Children); err != nil {
			return err
		}
		p.buf.WriteString("</" + tag + ">")
	case Strikethrough:
		p.buf.WriteString("<del>")
		if err := p.inlines(n.Children); err != nil {
			return err
		}
		p.buf.WriteString("</del>")
	case CodeSpan:
		p.buf.WriteString(`<code class="inline-code">`)
		p.buf.WriteString(html.EscapeString(n.Code))
		p.buf.WriteString("</code>")
	case Link:
		href := SafeURL(n.Dest)
		if href == "" {
			return p.inlines(n.Children)
		}
		p.buf.WriteString(`<a href="` + href + `" class="underline decoration-2 underline-offset-4"`)
		if n.Title != "" {
			p.buf.WriteString(` title="` + html.EscapeString(n.Title) + `"`)
		}
		if isExternal(n.Dest) {
			p.buf.WriteString(` target="_blank" rel="noopener noreferrer"`)
		}
		p.buf.WriteString(">")
		if err := p.inlines(n.Children); err != nil {
			return err
		}
		p.buf.WriteString("</a>")
	case Image:
		return p.image(n)
	case LineBreak:
		if n.Hard {
			p.buf.WriteString("<br/>")
		} else {
			p.buf.WriteString("\n")
		}
	case RawHTML:
		p.buf.WriteString(html.EscapeString(n.Raw))
	case TaskCheckBox:
		if n.Checked {
			p.buf.WriteString(`<input type="checkbox" checked disabled/> `)
		} else {
			p.buf.WriteString(`<input type="checkbox" disabled/> `)
		}
	default:
		return &UnknownNodeError{Kind: typeName(n)}
	}
	return nil
}

// image routes root-relative paths to the local strategy and everything
// else to the remote one. Unsafe sources render as their alt text.
func (p *pass) image(img Image) error {
	src := SafeURL(img.Src)
	if src == "" {
		p.buf.WriteString(html.EscapeString(img.Alt))
		return nil
	}
	ref := ImageRef{Src: src, Alt: img.Alt, Title: img.Title, Index: p.res.Images}
	p.res.Images++
	if IsLocalPath(img.Src) {
		return p.r.localImages.RenderImage(&p.buf, ref)
	}
	return p.r.remoteImages.RenderImage(&p.buf, ref)
}

// IsLocalPath reports whether src is a root-relative site path.
func IsLocalPath(src string) bool {
	src = strings.TrimSpace(src)
	return strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//")
}

func isExternal(dest string) bool {
	u, err := url.Parse(strings.TrimSpace(dest))
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

func inlineText(in []Inline) string {
	var b strings.Builder
	var walk func([]Inline)
	walk = func(in []Inline) {
		for _, n := range in {
			switch n := n.(type) {
			case Text:
				b.WriteString(n.Value)
			case CodeSpan:
				b.WriteString(n.Code)
			case Emphasis:
				walk(n.Children)
			case Strikethrough:
				walk(n.Children)
			case Link:
				walk(n.Children)
			case Image:
				b.WriteString(n.Alt)
			case LineBreak:
				b.WriteByte(' ')
			}
		}
	}
	walk(in)
	return b.String()
}

func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "markdown.")
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
// Relative references are kept; absolute URLs must use a known scheme.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil {
		return ""
	}
	if parsed.Scheme == "" {
		return html.EscapeString(val)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
