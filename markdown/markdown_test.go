package markdown

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type recorder struct {
	highlights []string
	diagrams   []string
	local      []ImageRef
	remote     []ImageRef
}

func (r *recorder) Highlight(w io.Writer, lang, code string) error {
	r.highlights = append(r.highlights, lang+":"+code)
	_, err := io.WriteString(w, "<hl/>")
	return err
}

func (r *recorder) RenderDiagram(w io.Writer, source string) error {
	r.diagrams = append(r.diagrams, source)
	_, err := io.WriteString(w, "<diagram/>")
	return err
}

type imageRecorder struct {
	refs *[]ImageRef
	tag  string
}

func (ir imageRecorder) RenderImage(w io.Writer, img ImageRef) error {
	*ir.refs = append(*ir.refs, img)
	_, err := io.WriteString(w, "<"+ir.tag+"/>")
	return err
}

func newTestRenderer() (*Renderer, *recorder) {
	rec := &recorder{}
	r := NewRenderer(
		WithHighlighter(rec),
		WithDiagramRenderer(rec),
		WithLocalImages(imageRecorder{refs: &rec.local, tag: "local"}),
		WithRemoteImages(imageRecorder{refs: &rec.remote, tag: "remote"}),
	)
	return r, rec
}

func render(t *testing.T, r *Renderer, src string) (string, Result) {
	t.Helper()
	out, res, err := r.RenderString(src)
	if err != nil {
		t.Fatalf("RenderString(%q) error: %v", src, err)
	}
	return out, res
}

func TestSoleImageParagraphRendersAsContainer(t *testing.T) {
	r, rec := newTestRenderer()
	got, _ := render(t, r, "[text](not-an-image)\n\n![alt](/img/x.png)\n")

	want := `<p><a href="not-an-image" class="underline decoration-2 underline-offset-4">text</a></p>` +
		`<div class="post-figure"><local/></div>`
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
	if len(rec.local) != 1 || rec.local[0].Src != "/img/x.png" || rec.local[0].Alt != "alt" {
		t.Errorf("local images = %+v", rec.local)
	}
}

func TestMixedParagraphStaysParagraph(t *testing.T) {
	r, _ := newTestRenderer()
	got, _ := render(t, r, "See ![alt](/img/x.png) here\n")

	want := `<p>See <local/> here</p>`
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestImageRouting(t *testing.T) {
	tests := []struct {
		src    string
		local  int
		remote int
	}{
		{"![a](/img/x.png)", 1, 0},
		{"![a](https://example.com/x.png)", 0, 1},
		{"![a](//cdn.example.com/x.png)", 0, 1},
		{"![a](img/x.png)", 0, 1},
	}
	for _, tt := range tests {
		r, rec := newTestRenderer()
		render(t, r, tt.src)
		if len(rec.local) != tt.local || len(rec.remote) != tt.remote {
			t.Errorf("%q: local=%d remote=%d, want local=%d remote=%d",
				tt.src, len(rec.local), len(rec.remote), tt.local, tt.remote)
		}
	}
}

func TestUnsafeImageRendersAlt(t *testing.T) {
	r, rec := newTestRenderer()
	got, res := render(t, r, "![boom](javascript:alert)\n")
	if got != `<div class="post-figure">boom</div>` {
		t.Errorf("render = %q", got)
	}
	if len(rec.local)+len(rec.remote) != 0 || res.Images != 0 {
		t.Errorf("unsafe image reached a strategy: %+v", rec)
	}
}

func TestImageSourceEscapesResolved(t *testing.T) {
	r, rec := newTestRenderer()
	render(t, r, "![R&amp;D](/img/r\\_d.png \"a &amp; b\")\n")
	if len(rec.local) != 1 {
		t.Fatalf("local images = %+v", rec.local)
	}
	got := rec.local[0]
	if got.Src != "/img/r_d.png" || got.Alt != "R&D" || got.Title != "a & b" {
		t.Errorf("image ref = %+v", got)
	}
}

func TestImageIndexCountsDocumentOrder(t *testing.T) {
	r, rec := newTestRenderer()
	_, res := render(t, r, "![a](/a.png)\n\n![b](https://x.test/b.png)\n\n![c](/c.png)\n")
	if res.Images != 3 {
		t.Fatalf("Images = %d, want 3", res.Images)
	}
	if rec.local[0].Index != 0 || rec.remote[0].Index != 1 || rec.local[1].Index != 2 {
		t.Errorf("indexes = %d %d %d", rec.local[0].Index, rec.remote[0].Index, rec.local[1].Index)
	}
}

func TestCodeFenceDispatch(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		want       string
		highlights []string
		diagrams   []string
	}{
		{
			name:     "mermaid",
			src:      "```mermaid\n\n  graph TD; A-->B\n\n```\n",
			want:     "<diagram/>",
			diagrams: []string{"graph TD; A-->B"},
		},
		{
			name:       "mermaid tag is case sensitive",
			src:        "```Mermaid\nsequenceDiagram\n```\n",
			want:       "<hl/>",
			highlights: []string{"Mermaid:sequenceDiagram"},
		},
		{
			name:       "python",
			src:        "```python\nprint(1)\n```\n",
			want:       "<hl/>",
			highlights: []string{"python:print(1)"},
		},
		{
			name:       "info string with attributes",
			src:        "```go title=main.go\nfunc main() {}\n```\n",
			want:       "<hl/>",
			highlights: []string{"go:func main() {}"},
		},
		{
			name: "no tag",
			src:  "```\na < b\n```\n",
			want: `<pre class="code-block"><code class="inline-code">a &lt; b` + "\n" + `</code></pre>`,
		},
		{
			name: "unparseable tag",
			src:  "```<script>\nx\n```\n",
			want: `<pre class="code-block"><code class="inline-code">x` + "\n" + `</code></pre>`,
		},
		{
			name: "indented",
			src:  "    indented\n",
			want: `<pre class="code-block"><code class="inline-code">indented` + "\n" + `</code></pre>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec := newTestRenderer()
			got, res := render(t, r, tt.src)
			if got != tt.want {
				t.Errorf("render = %q, want %q", got, tt.want)
			}
			if strings.Join(rec.highlights, "|") != strings.Join(tt.highlights, "|") {
				t.Errorf("highlights = %q, want %q", rec.highlights, tt.highlights)
			}
			if strings.Join(rec.diagrams, "|") != strings.Join(tt.diagrams, "|") {
				t.Errorf("diagrams = %q, want %q", rec.diagrams, tt.diagrams)
			}
			if res.Diagrams != len(tt.diagrams) {
				t.Errorf("Diagrams = %d, want %d", res.Diagrams, len(tt.diagrams))
			}
		})
	}
}

func TestInlineFormatting(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"**bold**", "<p><strong>bold</strong></p>"},
		{"*italic*", "<p><em>italic</em></p>"},
		{"~~gone~~", "<p><del>gone</del></p>"},
		{"use `fmt.Println`", `<p>use <code class="inline-code">fmt.Println</code></p>`},
		{"a <b>x</b>", "<p>a &lt;b&gt;x&lt;/b&gt;</p>"},
		{"5 > 3 & 2", "<p>5 &gt; 3 &amp; 2</p>"},
		{`\*not em\*`, "<p>*not em*</p>"},
		{`a\_b\_c`, "<p>a_b_c</p>"},
		{"AT&amp;T &copy; 2024", "<p>AT&amp;T \u00a9 2024</p>"},
		{"&#65;&#x42; &lt;tag&gt;", "<p>AB &lt;tag&gt;</p>"},
		{"&bogus; stays", "<p>&amp;bogus; stays</p>"},
		{"`\\* &amp;`", `<p><code class="inline-code">\* &amp;amp;</code></p>`},
	}
	for _, tt := range tests {
		r, _ := newTestRenderer()
		got, _ := render(t, r, tt.input)
		if got != tt.want {
			t.Errorf("render(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLinks(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"[home](/)", `<p><a href="/" class="underline decoration-2 underline-offset-4">home</a></p>`},
		{"[ext](https://example.com)", `<p><a href="https://example.com" class="underline decoration-2 underline-offset-4" target="_blank" rel="noopener noreferrer">ext</a></p>`},
		{"[mail](mailto:me@example.com)", `<p><a href="mailto:me@example.com" class="underline decoration-2 underline-offset-4">mail</a></p>`},
		{"[bad](javascript:alert)", "<p>bad</p>"},
		{`[x](/a\_b)`, `<p><a href="/a_b" class="underline decoration-2 underline-offset-4">x</a></p>`},
		{"[q](/search?a=1&amp;b=2)", `<p><a href="/search?a=1&amp;b=2" class="underline decoration-2 underline-offset-4">q</a></p>`},
	}
	for _, tt := range tests {
		r, _ := newTestRenderer()
		got, _ := render(t, r, tt.input)
		if got != tt.want {
			t.Errorf("render(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestHeadingsCollected(t *testing.T) {
	r, _ := newTestRenderer()
	got, res := render(t, r, "# Hello World\n\n## Second *part*\n")

	if !strings.Contains(got, `<h1 id="hello-world">Hello World</h1>`) {
		t.Errorf("render = %q, missing h1", got)
	}
	if len(res.Headings) != 2 {
		t.Fatalf("Headings = %+v, want 2", res.Headings)
	}
	if res.Headings[1].Level != 2 || res.Headings[1].Text != "Second part" {
		t.Errorf("Headings[1] = %+v", res.Headings[1])
	}
}

func TestLists(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"- a\n- b\n", "<ul><li>a</li><li>b</li></ul>"},
		{"1. a\n2. b\n", "<ol><li>a</li><li>b</li></ol>"},
		{"3. a\n4. b\n", `<ol start="3"><li>a</li><li>b</li></ol>`},
		{"- [x] done\n- [ ] todo\n", `<ul><li><input type="checkbox" checked disabled/> done</li><li><input type="checkbox" disabled/> todo</li></ul>`},
	}
	for _, tt := range tests {
		r, _ := newTestRenderer()
		got, _ := render(t, r, tt.input)
		if got != tt.want {
			t.Errorf("render(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTable(t *testing.T) {
	r, _ := newTestRenderer()
	got, _ := render(t, r, "| a | b |\n|---|:-:|\n| 1 | 2 |\n")
	for _, want := range []string{"<table><thead><tr>", `style="text-align:center"`, "<tbody><tr>", "</table>"} {
		if !strings.Contains(got, want) {
			t.Errorf("render = %q, missing %q", got, want)
		}
	}
}

func TestHTMLBlockEscaped(t *testing.T) {
	r, _ := newTestRenderer()
	got, _ := render(t, r, "<script>alert(1)</script>\n")
	if strings.Contains(got, "<script>") {
		t.Errorf("render = %q, raw HTML passed through", got)
	}
}

func TestWordCount(t *testing.T) {
	r, _ := newTestRenderer()
	_, res := render(t, r, "one two\n\nthree\n")
	if res.Words != 3 {
		t.Errorf("Words = %d, want 3", res.Words)
	}
}

func TestComponent(t *testing.T) {
	r, _ := newTestRenderer()
	var buf bytes.Buffer
	if err := r.Component("hi").Render(t.Context(), &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<p>hi</p>" {
		t.Errorf("Component = %q", buf.String())
	}
}

type failingHighlighter struct{}

func (failingHighlighter) Highlight(io.Writer, string, string) error {
	return errors.New("boom")
}

func TestStrategyErrorPropagates(t *testing.T) {
	r := NewRenderer(WithHighlighter(failingHighlighter{}))
	if _, _, err := r.RenderString("```go\nx\n```\n"); err == nil {
		t.Error("expected highlighter error")
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com", "https://example.com"},
		{"http://example.com/a?b=1&c=2", "http://example.com/a?b=1&amp;c=2"},
		{"/blogs/x", "/blogs/x"},
		{"#top", "#top"},
		{"relative/page", "relative/page"},
		{"mailto:me@example.com", "mailto:me@example.com"},
		{"javascript:alert(1)", ""},
		{"JAVASCRIPT:alert(1)", ""},
		{"data:text/html,hi", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.want {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsLocalPath(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/img/x.png", true},
		{"//cdn/x.png", false},
		{"https://x/y.png", false},
		{"img/x.png", false},
	}
	for _, tt := range tests {
		if got := IsLocalPath(tt.input); got != tt.want {
			t.Errorf("IsLocalPath(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
