package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Parse converts markdown source into blocks.
func Parse(src string) ([]Block, error) {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))
	c := converter{source: source}
	return c.blocks(doc)
}

type converter struct {
	source []byte
}

func (c *converter) blocks(parent ast.Node) ([]Block, error) {
	var out []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		b, err := c.block(n)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *converter) block(n ast.Node) (Block, error) {
	switch n := n.(type) {
	case *ast.Paragraph:
		inl, err := c.inlines(n)
		return Paragraph{Inlines: inl}, err
	case *ast.TextBlock:
		inl, err := c.inlines(n)
		return Paragraph{Inlines: inl, Tight: true}, err
	case *ast.Heading:
		inl, err := c.inlines(n)
		return Heading{Level: n.Level, ID: headingID(n), Inlines: inl}, err
	case *ast.List:
		l := List{Ordered: n.IsOrdered(), Start: n.Start}
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			blocks, err := c.blocks(item)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, ListItem{Blocks: blocks})
		}
		return l, nil
	case *ast.FencedCodeBlock:
		var info string
		if n.Info != nil {
			info = string(n.Info.Segment.Value(c.source))
		}
		return CodeFence{
			Info: info,
			Lang: string(n.Language(c.source)),
			Text: c.lines(n.Lines()),
		}, nil
	case *ast.CodeBlock:
		return CodeFence{Text: c.lines(n.Lines())}, nil
	case *ast.Blockquote:
		blocks, err := c.blocks(n)
		return Blockquote{Blocks: blocks}, err
	case *ast.ThematicBreak:
		return ThematicBreak{}, nil
	case *ast.HTMLBlock:
		raw := c.lines(n.Lines())
		if n.HasClosure() {
			raw += string(n.ClosureLine.Value(c.source))
		}
		return HTMLBlock{Raw: raw}, nil
	case *east.Table:
		return c.table(n)
	default:
		return nil, &UnknownNodeError{Kind: n.Kind().String()}
	}
}

func (c *converter) table(n *east.Table) (Block, error) {
	t := Table{Align: make([]string, len(n.Alignments))}
	for i, a := range n.Alignments {
		if a != east.AlignNone {
			t.Align[i] = a.String()
		}
	}
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []TableCell
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			inl, err := c.inlines(cell)
			if err != nil {
				return nil, err
			}
			cells = append(cells, TableCell{Inlines: inl})
		}
		switch row.(type) {
		case *east.TableHeader:
			t.Header = cells
		case *east.TableRow:
			t.Rows = append(t.Rows, cells)
		default:
			return nil, &UnknownNodeError{Kind: row.Kind().String()}
		}
	}
	return t, nil
}

func (c *converter) inlines(parent ast.Node) ([]Inline, error) {
	var out []Inline
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		inl, err := c.inline(n)
		if err != nil {
			return nil, err
		}
		out = append(out, inl...)
	}
	return out, nil
}

func (c *converter) inline(n ast.Node) ([]Inline, error) {
	switch n := n.(type) {
	case *ast.Text:
		out := []Inline{Text{Value: c.text(n)}}
		switch {
		case n.HardLineBreak():
			out = append(out, LineBreak{Hard: true})
		case n.SoftLineBreak():
			out = append(out, LineBreak{})
		}
		return out, nil
	case *ast.String:
		return []Inline{Text{Value: string(n.Value)}}, nil
	case *ast.Emphasis:
		children, err := c.inlines(n)
		return []Inline{Emphasis{Level: n.Level, Children: children}}, err
	case *ast.CodeSpan:
		return []Inline{CodeSpan{Code: strings.ReplaceAll(c.plainText(n), "\n", " ")}}, nil
	case *ast.Link:
		children, err := c.inlines(n)
		return []Inline{Link{Dest: unescape(n.Destination), Title: unescape(n.Title), Children: children}}, err
	case *ast.AutoLink:
		dest := string(n.URL(c.source))
		if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(dest), "mailto:") {
			dest = "mailto:" + dest
		}
		label := string(n.Label(c.source))
		return []Inline{Link{Dest: dest, Children: []Inline{Text{Value: label}}}}, nil
	case *ast.Image:
		return []Inline{Image{Src: unescape(n.Destination), Alt: c.plainText(n), Title: unescape(n.Title)}}, nil
	case *ast.RawHTML:
		var b strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(c.source))
		}
		return []Inline{RawHTML{Raw: b.String()}}, nil
	case *east.Strikethrough:
		children, err := c.inlines(n)
		return []Inline{Strikethrough{Children: children}}, err
	case *east.TaskCheckBox:
		return []Inline{TaskCheckBox{Checked: n.IsChecked}}, nil
	default:
		return nil, &UnknownNodeError{Kind: n.Kind().String()}
	}
}

func (c *converter) lines(segs *text.Segments) string {
	var b strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(c.source))
	}
	return b.String()
}

// text returns the literal value of t. Backslash escapes and character
// references are resolved except in raw text such as code spans.
func (c *converter) text(t *ast.Text) string {
	v := t.Segment.Value(c.source)
	if t.IsRaw() {
		return string(v)
	}
	return unescape(v)
}

func unescape(v []byte) string {
	v = util.UnescapePunctuations(v)
	v = util.ResolveNumericReferences(v)
	return string(util.ResolveEntityNames(v))
}

// plainText flattens the text content under n, e.g. for image alt text.
func (c *converter) plainText(n ast.Node) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
			switch ch := ch.(type) {
			case *ast.Text:
				b.WriteString(c.text(ch))
				if ch.SoftLineBreak() || ch.HardLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(ch.Value)
			default:
				walk(ch)
			}
		}
	}
	walk(n)
	return b.String()
}

func headingID(n *ast.Heading) string {
	v, ok := n.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	}
	return ""
}
