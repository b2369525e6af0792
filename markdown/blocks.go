package markdown

import "fmt"

// Block is a block-level node of a parsed post. The set of implementations
// is closed; renderers switch over it exhaustively.
type Block interface{ block() }

// Inline is an inline node inside a block.
type Inline interface{ inline() }

type (
	// Paragraph is a run of inline content. Tight paragraphs come from tight
	// list items and render without a <p> wrapper.
	Paragraph struct {
		Inlines []Inline
		Tight   bool
	}

	Heading struct {
		Level   int
		ID      string
		Inlines []Inline
	}

	List struct {
		Ordered bool
		Start   int
		Items   []ListItem
	}

	ListItem struct {
		Blocks []Block
	}

	// CodeFence is a fenced or indented code block. Info is the raw info
	// string; Lang its first word. Indented blocks have neither.
	CodeFence struct {
		Info string
		Lang string
		Text string
	}

	Blockquote struct {
		Blocks []Block
	}

	ThematicBreak struct{}

	Table struct {
		Align  []string // "left", "right", "center" or ""
		Header []TableCell
		Rows   [][]TableCell
	}

	TableCell struct {
		Inlines []Inline
	}

	HTMLBlock struct {
		Raw string
	}
)

func (Paragraph) block()     {}
func (Heading) block()       {}
func (List) block()          {}
func (CodeFence) block()     {}
func (Blockquote) block()    {}
func (ThematicBreak) block() {}
func (Table) block()         {}
func (HTMLBlock) block()     {}

type (
	Text struct {
		Value string
	}

	// Emphasis is <em> at level 1 and <strong> at level 2.
	Emphasis struct {
		Level    int
		Children []Inline
	}

	Strikethrough struct {
		Children []Inline
	}

	CodeSpan struct {
		Code string
	}

	Link struct {
		Dest     string
		Title    string
		Children []Inline
	}

	Image struct {
		Src   string
		Alt   string
		Title string
	}

	LineBreak struct {
		Hard bool
	}

	RawHTML struct {
		Raw string
	}

	TaskCheckBox struct {
		Checked bool
	}
)

func (Text) inline()          {}
func (Emphasis) inline()      {}
func (Strikethrough) inline() {}
func (CodeSpan) inline()      {}
func (Link) inline()          {}
func (Image) inline()         {}
func (LineBreak) inline()     {}
func (RawHTML) inline()       {}
func (TaskCheckBox) inline()  {}

// SoleImage returns the image when it is the paragraph's only child.
func (p Paragraph) SoleImage() (Image, bool) {
	if len(p.Inlines) != 1 {
		return Image{}, false
	}
	img, ok := p.Inlines[0].(Image)
	return img, ok
}

// UnknownNodeError is returned when the parser yields a node kind the
// converter has no variant for.
type UnknownNodeError struct {
	Kind string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("markdown: unsupported node kind %q", e.Kind)
}
