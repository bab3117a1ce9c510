package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/x/term"
)

const (
	// DefaultTermWidth is used when stdout is not a terminal.
	DefaultTermWidth = 100

	// MarkdownRenderMargin is the left margin of rendered markdown.
	MarkdownRenderMargin = 2
)

// DisplayContext describes where output is going.
type DisplayContext struct {
	TermWidth int
	IsTTY     bool
}

func NewDisplayContext() *DisplayContext {
	fd := os.Stdout.Fd()
	d := &DisplayContext{TermWidth: DefaultTermWidth, IsTTY: term.IsTerminal(fd)}
	if d.IsTTY {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			d.TermWidth = w
		}
	}
	return d
}

// RenderList renders a document list: styled on a terminal, plain markdown
// when piped.
func (d *DisplayContext) RenderList(heading string, items []ListItem) (string, error) {
	return d.Render(DocumentList(heading, items))
}

// Render styles md for a terminal, or returns it unchanged when piped.
func (d *DisplayContext) Render(md string) (string, error) {
	if !d.IsTTY {
		return md, nil
	}
	return RenderMarkdown(md, d.TermWidth-MarkdownRenderMargin)
}

// RenderMarkdown wraps md at width columns and styles it. The result ends
// in exactly one newline.
func RenderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = DefaultTermWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(terminalStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

func ptr[T any](v T) *T { return &v }

func terminalStyle() ansi.StyleConfig {
	muted := ptr("8")
	var accent *string
	if color, ok := AccentColor(); ok {
		accent = ptr(color)
	}
	heading := func(prefix string) ansi.StyleBlock {
		return ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: prefix}}
	}

	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{BlockPrefix: "\n", BlockSuffix: "\n"},
			Margin:         ptr(uint(MarkdownRenderMargin)),
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{BlockSuffix: "\n", Color: accent, Bold: ptr(true)},
		},
		H1: heading("# "),
		H2: heading(""),
		H3: heading("› "),
		List: ansi.StyleList{LevelIndent: 2},
		Item: ansi.StylePrimitive{BlockPrefix: "• "},
		Enumeration: ansi.StylePrimitive{BlockPrefix: ". "},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: muted},
			Indent:         ptr(uint(1)),
			IndentToken:    ptr("│ "),
		},
		Emph:     ansi.StylePrimitive{Color: muted, Italic: ptr(true)},
		Strong:   ansi.StylePrimitive{Bold: ptr(true)},
		Link:     ansi.StylePrimitive{Color: muted, Underline: ptr(true)},
		LinkText: ansi.StylePrimitive{Color: accent},
		Code:     ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: accent}},
		HorizontalRule: ansi.StylePrimitive{Color: muted, Format: "\n──────\n"},
		Table: ansi.StyleTable{
			CenterSeparator: ptr("┼"),
			ColumnSeparator: ptr("│"),
			RowSeparator:    ptr("─"),
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: muted}, Margin: ptr(uint(2))},
		},
	}
}
