package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docintel/internal/document"
)

// MarkdownParser handles Markdown files using goldmark. ATX and setext
// headings become bold spans sized by depth; every other top-level block
// becomes a body span.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	b := newPageBuilder(filename)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.heading(extractText(node, src), node.Level)
		case *ast.ThematicBreak:
			// Horizontal rules carry no text.
		default:
			b.paragraph(extractText(n, src))
		}
	}
	return b.finish(), nil
}

// extractText gets the text content of a goldmark AST node. Raw lines are
// used only for leaf blocks such as code, whose text has no inline children.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() == ast.TypeBlock && buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
