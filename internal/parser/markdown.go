package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/sectionrank/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	doc := &doctree.Document{
		Name:  filename,
		Title: trimExt(filename, ".md", ".markdown"),
	}
	b := newPageBuilder(doc)

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level <= pageBreakLevel {
				b.breakPage()
			}
			b.heading(extractText(node, src), node.Level)
		default:
			// Every paragraph (or block) becomes one body line.
			for _, para := range strings.Split(extractText(n, src), "\n\n") {
				b.body(para)
			}
		}
	}
	b.finish()

	return doc, nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	// Leaf blocks (code) only carry raw lines.
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch {
		case c.Kind() == ast.KindText:
			t := c.(*ast.Text)
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case c.Type() == ast.TypeBlock:
			// Nested blocks (list items) stay separate paragraphs.
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(extractText(c, src))
		default:
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
