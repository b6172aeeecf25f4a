package parser

import (
	"regexp"
	"strings"

	"github.com/dgallion1/sectionrank/internal/doctree"
	"golang.org/x/text/unicode/norm"
)

// Synthetic typography for formats that carry structure instead of fonts.
// Headings are rendered larger and bold so the same font-contrast rules
// apply to every input format.
const (
	BodyFontSize = 11.0
	BodyFont     = "Body"
	HeadingFont  = "Body-Bold"
)

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeText applies NFKC folding (ligatures such as "ﬀ" become "ff")
// and collapses whitespace runs.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// HeadingFontSize returns the synthetic font size for a heading level (1-6).
func HeadingFontSize(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return BodyFontSize * (2.0 - 0.15*float64(level-1))
}

// pageBuilder accumulates lines into logical pages.
type pageBuilder struct {
	doc *doctree.Document
	cur *doctree.Page
}

func newPageBuilder(doc *doctree.Document) *pageBuilder {
	return &pageBuilder{doc: doc}
}

// breakPage starts a new page unless the current one is still empty.
func (b *pageBuilder) breakPage() {
	if b.cur != nil && len(b.cur.Lines) == 0 {
		return
	}
	b.cur = &doctree.Page{Number: len(b.doc.Pages) + 1}
	b.doc.Pages = append(b.doc.Pages, b.cur)
}

func (b *pageBuilder) add(line doctree.Line) {
	line.Text = NormalizeText(line.Text)
	if line.Text == "" {
		return
	}
	if b.cur == nil {
		b.breakPage()
	}
	b.cur.Lines = append(b.cur.Lines, line)
}

func (b *pageBuilder) heading(text string, level int) {
	b.add(doctree.Line{
		Text:     text,
		FontSize: HeadingFontSize(level),
		Font:     HeadingFont,
		Bold:     true,
	})
}

func (b *pageBuilder) body(text string) {
	b.add(doctree.Line{
		Text:     text,
		FontSize: BodyFontSize,
		Font:     BodyFont,
	})
}

// finish drops a trailing empty page.
func (b *pageBuilder) finish() {
	n := len(b.doc.Pages)
	if n > 0 && len(b.doc.Pages[n-1].Lines) == 0 {
		b.doc.Pages = b.doc.Pages[:n-1]
	}
}

// pageBreakLevel is the deepest heading level that starts a new logical page.
const pageBreakLevel = 2
