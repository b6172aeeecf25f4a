package parser

import (
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/sectionrank/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// lineGrouper assembles positioned text runs into lines.
type lineGrouper struct {
	RowTolerance   float64 // Y tolerance for runs on the same line (points)
	WordSpaceRatio float64 // Gap, as a fraction of font size, that separates words
}

func newLineGrouper() *lineGrouper {
	return &lineGrouper{
		RowTolerance:   3.0,
		WordSpaceRatio: 0.25,
	}
}

// group clusters runs by baseline, orders rows top to bottom and runs left
// to right, and emits one Line per row. Typography comes from the first
// visible run of the row.
func (g *lineGrouper) group(texts []pdflib.Text) []doctree.Line {
	runs := make([]pdflib.Text, 0, len(texts))
	for _, t := range texts {
		if t.S == "" || t.S == "\n" {
			continue
		}
		runs = append(runs, t)
	}
	if len(runs) == 0 {
		return nil
	}

	// PDF user space grows upward, so higher Y is nearer the top.
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Y > runs[j].Y
	})

	var rows [][]pdflib.Text
	var row []pdflib.Text
	rowY := runs[0].Y
	for _, t := range runs {
		if len(row) > 0 && math.Abs(t.Y-rowY) > g.RowTolerance {
			rows = append(rows, row)
			row = nil
		}
		if len(row) == 0 {
			rowY = t.Y
		}
		row = append(row, t)
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	lines := make([]doctree.Line, 0, len(rows))
	for _, r := range rows {
		if line, ok := g.buildLine(r); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func (g *lineGrouper) buildLine(row []pdflib.Text) (doctree.Line, bool) {
	sort.SliceStable(row, func(i, j int) bool {
		return row[i].X < row[j].X
	})

	var buf strings.Builder
	var first *pdflib.Text
	var prev *pdflib.Text
	for i := range row {
		t := &row[i]
		if prev != nil {
			gap := t.X - (prev.X + prev.W)
			size := t.FontSize
			if size <= 0 {
				size = prev.FontSize
			}
			if gap > size*g.WordSpaceRatio && !strings.HasSuffix(buf.String(), " ") && !strings.HasPrefix(t.S, " ") {
				buf.WriteByte(' ')
			}
		}
		buf.WriteString(t.S)
		if first == nil && strings.TrimSpace(t.S) != "" {
			first = t
		}
		prev = t
	}

	text := NormalizeText(buf.String())
	if text == "" || first == nil {
		return doctree.Line{}, false
	}
	font := fontName(first.Font)
	return doctree.Line{
		Text:     text,
		X:        first.X,
		Y:        first.Y,
		FontSize: first.FontSize,
		Font:     font,
		Bold:     isBoldFont(font),
	}, true
}

// fontName strips the six-letter subset tag ("ABCDEF+Helvetica").
func fontName(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}

func isBoldFont(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "bold") || strings.Contains(n, "black") || strings.Contains(n, "heavy")
}
