package segment

import (
	"regexp"
	"strings"

	"github.com/dgallion1/sectionrank/internal/doctree"
)

var leadingBullets = regexp.MustCompile(`^[*•–\-]+\s*`)

// Segment turns every page of a document into one Section. Pages without a
// qualifying heading still produce a Section with an empty Heading so their
// text stays available for sentence-level ranking.
func Segment(doc *doctree.Document, cfg Config) []doctree.Section {
	sections := make([]doctree.Section, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		sections = append(sections, SegmentPage(doc.Name, page, cfg))
	}
	return sections
}

// SegmentPage picks the page's dominant heading and gathers every other
// line into the body, in reading order.
func SegmentPage(docName string, page *doctree.Page, cfg Config) doctree.Section {
	stats := EstimateStats(page.Lines)
	idx := dominantHeading(page.Lines, stats, cfg)

	var heading string
	if idx >= 0 {
		heading = cleanLine(page.Lines[idx].Text)
	}

	// A leading body line that repeats the heading verbatim is dropped;
	// any other line is kept whole.
	var parts []string
	for i, l := range page.Lines {
		if i == idx {
			continue
		}
		t := cleanLine(l.Text)
		if t == "" {
			continue
		}
		if len(parts) == 0 && heading != "" && t == heading {
			continue
		}
		parts = append(parts, t)
	}

	body := strings.Join(parts, " ")

	return doctree.Section{
		Document: docName,
		Page:     page.Number,
		Heading:  heading,
		Body:     body,
	}
}

// dominantHeading returns the index of the largest heading line, the
// topmost one on ties, or -1 when no line qualifies.
func dominantHeading(lines []doctree.Line, stats PageStats, cfg Config) int {
	best := -1
	for i, l := range lines {
		if !IsHeading(l, stats, cfg) {
			continue
		}
		if best < 0 || l.FontSize > lines[best].FontSize {
			best = i
		}
	}
	return best
}

// cleanLine strips leading bullet glyphs and collapses whitespace.
func cleanLine(s string) string {
	s = strings.TrimSpace(s)
	s = leadingBullets.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
