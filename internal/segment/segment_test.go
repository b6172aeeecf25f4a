package segment

import (
	"testing"

	"github.com/dgallion1/sectionrank/internal/doctree"
)

func ln(text string, size float64, font string, bold bool) doctree.Line {
	return doctree.Line{Text: text, FontSize: size, Font: font, Bold: bold}
}

func body(text string) doctree.Line {
	return ln(text, 10, "Times", false)
}

func TestEstimateStats_MedianOddAndEven(t *testing.T) {
	odd := []doctree.Line{body("a"), ln("b", 24, "Times", false), ln("c", 8, "Times", false)}
	if got := EstimateStats(odd).MedianFontSize; got != 10 {
		t.Errorf("odd: expected median 10, got %v", got)
	}

	even := []doctree.Line{ln("a", 10, "Times", false), ln("b", 12, "Times", false)}
	if got := EstimateStats(even).MedianFontSize; got != 11 {
		t.Errorf("even: expected median 11, got %v", got)
	}
}

func TestEstimateStats_MedianWithinRange(t *testing.T) {
	pages := [][]float64{
		{10},
		{10, 10, 10, 30},
		{6, 8, 9, 40, 41},
		{12.5, 11, 9.5, 14, 7},
	}
	for _, sizes := range pages {
		var lines []doctree.Line
		lo, hi := sizes[0], sizes[0]
		for _, s := range sizes {
			lines = append(lines, ln("x", s, "F", false))
			lo = min(lo, s)
			hi = max(hi, s)
		}
		m := EstimateStats(lines).MedianFontSize
		if m < lo || m > hi {
			t.Errorf("sizes %v: median %v outside [%v, %v]", sizes, m, lo, hi)
		}
	}
}

func TestEstimateStats_EmptyPage(t *testing.T) {
	stats := EstimateStats(nil)
	if stats != (PageStats{}) {
		t.Errorf("expected zero stats for empty page, got %+v", stats)
	}
}

func TestEstimateStats_DominantFont(t *testing.T) {
	lines := []doctree.Line{
		ln("Title", 20, "Helvetica-Bold", true),
		ln("one", 10, "Times", false),
		ln("two", 10, "Courier", false),
		ln("three", 10, "Times", false),
	}
	stats := EstimateStats(lines)
	if stats.DominantFont != "Times" {
		t.Errorf("expected Times, got %q", stats.DominantFont)
	}
	if stats.BodyBold {
		t.Error("expected non-bold body")
	}

	// Tie goes to the first font seen.
	tie := []doctree.Line{ln("a", 10, "Courier", false), ln("b", 10, "Times", false)}
	if got := EstimateStats(tie).DominantFont; got != "Courier" {
		t.Errorf("expected tie to go to Courier, got %q", got)
	}
}

func TestEstimateStats_BodyBold(t *testing.T) {
	lines := []doctree.Line{
		ln("a", 10, "Arial-Bold", true),
		ln("b", 10, "Arial-Bold", true),
		ln("c", 10, "Arial", false),
	}
	if !EstimateStats(lines).BodyBold {
		t.Error("expected bold body when most body lines are bold")
	}
}

func TestIsHeading(t *testing.T) {
	plain := PageStats{MedianFontSize: 10, DominantFont: "Times"}
	boldPage := PageStats{MedianFontSize: 10, DominantFont: "Times-Bold", BodyBold: true}

	tests := []struct {
		name  string
		line  doctree.Line
		stats PageStats
		want  bool
	}{
		{"large title case", ln("Vegetarian Dinner Ideas", 16, "Times", false), plain, true},
		{"large all caps", ln("BREAKFAST", 16, "Times", false), plain, true},
		{"ends with period", ln("Vegetarian Dinner Ideas.", 16, "Times", false), plain, false},
		{"ends with question", ln("What Is Tofu?", 16, "Times", false), plain, false},
		{"fifteen words", ln("A B C D E F G H I J K L M N O", 16, "Times", false), plain, false},
		{"fourteen words", ln("A B C D E F G H I J K L M N", 16, "Times", false), plain, true},
		{"sentence case", ln("this is a normal sentence fragment", 16, "Times", false), plain, false},
		{"short lower case skips case check", ln("lentil soup", 16, "Times", false), plain, true},
		{"minority lower case words", ln("Soups of the Season", 16, "Times", false), plain, true},
		{"bold on plain page", ln("Ingredients", 10, "Times-Bold", true), plain, true},
		{"bold on bold page", ln("Ingredients", 10, "Times-Bold", true), boldPage, false},
		{"body size regular", ln("Ingredients", 10, "Times", false), plain, false},
		{"slightly larger", ln("Ingredients", 11, "Times", false), plain, false},
		{"empty", ln("   ", 20, "Times", true), plain, false},
		{"no baseline", ln("Ingredients", 16, "Times", false), PageStats{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHeading(tt.line, tt.stats, DefaultConfig()); got != tt.want {
				t.Errorf("IsHeading(%q) = %v, want %v", tt.line.Text, got, tt.want)
			}
		})
	}
}

func TestIsHeading_MonotonicInFontSize(t *testing.T) {
	stats := PageStats{MedianFontSize: 10, DominantFont: "Times"}
	flipped := false
	for size := 8.0; size <= 24; size += 0.5 {
		h := IsHeading(ln("Quick Weeknight Curry", size, "Times", false), stats, DefaultConfig())
		if flipped && !h {
			t.Fatalf("size %v: heading flipped back to non-heading", size)
		}
		if h {
			if size < 10*DefaultSizeRatio {
				t.Fatalf("size %v: heading below the %.2fx threshold", size, DefaultSizeRatio)
			}
			flipped = true
		}
	}
	if !flipped {
		t.Fatal("expected increasing font size to produce a heading")
	}
}

func TestIsHeading_CustomThresholds(t *testing.T) {
	stats := PageStats{MedianFontSize: 10}
	line := ln("Quick Weeknight Curry", 13, "Times", false)
	if !IsHeading(line, stats, Config{SizeRatio: 1.25}) {
		t.Error("expected 1.3x to pass a 1.25x ratio")
	}
	if IsHeading(line, stats, Config{SizeRatio: 1.5}) {
		t.Error("expected 1.3x to fail a 1.5x ratio")
	}
	if IsHeading(line, stats, Config{MaxWords: 3}) {
		t.Error("expected three words to fail a three-word limit")
	}
}

func TestSegmentPage_DominantHeading(t *testing.T) {
	page := &doctree.Page{
		Number: 3,
		Lines: []doctree.Line{
			ln("Chapter Two", 14, "Times", false),
			ln("Hearty Soups", 18, "Times", false),
			body("Simmer the lentils for twenty minutes."),
			body("Season to taste."),
			ln("Serving Notes", 14, "Times", false),
			body("Serve hot."),
			body("Add salt."),
			body("Stir well."),
		},
	}
	s := SegmentPage("soups.pdf", page, DefaultConfig())
	if s.Heading != "Hearty Soups" {
		t.Errorf("expected largest heading, got %q", s.Heading)
	}
	if s.Document != "soups.pdf" || s.Page != 3 {
		t.Errorf("unexpected provenance %q p%d", s.Document, s.Page)
	}
	want := "Chapter Two Simmer the lentils for twenty minutes. Season to taste. Serving Notes Serve hot. Add salt. Stir well."
	if s.Body != want {
		t.Errorf("expected body %q, got %q", want, s.Body)
	}
	if !s.IsCandidate() {
		t.Error("expected section to be a candidate")
	}
}

func TestSegmentPage_TieGoesToTopmost(t *testing.T) {
	page := &doctree.Page{
		Number: 1,
		Lines: []doctree.Line{
			ln("First Heading", 16, "Times", false),
			body("Text one."),
			ln("Second Heading", 16, "Times", false),
			body("Text two."),
			body("Text three."),
		},
	}
	if got := SegmentPage("d.pdf", page, DefaultConfig()).Heading; got != "First Heading" {
		t.Errorf("expected topmost heading, got %q", got)
	}
}

func TestSegmentPage_HeadinglessPage(t *testing.T) {
	page := &doctree.Page{
		Number: 2,
		Lines:  []doctree.Line{body("Just prose here."), body("More prose.")},
	}
	s := SegmentPage("d.pdf", page, DefaultConfig())
	if s.HasHeading() {
		t.Errorf("expected no heading, got %q", s.Heading)
	}
	if s.Body != "Just prose here. More prose." {
		t.Errorf("unexpected body %q", s.Body)
	}
	if s.IsCandidate() {
		t.Error("headingless section must not be a candidate")
	}
}

func TestSegmentPage_EmptyPage(t *testing.T) {
	s := SegmentPage("d.pdf", &doctree.Page{Number: 5}, DefaultConfig())
	if s.HasHeading() || s.Body != "" || s.Page != 5 {
		t.Errorf("unexpected section for empty page: %+v", s)
	}
}

func TestSegmentPage_CleansBullets(t *testing.T) {
	page := &doctree.Page{
		Number: 1,
		Lines: []doctree.Line{
			ln("Shopping List", 16, "Times", false),
			body("• Chickpeas"),
			body("- Spinach"),
			body("–  Coconut   milk"),
			body("* Rice"),
		},
	}
	s := SegmentPage("d.pdf", page, DefaultConfig())
	if s.Body != "Chickpeas Spinach Coconut milk Rice" {
		t.Errorf("unexpected body %q", s.Body)
	}
}

func TestSegmentPage_StripsRepeatedHeading(t *testing.T) {
	page := &doctree.Page{
		Number: 1,
		Lines: []doctree.Line{
			ln("Desserts", 16, "Times", false),
			body("Desserts"),
			body("Fruit salad with mint."),
		},
	}
	s := SegmentPage("d.pdf", page, DefaultConfig())
	if s.Body != "Fruit salad with mint." {
		t.Errorf("expected heading prefix removed, got %q", s.Body)
	}
}

func TestSegmentPage_KeepsBodyStartingWithHeadingText(t *testing.T) {
	tests := []struct {
		name  string
		first string
	}{
		{"word extends heading", "Salads are easy to make."},
		{"heading word leads sentence", "Salad dressing needs oil."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &doctree.Page{
				Number: 1,
				Lines: []doctree.Line{
					ln("Salad", 16, "Times", false),
					body(tt.first),
					body("Use fresh greens."),
				},
			}
			s := SegmentPage("s.pdf", page, DefaultConfig())
			if s.Heading != "Salad" {
				t.Fatalf("expected heading Salad, got %q", s.Heading)
			}
			want := tt.first + " Use fresh greens."
			if s.Body != want {
				t.Errorf("expected body %q, got %q", want, s.Body)
			}
		})
	}
}

func TestSegment_OneSectionPerPage(t *testing.T) {
	doc := &doctree.Document{
		Name: "guide.pdf",
		Pages: []*doctree.Page{
			{Number: 1, Lines: []doctree.Line{ln("Intro", 16, "Times", false), body("Welcome.")}},
			{Number: 2},
			{Number: 3, Lines: []doctree.Line{body("Closing words.")}},
		},
	}
	sections := Segment(doc, DefaultConfig())
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	for i, s := range sections {
		if s.Page != i+1 || s.Document != "guide.pdf" {
			t.Errorf("section %d: unexpected provenance %+v", i, s)
		}
	}
}
