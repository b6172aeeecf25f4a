package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_HeadingsStartPages(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", doc.Title)
	}
	if doc.Name != "doc.md" {
		t.Errorf("expected name %q, got %q", "doc.md", doc.Name)
	}

	// h1 and each h2 start a page; the h3 stays on Section A's page.
	if len(doc.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(doc.Pages))
	}
	for i, page := range doc.Pages {
		if page.Number != i+1 {
			t.Errorf("page %d: expected number %d, got %d", i, i+1, page.Number)
		}
	}

	secA := doc.Pages[1]
	if len(secA.Lines) != 4 {
		t.Fatalf("expected 4 lines on Section A page, got %d", len(secA.Lines))
	}
	if secA.Lines[0].Text != "Section A" || !secA.Lines[0].Bold {
		t.Errorf("expected bold heading line %q, got %+v", "Section A", secA.Lines[0])
	}
	if secA.Lines[2].Text != "Subsection A1" {
		t.Errorf("expected %q, got %q", "Subsection A1", secA.Lines[2].Text)
	}
	if secA.Lines[0].FontSize <= secA.Lines[2].FontSize {
		t.Errorf("expected h2 (%v) to be larger than h3 (%v)", secA.Lines[0].FontSize, secA.Lines[2].FontSize)
	}
	if secA.Lines[1].FontSize != BodyFontSize || secA.Lines[1].Bold {
		t.Errorf("expected plain body line, got %+v", secA.Lines[1])
	}
}

func TestMarkdownParser_NoDuplicateParagraphText(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader("Just some plain text."), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 1 || len(doc.Pages[0].Lines) != 1 {
		t.Fatalf("expected a single line on a single page, got %+v", doc.Pages)
	}
	if got := doc.Pages[0].Lines[0].Text; got != "Just some plain text." {
		t.Errorf("expected %q, got %q", "Just some plain text.", got)
	}
}

func TestMarkdownParser_ListItemsAreSeparateLines(t *testing.T) {
	input := "# Menu\n\n- Tomato soup\n- Green salad\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "menu.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := doc.Pages[0].Lines
	if len(lines) != 3 {
		t.Fatalf("expected heading + 2 items, got %d lines: %+v", len(lines), lines)
	}
	if lines[1].Text != "Tomato soup" || lines[2].Text != "Green salad" {
		t.Errorf("unexpected list lines: %q, %q", lines[1].Text, lines[2].Text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(doc.Pages))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		doc, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if doc.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, doc.Title)
		}
	}
}
