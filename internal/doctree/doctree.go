package doctree

// Document is a parsed source file broken into pages.
type Document struct {
	Name  string  // Source filename, used as the document identity in output
	Title string  // Document title (from metadata or filename)
	Pages []*Page // Pages in order; Page.Number is 1-based
}

// Page is one physical (or logical, for non-PDF inputs) page of a document.
type Page struct {
	Number int    // 1-based page number
	Lines  []Line // Text lines in reading order
}

// Line is a single line of text with the typography of its first run.
type Line struct {
	Text     string
	X, Y     float64 // Position of the first run (PDF user space; 0 for non-PDF inputs)
	FontSize float64
	Font     string
	Bold     bool
}

// Section is a (heading, body) unit anchored to one page.
type Section struct {
	Document string // Document name
	Page     int    // 1-based page number
	Heading  string // Dominant heading text, empty when the page has none
	Body     string // Cleaned text of every non-heading line on the page
}

// PageKey identifies a page across the corpus.
type PageKey struct {
	Document string
	Page     int
}

// Key returns the page identity of the section.
func (s Section) Key() PageKey {
	return PageKey{Document: s.Document, Page: s.Page}
}

// HasHeading reports whether the page produced a dominant heading.
func (s Section) HasHeading() bool {
	return s.Heading != ""
}

// IsCandidate reports whether the section can compete in heading ranking:
// it needs both a heading and some body text.
func (s Section) IsCandidate() bool {
	return s.Heading != "" && s.Body != ""
}
