package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/sectionrank/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It reads positioned text runs with the Go
// library first, then falls back to pdftotext if available.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "sectionrank-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return &doctree.Document{
		Name:  filename,
		Title: trimExt(filename, ".pdf"),
		Pages: pages,
	}, nil
}

func extractPDFPages(path string) (pages []*doctree.Page, err error) {
	// The library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	grouper := newLineGrouper()
	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	for i := 1; i <= numPages; i++ {
		page := &doctree.Page{Number: i}
		pages = append(pages, page)

		pg := reader.Page(i)
		if pg.V.IsNull() {
			continue
		}
		page.Lines = grouper.group(pg.Content().Text)
	}
	return pages, nil
}

func extractPdftotext(path string) ([]*doctree.Page, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return plainTextPages(string(out)), nil
}

// plainTextPages splits form-feed separated text into pages of body lines.
func plainTextPages(text string) []*doctree.Page {
	raw := strings.Split(text, "\f")
	// pdftotext terminates the last page with a form feed.
	if len(raw) > 1 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	pages := make([]*doctree.Page, 0, len(raw))
	for i, pageText := range raw {
		page := &doctree.Page{Number: i + 1}
		for _, l := range strings.Split(pageText, "\n") {
			l = NormalizeText(l)
			if l == "" {
				continue
			}
			page.Lines = append(page.Lines, doctree.Line{
				Text:     l,
				FontSize: BodyFontSize,
				Font:     BodyFont,
			})
		}
		pages = append(pages, page)
	}
	return pages
}
