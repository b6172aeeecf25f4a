package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/sectionrank/internal/doctree"
)

// TextParser handles plain text files. Paragraphs become body lines and
// form feeds start a new page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &doctree.Document{
		Name:  filename,
		Title: trimExt(filename, ".txt"),
	}
	b := newPageBuilder(doc)

	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			b.body(current.String())
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		for strings.Contains(line, "\f") {
			before, after, _ := strings.Cut(line, "\f")
			if strings.TrimSpace(before) != "" {
				current.WriteString(" " + before)
			}
			flush()
			b.breakPage()
			line = after
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	b.finish()

	return doc, nil
}
