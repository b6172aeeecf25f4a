package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/sectionrank/internal/doctree"
)

// csvRowsPerPage is how many data rows go on one logical page.
const csvRowsPerPage = 20

// CSVParser handles CSV files. Each batch of rows becomes a page headed by
// its row range, with one body line per row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &doctree.Document{
		Name:  filename,
		Title: trimExt(filename, ".csv"),
	}
	if len(records) == 0 {
		return doc, nil
	}

	// First row is headers.
	headers := records[0]
	dataRows := records[1:]
	b := newPageBuilder(doc)

	for i := 0; i < len(dataRows); i += csvRowsPerPage {
		end := min(i+csvRowsPerPage, len(dataRows))

		b.breakPage()
		b.heading(fmt.Sprintf("Rows %d-%d", i+2, end+1), 2) // 1-indexed, skip header
		for _, row := range dataRows[i:end] {
			if line := csvRowText(headers, row); line != "" {
				b.body(line)
			}
		}
	}
	b.finish()

	return doc, nil
}

// csvRowText renders a row as "header: value" pairs ending in a period so
// each row reads as one sentence.
func csvRowText(headers, row []string) string {
	var parts []string
	for j, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if j < len(headers) && strings.TrimSpace(headers[j]) != "" {
			parts = append(parts, strings.TrimSpace(headers[j])+": "+cell)
		} else {
			parts = append(parts, cell)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	text := strings.Join(parts, ", ")
	if !strings.HasSuffix(text, ".") {
		text += "."
	}
	return text
}
