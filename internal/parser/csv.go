package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docintel/internal/document"
)

// csvRowsPerPage is how many data rows are laid out per page.
const csvRowsPerPage = 20

// CSVParser handles CSV files. Each page holds a bold row-range heading
// followed by one "header: value" line per row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := newPageBuilder(filename)
	if len(records) == 0 {
		return b.finish(), nil
	}

	headers := records[0]
	dataRows := records[1:]

	for i := 0; i < len(dataRows); i += csvRowsPerPage {
		end := min(i+csvRowsPerPage, len(dataRows))
		b.pageBreak()
		b.heading(fmt.Sprintf("Rows %d-%d", i+2, end+1), 2) // 1-indexed, skip header
		for _, row := range dataRows[i:end] {
			b.paragraph(formatRow(headers, row))
		}
	}
	return b.finish(), nil
}

func formatRow(headers, row []string) string {
	var text strings.Builder
	for j, cell := range row {
		if j > 0 {
			text.WriteString(", ")
		}
		if j < len(headers) {
			text.WriteString(headers[j] + ": " + cell)
		} else {
			text.WriteString(cell)
		}
	}
	return text.String()
}
