package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docintel/internal/document"
)

// TextParser handles plain text files. Blank lines separate paragraphs and a
// form feed starts a new page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := newPageBuilder(filename)
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			b.paragraph(current.String())
			current.Reset()
		}
	}

	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\f")
		for i, line := range parts {
			if i > 0 {
				flush()
				b.pageBreak()
			}
			if strings.TrimSpace(line) == "" {
				flush()
				continue
			}
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.finish(), nil
}
