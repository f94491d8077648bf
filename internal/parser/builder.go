package parser

import (
	"math"
	"unicode/utf8"

	"github.com/dgallion1/docintel/internal/document"
)

// Formats without geometry are laid out on a synthetic US-letter page.
// Headings are bold and larger than body text.
const (
	pageTop      = 72.0
	pageBottom   = 720.0
	leftMargin   = 72.0
	textWidth    = 468.0
	bodySize     = document.DefaultFontSize
	charsPerLine = 90
	lineSpacing  = 1.2
)

// headingSizes maps heading depth 1-6 to a font size.
var headingSizes = [...]float64{24, 20, 16, 14, 13, 12.5}

// HeadingSize returns the synthetic font size of a depth-level heading.
func HeadingSize(level int) float64 {
	if level < 1 {
		return bodySize
	}
	if level > len(headingSizes) {
		level = len(headingSizes)
	}
	return headingSizes[level-1]
}

// pageBuilder flows text onto synthetic pages.
type pageBuilder struct {
	doc *document.Document
	y   float64
}

func newPageBuilder(name string) *pageBuilder {
	b := &pageBuilder{doc: &document.Document{Name: name}}
	b.newPage()
	return b
}

func (b *pageBuilder) newPage() {
	b.doc.Pages = append(b.doc.Pages, document.Page{Number: len(b.doc.Pages) + 1})
	b.y = pageTop
}

// pageBreak starts a new page unless the current one is still empty.
func (b *pageBuilder) pageBreak() {
	if len(b.current().Elements) > 0 {
		b.newPage()
	}
}

func (b *pageBuilder) current() *document.Page {
	return &b.doc.Pages[len(b.doc.Pages)-1]
}

func (b *pageBuilder) heading(text string, level int) {
	b.add(text, HeadingSize(level), true)
}

func (b *pageBuilder) paragraph(text string) {
	b.add(text, bodySize, false)
}

func (b *pageBuilder) add(text string, size float64, bold bool) {
	if text == "" {
		return
	}
	lines := math.Ceil(float64(utf8.RuneCountInString(text)) / charsPerLine)
	if lines < 1 {
		lines = 1
	}
	height := lines * size * lineSpacing
	if b.y+height > pageBottom && len(b.current().Elements) > 0 {
		b.newPage()
	}
	page := b.current()
	page.Elements = append(page.Elements, document.Element{
		Text:     text,
		Page:     page.Number,
		FontSize: size,
		Bold:     bold,
		BBox:     document.BBox{X0: leftMargin, Y0: b.y, X1: leftMargin + textWidth, Y1: b.y + height},
	})
	b.y += height + size*0.5
}

// finish drops a trailing empty page and normalizes the result.
func (b *pageBuilder) finish() *document.Document {
	if n := len(b.doc.Pages); n > 0 && len(b.doc.Pages[n-1].Elements) == 0 {
		b.doc.Pages = b.doc.Pages[:n-1]
	}
	b.doc.Normalize()
	return b.doc
}
