package document

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// DefaultFontSize is assumed for spans whose parser could not report a size.
const DefaultFontSize = 12.0

// Document is the parsed page/element stream of one input file.
type Document struct {
	Name  string // Identifier reported in results (usually the file name)
	Title string // From metadata, extraction or the file name
	Pages []Page
}

// Page holds the text spans found on one page.
type Page struct {
	Number   int // 1-based
	Elements []Element
}

// BBox is a bounding box in top-down page coordinates.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Element is one span of text as produced by a parser.
type Element struct {
	Text     string
	Page     int
	BBox     BBox
	FontSize float64
	FontName string
	Bold     bool
	Italic   bool
	Caps     bool
}

// X is the left edge of the element.
func (e Element) X() float64 { return e.BBox.X0 }

// Y is the top edge of the element.
func (e Element) Y() float64 { return e.BBox.Y0 }

func (e Element) Width() float64  { return e.BBox.X1 - e.BBox.X0 }
func (e Element) Height() float64 { return e.BBox.Y1 - e.BBox.Y0 }

// Normalize fills neutral defaults for missing or invalid fields.
func (e *Element) Normalize() {
	e.Text = strings.TrimSpace(e.Text)
	if e.FontSize <= 0 || math.IsNaN(e.FontSize) || math.IsInf(e.FontSize, 0) {
		e.FontSize = DefaultFontSize
	}
	e.BBox.X0 = finite(e.BBox.X0)
	e.BBox.Y0 = finite(e.BBox.Y0)
	e.BBox.X1 = finite(e.BBox.X1)
	e.BBox.Y1 = finite(e.BBox.Y1)
	if !e.Caps {
		e.Caps = IsUpper(e.Text)
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// IsUpper reports whether s has at least one cased letter and no lowercase ones.
func IsUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// Normalize numbers pages, stamps each element with its page and fills
// element defaults. Elements within a page are put in reading order
// (top to bottom, then left to right).
func (d *Document) Normalize() {
	for i := range d.Pages {
		p := &d.Pages[i]
		if p.Number <= 0 {
			p.Number = i + 1
		}
		for j := range p.Elements {
			p.Elements[j].Page = p.Number
			p.Elements[j].Normalize()
		}
		sort.SliceStable(p.Elements, func(a, b int) bool {
			ea, eb := p.Elements[a], p.Elements[b]
			if ea.Y() != eb.Y() {
				return ea.Y() < eb.Y()
			}
			return ea.X() < eb.X()
		})
	}
}

// Elements returns every element in reading order across pages.
func (d *Document) Elements() []Element {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Elements)
	}
	out := make([]Element, 0, n)
	for _, p := range d.Pages {
		out = append(out, p.Elements...)
	}
	return out
}

// PageText joins the non-empty element texts of page n with single spaces.
func (d *Document) PageText(n int) string {
	for _, p := range d.Pages {
		if p.Number == n {
			return JoinText(p.Elements)
		}
	}
	return ""
}

// JoinText joins trimmed, non-empty element texts with single spaces.
func JoinText(elems []Element) string {
	var sb strings.Builder
	for _, e := range elems {
		t := strings.TrimSpace(e.Text)
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
	}
	return sb.String()
}
