// Package section splits a document into heading-bounded sections.
package section

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/docintel/internal/document"
	"github.com/dgallion1/docintel/internal/heading"
	"github.com/dgallion1/docintel/internal/textnorm"
)

// Section is the text between a heading and the next heading of the same or
// a shallower level.
type Section struct {
	Document string
	Title    string
	Page     int
	Level    heading.Level
	Content  string

	// Start and End delimit the section's elements, [Start, End), in the
	// document's reading order.
	Start, End int
}

// WordCount returns the number of whitespace-separated words in Content.
func (s Section) WordCount() int {
	return len(strings.Fields(s.Content))
}

// Segment builds the sections of d. With no headings every non-empty page
// becomes a level-1 section titled "Page N". Sections with no text are
// dropped.
func Segment(d *document.Document, hs []heading.Heading) []Section {
	if d == nil {
		return nil
	}
	elems := readingOrder(d)
	if len(hs) == 0 {
		return pageSections(d, elems)
	}

	hs = sorted(hs)
	var out []Section
	for i, h := range hs {
		start, end := span(elems, hs, i)
		content := document.JoinText(elems[start:end])
		if content == "" {
			continue
		}
		out = append(out, Section{
			Document: d.Name,
			Title:    h.Text,
			Page:     h.Page,
			Level:    h.Level,
			Content:  content,
			Start:    start,
			End:      end,
		})
	}
	return out
}

func pageSections(d *document.Document, elems []document.Element) []Section {
	var out []Section
	for i := 0; i < len(elems); {
		page := elems[i].Page
		j := i
		for j < len(elems) && elems[j].Page == page {
			j++
		}
		if content := document.JoinText(elems[i:j]); content != "" {
			out = append(out, Section{
				Document: d.Name,
				Title:    fmt.Sprintf("Page %d", page),
				Page:     page,
				Level:    1,
				Content:  content,
				Start:    i,
				End:      j,
			})
		}
		i = j
	}
	return out
}

// span returns the element range opened by hs[i]: from the heading's
// position up to the next heading whose level is not deeper.
func span(elems []document.Element, hs []heading.Heading, i int) (int, int) {
	h := hs[i]
	start := sort.Search(len(elems), func(k int) bool {
		return !before(elems[k].Page, elems[k].Y(), h.Page, h.Y())
	})
	end := len(elems)
	for _, n := range hs[i+1:] {
		if n.Level <= h.Level {
			end = sort.Search(len(elems), func(k int) bool {
				return !before(elems[k].Page, elems[k].Y(), n.Page, n.Y())
			})
			break
		}
	}
	if end < start {
		end = start
	}
	return start, end
}

func before(pageA int, yA float64, pageB int, yB float64) bool {
	if pageA != pageB {
		return pageA < pageB
	}
	return yA < yB
}

func readingOrder(d *document.Document) []document.Element {
	elems := d.Elements()
	sort.SliceStable(elems, func(i, j int) bool {
		a, b := elems[i], elems[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Y() != b.Y() {
			return a.Y() < b.Y()
		}
		return a.X() < b.X()
	})
	return elems
}

func sorted(hs []heading.Heading) []heading.Heading {
	out := append([]heading.Heading(nil), hs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Source re-locates section content in a parsed document.
type Source struct {
	Doc      *document.Document
	Headings []heading.Heading
}

// Locate returns the content of the section whose heading text matches
// title (case-folded, whitespace-collapsed) on page. When no heading
// matches, the whole text of the page is returned.
func (s Source) Locate(title string, page int) string {
	if s.Doc == nil {
		return ""
	}
	key := textnorm.Key(title)
	hs := sorted(s.Headings)
	for i, h := range hs {
		if h.Page == page && textnorm.Key(h.Text) == key {
			elems := readingOrder(s.Doc)
			start, end := span(elems, hs, i)
			return document.JoinText(elems[start:end])
		}
	}
	return s.Doc.PageText(page)
}
