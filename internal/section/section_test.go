package section

import (
	"testing"

	"github.com/dgallion1/docintel/internal/document"
	"github.com/dgallion1/docintel/internal/heading"
)

func line(text string, y float64) document.Element {
	return document.Element{Text: text, FontSize: 12, BBox: document.BBox{X0: 72, Y0: y}}
}

func newDoc(pages ...[]document.Element) *document.Document {
	d := &document.Document{Name: "report.pdf"}
	for _, els := range pages {
		d.Pages = append(d.Pages, document.Page{Elements: els})
	}
	d.Normalize()
	return d
}

func hd(text string, page int, y float64, level heading.Level) heading.Heading {
	return heading.Heading{Text: text, Page: page, Level: level, BBox: document.BBox{X0: 72, Y0: y}}
}

func TestSegment_NoHeadingsFallsBackToPages(t *testing.T) {
	d := newDoc(
		[]document.Element{line("alpha", 10), line("beta", 20)},
		[]document.Element{line("   ", 10)},
		[]document.Element{line("gamma", 10)},
	)
	got := Segment(d, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 page sections, got %d", len(got))
	}
	if got[0].Title != "Page 1" || got[0].Content != "alpha beta" {
		t.Errorf("unexpected first section %+v", got[0])
	}
	if got[1].Title != "Page 3" || got[1].Page != 3 {
		t.Errorf("expected empty page 2 to be dropped, got %+v", got[1])
	}
	if got[0].Level != 1 {
		t.Errorf("expected level 1, got %s", got[0].Level)
	}
}

func TestSegment_SpansAcrossPages(t *testing.T) {
	d := newDoc(
		[]document.Element{line("Intro", 50), line("first body", 80), line("Methods", 300), line("method body", 320)},
		[]document.Element{line("more methods", 40), line("Results", 200), line("result body", 220)},
	)
	hs := []heading.Heading{
		hd("Results", 2, 200, 1),
		hd("Intro", 1, 50, 1),
		hd("Methods", 1, 300, 1),
	}
	got := Segment(d, hs)
	if len(got) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(got))
	}
	want := []string{"Intro first body", "Methods method body more methods", "Results result body"}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("section %d: expected %q, got %q", i, w, got[i].Content)
		}
	}

	// Flat headings: spans are disjoint and together cover every element.
	covered := 0
	for i, s := range got {
		if i > 0 && s.Start < got[i-1].End {
			t.Errorf("section %d overlaps previous span", i)
		}
		covered += s.End - s.Start
	}
	if covered != len(d.Elements()) {
		t.Errorf("expected spans to cover %d elements, got %d", len(d.Elements()), covered)
	}
}

func TestSegment_NestedHeadingsEndAtShallowerLevel(t *testing.T) {
	d := newDoc([]document.Element{
		line("Chapter", 10), line("a", 20),
		line("Part", 30), line("b", 40),
		line("Next Chapter", 50), line("c", 60),
	})
	hs := []heading.Heading{
		hd("Chapter", 1, 10, 1),
		hd("Part", 1, 30, 2),
		hd("Next Chapter", 1, 50, 1),
	}
	got := Segment(d, hs)
	if got[0].Content != "Chapter a Part b" {
		t.Errorf("expected parent to run to the next H1, got %q", got[0].Content)
	}
	if got[1].Content != "Part b" {
		t.Errorf("expected child to stop at the next H1, got %q", got[1].Content)
	}
	if got[1].Start < got[0].Start || got[1].End > got[0].End {
		t.Error("expected child span inside parent span")
	}
}

func TestSegment_NilDocument(t *testing.T) {
	if got := Segment(nil, nil); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSourceLocate(t *testing.T) {
	d := newDoc(
		[]document.Element{line("Overview", 10), line("overview body", 20), line("Details", 30), line("detail body", 40)},
		[]document.Element{line("page two text", 10)},
	)
	src := Source{Doc: d, Headings: []heading.Heading{hd("Overview", 1, 10, 1), hd("Details", 1, 30, 1)}}

	if got := src.Locate("  OVERVIEW ", 1); got != "Overview overview body" {
		t.Errorf("expected heading match, got %q", got)
	}
	if got := src.Locate("Missing", 2); got != "page two text" {
		t.Errorf("expected page fallback, got %q", got)
	}
	if got := src.Locate("Overview", 2); got != "page two text" {
		t.Errorf("expected page to be part of the match, got %q", got)
	}
}
