package document

import "testing"

func TestElementNormalize_Defaults(t *testing.T) {
	e := Element{Text: "  Body text  "}
	e.Normalize()
	if e.FontSize != DefaultFontSize {
		t.Errorf("expected font size %v, got %v", DefaultFontSize, e.FontSize)
	}
	if e.Text != "Body text" {
		t.Errorf("expected trimmed text, got %q", e.Text)
	}
	if e.Bold {
		t.Error("expected bold to default to false")
	}
	if e.X() != 0 || e.Y() != 0 {
		t.Errorf("expected zero position, got (%v, %v)", e.X(), e.Y())
	}
}

func TestElementNormalize_DetectsCaps(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"EXECUTIVE SUMMARY", true},
		{"Executive Summary", false},
		{"2024", false},
		{"PART 2: RESULTS", true},
	}
	for _, tt := range tests {
		e := Element{Text: tt.text, FontSize: 12}
		e.Normalize()
		if e.Caps != tt.want {
			t.Errorf("text=%q: expected caps=%v, got %v", tt.text, tt.want, e.Caps)
		}
	}
}

func TestDocumentNormalize_PageNumbersAndOrder(t *testing.T) {
	d := &Document{
		Pages: []Page{
			{Elements: []Element{
				{Text: "second", BBox: BBox{X0: 72, Y0: 200}},
				{Text: "first", BBox: BBox{X0: 72, Y0: 100}},
			}},
			{Elements: []Element{{Text: "third", BBox: BBox{X0: 72, Y0: 50}}}},
		},
	}
	d.Normalize()

	if d.Pages[1].Number != 2 {
		t.Errorf("expected page number 2, got %d", d.Pages[1].Number)
	}
	if d.Pages[1].Elements[0].Page != 2 {
		t.Errorf("expected element page 2, got %d", d.Pages[1].Elements[0].Page)
	}
	elems := d.Elements()
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if elems[i].Text != w {
			t.Errorf("element %d: expected %q, got %q", i, w, elems[i].Text)
		}
	}
}

func TestPageText(t *testing.T) {
	d := &Document{Pages: []Page{{Number: 1, Elements: []Element{
		{Text: "Hello"}, {Text: "   "}, {Text: "world"},
	}}}}
	if got := d.PageText(1); got != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", got)
	}
	if got := d.PageText(9); got != "" {
		t.Errorf("expected empty text for missing page, got %q", got)
	}
}

func TestExtractTitle(t *testing.T) {
	d := &Document{Pages: []Page{{Number: 1, Elements: []Element{
		{Text: "12", FontSize: 10, BBox: BBox{Y0: 10}},
		{Text: "Draft version 3 of the report", FontSize: 18, BBox: BBox{Y0: 20}},
		{Text: "Annual Climate Report", FontSize: 20, Bold: true, BBox: BBox{Y0: 40}},
		{Text: "A much longer paragraph of body text that follows.", FontSize: 12, BBox: BBox{Y0: 80}},
	}}}}
	if got := ExtractTitle(d); got != "Annual Climate Report" {
		t.Errorf("expected %q, got %q", "Annual Climate Report", got)
	}
}

func TestExtractTitle_NoCandidate(t *testing.T) {
	d := &Document{Pages: []Page{{Number: 1, Elements: []Element{
		{Text: "Page 1", FontSize: 20},
		{Text: "Short", FontSize: 12},
	}}}}
	if got := ExtractTitle(d); got != "" {
		t.Errorf("expected no title, got %q", got)
	}
	if got := ExtractTitle(&Document{}); got != "" {
		t.Errorf("expected no title for empty document, got %q", got)
	}
}
