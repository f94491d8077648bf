package insight

import (
	"math"
	"strings"
	"testing"

	"github.com/dgallion1/docintel/internal/document"
	"github.com/dgallion1/docintel/internal/heading"
	"github.com/dgallion1/docintel/internal/lexicon"
	"github.com/dgallion1/docintel/internal/rank"
	"github.com/dgallion1/docintel/internal/relevance"
	"github.com/dgallion1/docintel/internal/section"
)

const studyParagraph = "This study reviews research methodology findings in computational biology and offers a careful literature review of recent benchmark datasets. The most important finding is that graph models improve protein structure prediction accuracy across many public datasets."

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	lex, err := lexicon.Default()
	if err != nil {
		t.Fatalf("load lexicon: %v", err)
	}
	profiles := relevance.NewProfiles(lex, "PhD Researcher in Computational Biology", "Prepare a literature review")
	return NewExtractor(DefaultConfig(), profiles)
}

func TestPassages_Paragraph(t *testing.T) {
	x := newExtractor(t)
	got := x.Passages(studyParagraph)
	if len(got) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(got))
	}

	// 35 distinct words: 9 persona and 5 job keywords, one phrase of each.
	want := 9.0/35*0.4 + 5.0/35*0.6 + 0.1 + 0.15
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("expected score %v, got %v", want, got[0].Score)
	}
	if got[0].Text != studyParagraph {
		t.Errorf("expected refined text unchanged, got %q", got[0].Text)
	}
	wantInsight := "The most important finding is that graph models improve protein structure prediction accuracy across many public datasets."
	if len(got[0].KeyInsights) != 1 || got[0].KeyInsights[0] != wantInsight {
		t.Errorf("expected insight %q, got %q", wantInsight, got[0].KeyInsights)
	}
}

func TestPassages_ShortContentYieldsNothing(t *testing.T) {
	x := newExtractor(t)
	content := "A literature review of computational biology with research methodology findings in twenty nine words or so which is not quite enough for any passage to qualify here at all"
	if n := len(strings.Fields(content)); n >= 30 {
		t.Fatalf("test content must be under 30 words, has %d", n)
	}
	if got := x.Passages(content); got != nil {
		t.Errorf("expected no passages, got %+v", got)
	}
}

func TestPassages_SentenceFallback(t *testing.T) {
	x := newExtractor(t)
	// No paragraph reaches 30 words, so consecutive sentences are grouped.
	content := "Our literature review covers computational biology methods for protein folding research today.\n\n" +
		"Key results show that graph methodology findings improve accuracy on 12 benchmark datasets in recent public studies.\n\n" +
		"Future research will extend these methods to larger protein datasets."
	if n := len(strings.Fields(content)); n != 39 {
		t.Fatalf("test content must have 39 words, has %d", n)
	}

	got := x.Passages(content)
	if len(got) != 1 {
		t.Fatalf("expected 1 grouped passage, got %d", len(got))
	}
	if n := len(strings.Fields(got[0].Text)); n != 39 {
		t.Errorf("expected 39-word group, got %d", n)
	}
	if !strings.Contains(got[0].Text, "research today. Key results") {
		t.Errorf("expected sentences to keep their periods, got %q", got[0].Text)
	}
	if !strings.HasSuffix(got[0].Text, ".") {
		t.Errorf("expected terminal period, got %q", got[0].Text)
	}
	wantInsight := "Key results show that graph methodology findings improve accuracy on 12 benchmark datasets in recent public studies."
	if len(got[0].KeyInsights) != 1 || got[0].KeyInsights[0] != wantInsight {
		t.Errorf("expected insight %q, got %q", wantInsight, got[0].KeyInsights)
	}
}

func TestKeyInsights(t *testing.T) {
	x := newExtractor(t)

	fallback := "The experiment measured 42 samples across three separate field sites. " +
		"This sentence is long enough but has nothing special. Short one."
	got := x.KeyInsights(fallback)
	if len(got) != 1 || got[0] != "The experiment measured 42 samples across three separate field sites." {
		t.Errorf("expected numeric fallback sentence, got %q", got)
	}

	many := strings.Repeat("This is a key point worth remembering for later use. ", 5)
	if got := x.KeyInsights(many); len(got) != 3 {
		t.Errorf("expected at most 3 insights, got %d", len(got))
	}
}

func TestRefine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  • bullet   text", "bullet text."},
		{"Done!", "Done!"},
		{"Label:", "Label:"},
		{"multi\nline\ttext", "multi line text."},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Refine(tt.in); got != tt.want {
			t.Errorf("Refine(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestExtract(t *testing.T) {
	x := newExtractor(t)
	doc := &document.Document{Name: "a.pdf", Pages: []document.Page{{Elements: []document.Element{
		{Text: "1. Introduction", FontSize: 24, Bold: true, BBox: document.BBox{X0: 72, Y0: 72}},
		{Text: studyParagraph, FontSize: 12, BBox: document.BBox{X0: 72, Y0: 110}},
	}}}}
	doc.Normalize()
	sources := map[string]section.Source{
		"a.pdf": {Doc: doc, Headings: []heading.Heading{
			{Text: "1. Introduction", Page: 1, Level: 1, BBox: document.BBox{X0: 72, Y0: 72}},
		}},
	}
	ranked := []rank.RankedSection{
		{
			Scored:         relevance.Scored{Section: section.Section{Document: "a.pdf", Title: "1. Introduction", Page: 1, Level: 1}, Score: 0.9},
			ImportanceRank: 1,
			CleanTitle:     "Introduction",
		},
		{
			Scored:         relevance.Scored{Section: section.Section{Document: "missing.pdf", Title: "Other", Page: 1, Level: 1}, Score: 0.8},
			ImportanceRank: 2,
			CleanTitle:     "Other",
		},
	}

	got := x.Extract(ranked, sources)
	if len(got) != 1 {
		t.Fatalf("expected 1 subsection, got %d", len(got))
	}
	if got[0].Document != "a.pdf" || got[0].SectionTitle != "Introduction" || got[0].Page != 1 {
		t.Errorf("unexpected attribution %+v", got[0])
	}
	if !strings.HasPrefix(got[0].Text, "1. Introduction This study") {
		t.Errorf("expected content to start at the heading, got %q", got[0].Text)
	}
}
