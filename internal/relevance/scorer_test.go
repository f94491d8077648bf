package relevance

import (
	"math"
	"testing"

	"github.com/dgallion1/docintel/internal/lexicon"
	"github.com/dgallion1/docintel/internal/section"
)

func testProfiles(t *testing.T) Profiles {
	t.Helper()
	lex, err := lexicon.Default()
	if err != nil {
		t.Fatalf("load lexicon: %v", err)
	}
	return NewProfiles(lex, "PhD Researcher in Computational Biology", "Prepare a literature review")
}

func TestNewProfiles(t *testing.T) {
	p := testProfiles(t)

	for _, kw := range []string{"phd", "researcher", "computational biology", "methodology"} {
		if !p.Persona.Has(kw) {
			t.Errorf("expected persona keyword %q", kw)
		}
	}
	if p.Persona.Has("in") {
		t.Error("expected stop word to be dropped")
	}
	for _, kw := range []string{"literature review", "benchmarks", "prepare"} {
		if !p.Job.Has(kw) {
			t.Errorf("expected job keyword %q", kw)
		}
	}
	if p.Job.Has("formula") {
		t.Error("expected exam preparation keywords not to apply")
	}
}

func TestScore(t *testing.T) {
	sc := NewScorer(DefaultConfig(), testProfiles(t))

	tests := []struct {
		name string
		sec  section.Section
		want float64
	}{
		{
			name: "level bonus only",
			sec:  section.Section{Title: "Background", Content: "plain words here only", Level: 1},
			want: 0.15,
		},
		{
			name: "title hits capped",
			sec:  section.Section{Title: "Research Findings", Content: "research findings matter", Level: 4},
			want: 1.0,
		},
		{
			name: "overlap and phrases",
			sec:  section.Section{Title: "Notes", Content: "a literature review of computational biology", Level: 4},
			want: 4.0/6*0.2 + 2.0/6*0.3 + 0.1 + 0.15,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sc.Score(tt.sec)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRank_FiltersAndOrdersAcrossDocuments(t *testing.T) {
	sc := NewScorer(DefaultConfig(), testProfiles(t))
	got := sc.Rank([]section.Section{
		{Document: "a.pdf", Title: "Background", Content: "plain words", Level: 4},
		{Document: "a.pdf", Title: "Notes", Content: "a literature review of computational biology", Level: 4},
		{Document: "b.pdf", Title: "Research Findings", Content: "research findings matter", Level: 4},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 relevant sections, got %d", len(got))
	}
	if got[0].Document != "b.pdf" || got[1].Document != "a.pdf" {
		t.Errorf("expected b.pdf then a.pdf, got %s then %s", got[0].Document, got[1].Document)
	}
	if got[0].Score < got[1].Score {
		t.Error("expected descending scores")
	}
}

func TestRank_Empty(t *testing.T) {
	sc := NewScorer(DefaultConfig(), testProfiles(t))
	if got := sc.Rank(nil); len(got) != 0 {
		t.Errorf("expected no sections, got %d", len(got))
	}
}
