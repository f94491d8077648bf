// Package insight mines ranked sections for short, relevant passages and
// the key sentences within them.
package insight

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/docintel/internal/chunker"
	"github.com/dgallion1/docintel/internal/rank"
	"github.com/dgallion1/docintel/internal/relevance"
	"github.com/dgallion1/docintel/internal/section"
	"github.com/dgallion1/docintel/internal/textnorm"
)

// Config holds passage scoring and selection settings.
type Config struct {
	MinWords           int            `yaml:"min_words"`
	PersonaWeight      float64        `yaml:"persona_weight"`
	JobWeight          float64        `yaml:"job_weight"`
	PersonaPhraseBonus float64        `yaml:"persona_phrase_bonus"`
	JobPhraseBonus     float64        `yaml:"job_phrase_bonus"`
	MinScore           float64        `yaml:"min_score"`
	MaxPerSection      int            `yaml:"max_per_section"`
	MinInsightWords    int            `yaml:"min_insight_words"`
	MaxInsights        int            `yaml:"max_insights"`
	InsightTerms       []string       `yaml:"insight_terms"`
	FallbackTerms      []string       `yaml:"fallback_terms"`
	Chunker            chunker.Config `yaml:"chunker"`
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		MinWords:           30,
		PersonaWeight:      0.4,
		JobWeight:          0.6,
		PersonaPhraseBonus: 0.1,
		JobPhraseBonus:     0.15,
		MinScore:           0.3,
		MaxPerSection:      5,
		MinInsightWords:    8,
		MaxInsights:        3,
		InsightTerms: []string{
			"important", "key", "significant", "critical", "essential", "main",
			"primary", "fundamental", "crucial", "major", "notable", "remarkable",
		},
		FallbackTerms: []string{"result", "finding", "conclusion", "shows", "indicates"},
		Chunker:       chunker.DefaultConfig(),
	}
}

// Passage is a scored excerpt of one section.
type Passage struct {
	Text        string
	Score       float64
	KeyInsights []string
}

// Subsection is a passage attributed to its document and section.
type Subsection struct {
	Document     string
	SectionTitle string
	Page         int
	Passage
}

// Extractor finds passages for one persona and job.
type Extractor struct {
	cfg      Config
	profiles relevance.Profiles
}

func NewExtractor(cfg Config, profiles relevance.Profiles) *Extractor {
	return &Extractor{cfg: cfg, profiles: profiles}
}

// Extract re-locates the content of every ranked section in its document
// and returns the passages of all sections, highest score first. Sections
// whose document has no source are skipped.
func (x *Extractor) Extract(ranked []rank.RankedSection, sources map[string]section.Source) []Subsection {
	var out []Subsection
	for _, rs := range ranked {
		src, ok := sources[rs.Document]
		if !ok {
			continue
		}
		content := src.Locate(rs.Title, rs.Page)
		for _, p := range x.Passages(content) {
			out = append(out, Subsection{
				Document:     rs.Document,
				SectionTitle: rs.CleanTitle,
				Page:         rs.Page,
				Passage:      p,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Passages returns at most MaxPerSection passages of content scoring above
// MinScore. Paragraphs are tried first; when none qualifies, consecutive
// sentences are grouped instead. Content under MinWords words yields nothing.
func (x *Extractor) Passages(content string) []Passage {
	if chunker.WordCount(content) < x.cfg.MinWords {
		return nil
	}

	var out []Passage
	for _, para := range chunker.Paragraphs(content, x.cfg.Chunker) {
		if chunker.WordCount(para) < x.cfg.MinWords {
			continue
		}
		if p, ok := x.passage(para); ok {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		for _, group := range chunker.SentenceGroups(content, x.cfg.Chunker) {
			if p, ok := x.passage(group); ok {
				out = append(out, p)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > x.cfg.MaxPerSection {
		out = out[:x.cfg.MaxPerSection]
	}
	return out
}

func (x *Extractor) passage(text string) (Passage, bool) {
	refined := Refine(text)
	score := x.Score(refined)
	if score <= x.cfg.MinScore {
		return Passage{}, false
	}
	return Passage{Text: refined, Score: score, KeyInsights: x.KeyInsights(refined)}, true
}

// Score rates text by its word overlap with the persona and job profiles
// plus a bonus per profile phrase it contains, capped at 1.
func (x *Extractor) Score(text string) float64 {
	p, j := x.profiles.Persona, x.profiles.Job
	var score float64
	words := textnorm.WordSet(text)
	if n := len(words); n > 0 {
		score += float64(p.Overlap(words)) / float64(n) * x.cfg.PersonaWeight
		score += float64(j.Overlap(words)) / float64(n) * x.cfg.JobWeight
	}
	score += float64(p.Phrases(text))*x.cfg.PersonaPhraseBonus +
		float64(j.Phrases(text))*x.cfg.JobPhraseBonus
	return math.Min(score, 1.0)
}

var digits = regexp.MustCompile(`\d+`)

// KeyInsights returns up to MaxInsights sentences of at least
// MinInsightWords words that carry an insight term. When none do, sentences
// with a number or a result term are used instead.
func (x *Extractor) KeyInsights(text string) []string {
	sentences := chunker.Sentences(text, x.cfg.MinInsightWords)

	var out []string
	for _, s := range sentences {
		if containsAny(textnorm.Fold(s), x.cfg.InsightTerms) {
			out = append(out, s+".")
		}
	}
	if len(out) == 0 {
		for _, s := range sentences {
			if digits.MatchString(s) || containsAny(textnorm.Fold(s), x.cfg.FallbackTerms) {
				out = append(out, s+".")
			}
		}
	}
	if len(out) > x.cfg.MaxInsights {
		out = out[:x.cfg.MaxInsights]
	}
	return out
}

var leadingBullet = regexp.MustCompile(`^[\x{2022}\x{25cf}\x{25cb}]\s*`)

// Refine collapses whitespace, strips a leading bullet and makes sure the
// text ends with a punctuation mark.
func Refine(text string) string {
	text = textnorm.CollapseSpace(text)
	text = leadingBullet.ReplaceAllString(text, "")
	if text != "" && !strings.ContainsAny(text[len(text)-1:], ".!?:") {
		text += "."
	}
	return strings.TrimSpace(text)
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
