// Package rank applies structural bonuses to relevance-scored sections and
// picks the most important ones.
package rank

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docintel/internal/lexicon"
	"github.com/dgallion1/docintel/internal/relevance"
	"github.com/dgallion1/docintel/internal/textnorm"
)

// Config holds the ranking thresholds and bonuses.
type Config struct {
	MinRelevance    float64  `yaml:"min_relevance"`
	MinWords        int      `yaml:"min_words"`
	MaxWords        int      `yaml:"max_words"`
	LengthBonus     float64  `yaml:"length_bonus"`
	LongBonus       float64  `yaml:"long_bonus"`
	TopLevelBonus   float64  `yaml:"top_level_bonus"`
	ThirdLevelBonus float64  `yaml:"third_level_bonus"`
	TitleWords      []string `yaml:"title_words"`
	TitleBonus      float64  `yaml:"title_bonus"`
	PersonaBonus    float64  `yaml:"persona_bonus"`
	JobBonus        float64  `yaml:"job_bonus"`
	MaxCandidates   int      `yaml:"max_candidates"`
	MaxRanked       int      `yaml:"max_ranked"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinRelevance:    0.2,
		MinWords:        50,
		MaxWords:        500,
		LengthBonus:     0.1,
		LongBonus:       0.05,
		TopLevelBonus:   0.15,
		ThirdLevelBonus: 0.05,
		TitleWords:      []string{"introduction", "overview", "summary", "conclusion"},
		TitleBonus:      0.1,
		PersonaBonus:    0.1,
		JobBonus:        0.1,
		MaxCandidates:   20,
		MaxRanked:       5,
	}
}

// UntitledSection replaces titles that are empty after cleaning.
const UntitledSection = "Untitled Section"

// RankedSection is a section selected for output.
type RankedSection struct {
	relevance.Scored
	FinalScore     float64
	ImportanceRank int    // 1-based, dense
	CleanTitle     string // numbering and bullets stripped
}

// Ranker orders sections for one persona and job.
type Ranker struct {
	cfg               Config
	personaIndicators [][]string
	jobIndicators     [][]string
}

func NewRanker(cfg Config, lex *lexicon.Lexicon, persona, job string) *Ranker {
	return &Ranker{
		cfg:               cfg,
		personaIndicators: lex.PersonaIndicatorsFor(persona),
		jobIndicators:     lex.JobIndicatorsFor(job),
	}
}

// FinalScore adds the structural bonuses to the relevance score, capped at 1.
func (r *Ranker) FinalScore(s relevance.Scored) float64 {
	var bonus float64

	switch words := s.WordCount(); {
	case words >= r.cfg.MinWords && words <= r.cfg.MaxWords:
		bonus += r.cfg.LengthBonus
	case words > r.cfg.MaxWords:
		bonus += r.cfg.LongBonus
	}

	switch {
	case s.Level <= 2:
		bonus += r.cfg.TopLevelBonus
	case s.Level == 3:
		bonus += r.cfg.ThirdLevelBonus
	}

	title := textnorm.Fold(s.Title)
	content := textnorm.Fold(s.Content)
	if containsAny(title, r.cfg.TitleWords) {
		bonus += r.cfg.TitleBonus
	}
	if indicated(r.personaIndicators, title, content) {
		bonus += r.cfg.PersonaBonus
	}
	if indicated(r.jobIndicators, title, content) {
		bonus += r.cfg.JobBonus
	}
	return math.Min(s.Score+bonus, 1.0)
}

// Rank drops sections under MinRelevance, orders the rest by final score
// and returns at most MaxRanked of them with dense 1-based ranks. Ties keep
// input order.
func (r *Ranker) Rank(scored []relevance.Scored) []RankedSection {
	var out []RankedSection
	for _, s := range scored {
		if s.Score < r.cfg.MinRelevance {
			continue
		}
		out = append(out, RankedSection{Scored: s, FinalScore: r.FinalScore(s)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })

	if len(out) > r.cfg.MaxCandidates {
		out = out[:r.cfg.MaxCandidates]
	}
	if len(out) > r.cfg.MaxRanked {
		out = out[:r.cfg.MaxRanked]
	}
	for i := range out {
		out[i].ImportanceRank = i + 1
		out[i].CleanTitle = CleanTitle(out[i].Title)
	}
	return out
}

var (
	numberPrefix = regexp.MustCompile(`^\d+\.?\s*`)
	bulletPrefix = regexp.MustCompile(`^[\x{2022}\x{25cf}\x{25cb}]\s*`)
)

// CleanTitle collapses whitespace, strips a leading number or bullet and
// capitalizes the first letter.
func CleanTitle(title string) string {
	title = textnorm.CollapseSpace(title)
	title = numberPrefix.ReplaceAllString(title, "")
	title = bulletPrefix.ReplaceAllString(title, "")
	title = strings.TrimSpace(title)
	if title == "" {
		return UntitledSection
	}
	r, size := utf8.DecodeRuneInString(title)
	if unicode.IsLower(r) {
		title = string(unicode.ToUpper(r)) + title[size:]
	}
	return title
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func indicated(sets [][]string, title, content string) bool {
	for _, set := range sets {
		for _, ind := range set {
			if strings.Contains(content, ind) || strings.Contains(title, ind) {
				return true
			}
		}
	}
	return false
}
