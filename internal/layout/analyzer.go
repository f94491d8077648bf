package layout

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docintel/internal/document"
)

// Config holds the heading-score weights.
type Config struct {
	LargeFontCap     float64 `yaml:"large_font_cap"`
	LeftMargin       float64 `yaml:"left_margin"`
	LeftMarginBonus  float64 `yaml:"left_margin_bonus"`
	PatternBonus     float64 `yaml:"pattern_bonus"`
	NumberedBonus    float64 `yaml:"numbered_bonus"`
	MaxPatternScore  float64 `yaml:"max_pattern_score"`
	ShortChars       int     `yaml:"short_chars"`
	ShortBonus       float64 `yaml:"short_bonus"`
	VeryShortChars   int     `yaml:"very_short_chars"`
	VeryShortBonus   float64 `yaml:"very_short_bonus"`
	FewWords         int     `yaml:"few_words"`
	FewWordsBonus    float64 `yaml:"few_words_bonus"`
	KeywordBonus     float64 `yaml:"keyword_bonus"`
	BoldBonus        float64 `yaml:"bold_bonus"`
	CapsBonus        float64 `yaml:"caps_bonus"`
	CapsMinChars     int     `yaml:"caps_min_chars"`
	ExclusionPenalty float64 `yaml:"exclusion_penalty"`
}

// DefaultConfig returns the stock weights.
func DefaultConfig() Config {
	return Config{
		LargeFontCap:     3.0,
		LeftMargin:       100,
		LeftMarginBonus:  0.5,
		PatternBonus:     1.5,
		NumberedBonus:    1.0,
		MaxPatternScore:  1.5,
		ShortChars:       100,
		ShortBonus:       0.5,
		VeryShortChars:   50,
		VeryShortBonus:   0.5,
		FewWords:         10,
		FewWordsBonus:    0.5,
		KeywordBonus:     1.0,
		BoldBonus:        1.0,
		CapsBonus:        0.5,
		CapsMinChars:     3,
		ExclusionPenalty: 2.0,
	}
}

// Features records which signals contributed to an element's heading score.
type Features struct {
	LargeFont      bool    `json:"large_font"`
	LeftAligned    bool    `json:"left_aligned"`
	PatternScore   float64 `json:"pattern_score"`
	HeadingKeyword bool    `json:"has_heading_keywords"`
	Bold           bool    `json:"is_bold"`
	Caps           bool    `json:"is_caps"`
	Excluded       bool    `json:"excluded_pattern"`
}

// Element is a document element enriched with layout and lexical features.
type Element struct {
	document.Element
	WordCount     int
	CharCount     int
	NumericPrefix bool     // Text starts with "N."
	HeadingScore  float64
	Features      Features
}

// Stats are document-wide font size statistics.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

var (
	headingPatterns = compileAll(
		`^\d+\.?\s+[A-Z]`,
		`^\d+\.\d+\.?\s+`,
		`^\d+\.\d+\.\d+`,
		`^[A-Z][a-z]+:`,
		`^[IVX]+\.?\s+[A-Z]`,
		`^[A-Z]\.?\s+[A-Z]`,
		`^Chapter\s+\d+`,
		`^Section\s+\d+`,
		`^Appendix\s+[A-Z]`,
	)
	excludePatterns = compileAll(
		`^\d+$`,
		`^page\s+\d+`,
		`^\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`,
		`^copyright\s+`,
		`^©\s*\d{4}`,
		`^\s*$`,
		`^[a-z]+@[a-z]+\.`,
		`^https?://`,
	)
	numericPrefix = regexp.MustCompile(`^\d+\.`)

	headingKeywords = []string{
		"introduction", "conclusion", "summary", "overview", "background",
		"methodology", "method", "approach", "results", "discussion",
		"chapter", "section", "appendix", "references", "bibliography",
		"abstract", "objectives", "goals", "requirements", "specifications",
		"implementation", "analysis", "evaluation", "recommendations",
		"acknowledgments", "acknowledgements", "contents", "index",
	}
)

// compileAll compiles case-insensitive patterns.
func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// ComputeStats returns mean, median and sample standard deviation of the
// font sizes. StdDev is 0 for fewer than two elements.
func ComputeStats(elems []document.Element) Stats {
	if len(elems) == 0 {
		return Stats{}
	}
	sizes := make([]float64, len(elems))
	var sum float64
	for i, e := range elems {
		sizes[i] = e.FontSize
		sum += e.FontSize
	}
	mean := sum / float64(len(sizes))

	sort.Float64s(sizes)
	var median float64
	if n := len(sizes); n%2 == 1 {
		median = sizes[n/2]
	} else {
		median = (sizes[n/2-1] + sizes[n/2]) / 2
	}

	var std float64
	if len(sizes) > 1 {
		var sq float64
		for _, s := range sizes {
			sq += (s - mean) * (s - mean)
		}
		std = math.Sqrt(sq / float64(len(sizes)-1))
	}
	return Stats{Mean: mean, Median: median, StdDev: std}
}

// Analyze enriches every element of the document, in reading order.
func Analyze(d *document.Document, cfg Config) []Element {
	elems := d.Elements()
	if len(elems) == 0 {
		return nil
	}
	stats := ComputeStats(elems)
	out := make([]Element, len(elems))
	for i, e := range elems {
		out[i] = ScoreElement(e, stats, cfg)
	}
	return out
}

// ScoreElement derives the features and heading score of one element.
func ScoreElement(e document.Element, stats Stats, cfg Config) Element {
	text := strings.TrimSpace(e.Text)
	out := Element{
		Element:       e,
		WordCount:     len(strings.Fields(text)),
		CharCount:     utf8.RuneCountInString(text),
		NumericPrefix: numericPrefix.MatchString(text),
	}

	var score float64
	if e.FontSize > stats.Mean {
		score += math.Min((e.FontSize-stats.Mean)/math.Max(stats.StdDev, 1), cfg.LargeFontCap)
		out.Features.LargeFont = true
	}
	if e.X() < cfg.LeftMargin {
		score += cfg.LeftMarginBonus
		out.Features.LeftAligned = true
	}

	ps := PatternScore(text, cfg)
	score += ps
	out.Features.PatternScore = ps

	if out.CharCount < cfg.ShortChars {
		score += cfg.ShortBonus
	}
	if out.CharCount < cfg.VeryShortChars {
		score += cfg.VeryShortBonus
	}
	if out.WordCount <= cfg.FewWords {
		score += cfg.FewWordsBonus
	}

	if HasHeadingKeyword(text) {
		score += cfg.KeywordBonus
		out.Features.HeadingKeyword = true
	}
	if e.Bold {
		score += cfg.BoldBonus
		out.Features.Bold = true
	}
	if e.Caps && out.CharCount > cfg.CapsMinChars {
		score += cfg.CapsBonus
		out.Features.Caps = true
	}
	if IsExcluded(text) {
		score -= cfg.ExclusionPenalty
		out.Features.Excluded = true
	}

	out.HeadingScore = math.Max(0, score)
	return out
}

// PatternScore rates numbering and label patterns, capped at MaxPatternScore.
func PatternScore(text string, cfg Config) float64 {
	var score float64
	for _, p := range headingPatterns {
		if p.MatchString(text) {
			score += cfg.PatternBonus
			break
		}
	}
	if numericPrefix.MatchString(text) {
		score += cfg.NumberedBonus
	}
	return math.Min(score, cfg.MaxPatternScore)
}

// HasHeadingKeyword reports whether text mentions a typical heading word.
func HasHeadingKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range headingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether text looks like a page number, date, notice,
// address or link.
func IsExcluded(text string) bool {
	for _, p := range excludePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
