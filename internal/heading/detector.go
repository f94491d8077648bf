package heading

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docintel/internal/document"
	"github.com/dgallion1/docintel/internal/layout"
)

// Config holds detection thresholds.
type Config struct {
	MinScore              float64 `yaml:"min_score"`
	ScoreScale            float64 `yaml:"score_scale"`
	PatternConfidence     float64 `yaml:"pattern_confidence"`
	ClusterSizes          int     `yaml:"cluster_sizes"`
	ClusterMinCount       int     `yaml:"cluster_min_count"`
	ClusterMaxCount       int     `yaml:"cluster_max_count"`
	ClusterMaxChars       int     `yaml:"cluster_max_chars"`
	ClusterConfidence     float64 `yaml:"cluster_confidence"`
	ClusterConfidenceStep float64 `yaml:"cluster_confidence_step"`
	AgreementBoost        float64 `yaml:"agreement_boost"`
	KeyChars              int     `yaml:"key_chars"`
	DefaultLevel          int     `yaml:"default_level"`
	MinConfidence         float64 `yaml:"min_confidence"`
	MinChars              int     `yaml:"min_chars"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinScore:              1.5,
		ScoreScale:            5.0,
		PatternConfidence:     0.9,
		ClusterSizes:          4,
		ClusterMinCount:       2,
		ClusterMaxCount:       20,
		ClusterMaxChars:       200,
		ClusterConfidence:     0.7,
		ClusterConfidenceStep: 0.15,
		AgreementBoost:        0.2,
		KeyChars:              50,
		DefaultLevel:          3,
		MinConfidence:         0.3,
		MinChars:              3,
	}
}

var (
	// numberingPatterns are ordered by nesting depth: "1 ", "1.1 ", "1.1.1 ", "1.1.1.1".
	numberingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d+\.?\s+`),
		regexp.MustCompile(`^\d+\.\d+\.?\s+`),
		regexp.MustCompile(`^\d+\.\d+\.\d+\.?\s+`),
		regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+`),
	}
	pageNumberText = regexp.MustCompile(`^\d+$|^page\s+\d+`)
	bareInteger    = regexp.MustCompile(`^\d+$`)
	revisionMarker = regexp.MustCompile(`(?i)\brev\b`)

	boilerplateMarkers = []string{
		"page ", "copyright", "©", "draft", "confidential",
		"version", "date:", "author:",
	}
)

// Detector finds headings in an enriched element stream.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs all strategies, fuses their votes, assigns levels and returns
// the filtered headings in reading order.
func (d *Detector) Detect(elems []layout.Element) []Heading {
	if len(elems) == 0 {
		return nil
	}
	hs := d.Fuse(d.ByScore(elems), d.ByPattern(elems), d.ByFontCluster(elems))
	d.AssignLevels(hs)
	Sort(hs)
	return d.Filter(hs)
}

// ByScore votes for every element whose heading score reaches MinScore.
func (d *Detector) ByScore(elems []layout.Element) []Candidate {
	var out []Candidate
	for _, e := range elems {
		if e.HeadingScore >= d.cfg.MinScore {
			out = append(out, Candidate{
				Element:    e.Element,
				Method:     MethodScore,
				Confidence: math.Min(e.HeadingScore/d.cfg.ScoreScale, 1.0),
			})
		}
	}
	return out
}

// ByPattern votes for numbered text, recording the numbering depth.
func (d *Detector) ByPattern(elems []layout.Element) []Candidate {
	var out []Candidate
	for _, e := range elems {
		if depth := NumberingDepth(e.Text); depth > 0 {
			out = append(out, Candidate{
				Element:      e.Element,
				Method:       MethodPattern,
				Confidence:   d.cfg.PatternConfidence,
				PatternLevel: depth,
			})
		}
	}
	return out
}

// NumberingDepth returns 1-4 for "1 ", "1.1 ", "1.1.1 " and "1.1.1.1"
// prefixes, 0 when text is not numbered.
func NumberingDepth(text string) int {
	text = strings.TrimSpace(text)
	for i, p := range numberingPatterns {
		if p.MatchString(text) {
			return i + 1
		}
	}
	return 0
}

// ByFontCluster votes for elements in the largest font sizes when a size is
// used by a handful of elements: too many is body text, one is an outlier.
func (d *Detector) ByFontCluster(elems []layout.Element) []Candidate {
	groups := make(map[float64][]document.Element)
	for _, e := range elems {
		groups[e.FontSize] = append(groups[e.FontSize], e.Element)
	}
	sizes := make([]float64, 0, len(groups))
	for s := range groups {
		sizes = append(sizes, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	if len(sizes) > d.cfg.ClusterSizes {
		sizes = sizes[:d.cfg.ClusterSizes]
	}

	var out []Candidate
	for rank, size := range sizes {
		var members []document.Element
		for _, e := range groups[size] {
			text := strings.TrimSpace(e.Text)
			if utf8.RuneCountInString(text) > d.cfg.ClusterMaxChars {
				continue
			}
			if pageNumberText.MatchString(strings.ToLower(text)) {
				continue
			}
			members = append(members, e)
		}
		if len(members) < d.cfg.ClusterMinCount || len(members) > d.cfg.ClusterMaxCount {
			continue
		}
		conf := d.cfg.ClusterConfidence - float64(rank)*d.cfg.ClusterConfidenceStep
		for _, e := range members {
			out = append(out, Candidate{Element: e, Method: MethodFontCluster, Confidence: conf})
		}
	}
	return out
}

type fuseKey struct {
	text string
	page int
}

// Fuse merges candidates that share a key (leading text and page). The
// merged confidence is the best single vote plus AgreementBoost for every
// additional strategy that agreed, capped at 1. The result does not depend
// on the order of the candidate sets.
func (d *Detector) Fuse(sets ...[]Candidate) []Heading {
	groups := make(map[fuseKey][]Candidate)
	var keys []fuseKey
	for _, set := range sets {
		for _, c := range set {
			k := fuseKey{text: prefix(strings.TrimSpace(c.Element.Text), d.cfg.KeyChars), page: c.Element.Page}
			if _, ok := groups[k]; !ok {
				keys = append(keys, k)
			}
			groups[k] = append(groups[k], c)
		}
	}

	out := make([]Heading, 0, len(keys))
	for _, k := range keys {
		out = append(out, d.merge(groups[k]))
	}
	Sort(out)
	return out
}

func (d *Detector) merge(cands []Candidate) Heading {
	anchor := cands[0].Element
	best := 0.0
	voted := make(map[Method]bool)
	patternLevel := 0
	for _, c := range cands {
		if elementBefore(c.Element, anchor) {
			anchor = c.Element
		}
		best = math.Max(best, c.Confidence)
		voted[c.Method] = true
		if c.PatternLevel > 0 && (patternLevel == 0 || c.PatternLevel < patternLevel) {
			patternLevel = c.PatternLevel
		}
	}

	methods := make([]Method, 0, len(voted))
	for _, m := range methodOrder {
		if voted[m] {
			methods = append(methods, m)
		}
	}

	return Heading{
		Text:         strings.TrimSpace(anchor.Text),
		Page:         anchor.Page,
		FontSize:     anchor.FontSize,
		Bold:         anchor.Bold,
		BBox:         anchor.BBox,
		Confidence:   math.Min(best+d.cfg.AgreementBoost*float64(len(methods)-1), 1.0),
		Methods:      methods,
		PatternLevel: patternLevel,
	}
}

// AssignLevels sets each heading's Level: the numbering depth when known,
// otherwise the rank of its font size among all headings (largest first).
func (d *Detector) AssignLevels(hs []Heading) {
	seen := make(map[float64]bool)
	var sizes []float64
	for _, h := range hs {
		if !seen[h.FontSize] {
			seen[h.FontSize] = true
			sizes = append(sizes, h.FontSize)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	rank := make(map[float64]int, len(sizes))
	for i, s := range sizes {
		rank[s] = i + 1
	}

	for i := range hs {
		if hs[i].PatternLevel > 0 {
			hs[i].Level = Level(hs[i].PatternLevel)
			continue
		}
		r, ok := rank[hs[i].FontSize]
		if !ok {
			hs[i].Level = Level(d.cfg.DefaultLevel)
			continue
		}
		hs[i].Level = min(Level(r), MaxLevel)
	}
}

// Filter drops short, numeric, boilerplate and low-confidence headings.
// Confidence must be strictly above MinConfidence.
func (d *Detector) Filter(hs []Heading) []Heading {
	out := make([]Heading, 0, len(hs))
	for _, h := range hs {
		text := strings.TrimSpace(h.Text)
		if utf8.RuneCountInString(text) < d.cfg.MinChars {
			continue
		}
		if bareInteger.MatchString(text) {
			continue
		}
		if IsBoilerplate(text) {
			continue
		}
		if h.Confidence > d.cfg.MinConfidence {
			out = append(out, h)
		}
	}
	return out
}

// IsBoilerplate reports whether text carries a page, copyright, draft,
// version, revision, date or author marker.
func IsBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range boilerplateMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return revisionMarker.MatchString(text)
}

// Sort orders headings by page and vertical position; x and text break ties.
func Sort(hs []Heading) {
	sort.SliceStable(hs, func(i, j int) bool {
		a, b := hs[i], hs[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Y() != b.Y() {
			return a.Y() < b.Y()
		}
		if a.X() != b.X() {
			return a.X() < b.X()
		}
		return a.Text < b.Text
	})
}

func elementBefore(a, b document.Element) bool {
	if a.Y() != b.Y() {
		return a.Y() < b.Y()
	}
	if a.X() != b.X() {
		return a.X() < b.X()
	}
	if a.FontSize != b.FontSize {
		return a.FontSize > b.FontSize
	}
	return a.Bold && !b.Bold
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
