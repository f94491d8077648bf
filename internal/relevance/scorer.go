// Package relevance scores sections against persona and job profiles.
package relevance

import (
	"math"
	"sort"

	"github.com/dgallion1/docintel/internal/section"
	"github.com/dgallion1/docintel/internal/textnorm"
)

// Config holds the section relevance weights.
type Config struct {
	TitlePersonaWeight float64 `yaml:"title_persona_weight"`
	TitleJobWeight     float64 `yaml:"title_job_weight"`
	BodyPersonaWeight  float64 `yaml:"body_persona_weight"`
	BodyJobWeight      float64 `yaml:"body_job_weight"`
	PersonaPhraseBonus float64 `yaml:"persona_phrase_bonus"`
	JobPhraseBonus     float64 `yaml:"job_phrase_bonus"`
	LevelBonusDepth    int     `yaml:"level_bonus_depth"`
	LevelBonus         float64 `yaml:"level_bonus"`
	MinScore           float64 `yaml:"min_score"`
}

// DefaultConfig returns the stock weights.
func DefaultConfig() Config {
	return Config{
		TitlePersonaWeight: 0.3,
		TitleJobWeight:     0.4,
		BodyPersonaWeight:  0.2,
		BodyJobWeight:      0.3,
		PersonaPhraseBonus: 0.1,
		JobPhraseBonus:     0.15,
		LevelBonusDepth:    4,
		LevelBonus:         0.05,
		MinScore:           0.1,
	}
}

// Scored is a section with its relevance score.
type Scored struct {
	section.Section
	Score float64
}

// Scorer rates sections for one persona and job.
type Scorer struct {
	cfg      Config
	profiles Profiles
}

func NewScorer(cfg Config, profiles Profiles) *Scorer {
	return &Scorer{cfg: cfg, profiles: profiles}
}

// Score returns the relevance of s in [0, 1].
func (sc *Scorer) Score(s section.Section) float64 {
	p, j := sc.profiles.Persona, sc.profiles.Job

	score := float64(p.Contained(s.Title))*sc.cfg.TitlePersonaWeight +
		float64(j.Contained(s.Title))*sc.cfg.TitleJobWeight

	words := textnorm.WordSet(s.Content)
	if n := len(words); n > 0 {
		score += float64(p.Overlap(words)) / float64(n) * sc.cfg.BodyPersonaWeight
		score += float64(j.Overlap(words)) / float64(n) * sc.cfg.BodyJobWeight
	}

	score += float64(p.Phrases(s.Content))*sc.cfg.PersonaPhraseBonus +
		float64(j.Phrases(s.Content))*sc.cfg.JobPhraseBonus

	if depth := sc.cfg.LevelBonusDepth - int(s.Level); depth > 0 {
		score += float64(depth) * sc.cfg.LevelBonus
	}
	return math.Min(score, 1.0)
}

// Rank scores every section, keeps those above MinScore and sorts them by
// score, highest first. Ties keep input order.
func (sc *Scorer) Rank(sections []section.Section) []Scored {
	var out []Scored
	for _, s := range sections {
		if score := sc.Score(s); score > sc.cfg.MinScore {
			out = append(out, Scored{Section: s, Score: score})
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].Score > out[k].Score })
	return out
}
