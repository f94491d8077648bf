// Package lexicon loads the persona and job vocabularies used by relevance
// scoring and ranking. A Lexicon is read-only after loading.
package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docintel/internal/textnorm"
)

//go:embed lexicon.yaml
var defaultYAML []byte

// Archetype is a named role or task with its associated keywords.
type Archetype struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Lexicon is the full vocabulary.
type Lexicon struct {
	StopWords         []string    `yaml:"stop_words"`
	Personas          []Archetype `yaml:"personas"`
	Jobs              []Archetype `yaml:"jobs"`
	PersonaIndicators []Archetype `yaml:"persona_indicators"`
	JobIndicators     []Archetype `yaml:"job_indicators"`

	stop map[string]struct{}
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
	defaultErr  error
)

// Default returns the built-in lexicon.
func Default() (*Lexicon, error) {
	defaultOnce.Do(func() {
		defaultLex, defaultErr = Parse(defaultYAML)
	})
	return defaultLex, defaultErr
}

// Load reads a lexicon file. An empty path or a missing file yields the
// built-in lexicon.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default()
		}
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML lexicon and folds every term.
func Parse(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(lex.Personas) == 0 && len(lex.Jobs) == 0 {
		return nil, fmt.Errorf("parse lexicon: no personas or jobs defined")
	}

	lex.stop = make(map[string]struct{}, len(lex.StopWords))
	for i, w := range lex.StopWords {
		w = textnorm.Fold(strings.TrimSpace(w))
		lex.StopWords[i] = w
		lex.stop[w] = struct{}{}
	}
	for _, set := range [][]Archetype{lex.Personas, lex.Jobs, lex.PersonaIndicators, lex.JobIndicators} {
		for i := range set {
			set[i].Name = textnorm.Key(set[i].Name)
			for j, kw := range set[i].Keywords {
				set[i].Keywords[j] = textnorm.Key(kw)
			}
		}
	}
	return &lex, nil
}

// IsStopWord reports whether the folded word w is a stop word.
func (l *Lexicon) IsStopWord(w string) bool {
	_, ok := l.stop[w]
	return ok
}

// PersonaKeywords returns the keywords of every persona archetype whose
// name occurs in the persona text.
func (l *Lexicon) PersonaKeywords(persona string) []string {
	text := textnorm.Key(persona)
	var out []string
	for _, a := range l.Personas {
		if a.Name != "" && strings.Contains(text, a.Name) {
			out = append(out, a.Keywords...)
		}
	}
	return out
}

// JobKeywords returns the keywords of every job archetype sharing at least
// one name word with the job text. "financial analysis" therefore also
// applies to "data analysis".
func (l *Lexicon) JobKeywords(job string) []string {
	text := textnorm.Key(job)
	var out []string
	for _, a := range l.Jobs {
		for _, part := range strings.Fields(a.Name) {
			if strings.Contains(text, part) {
				out = append(out, a.Keywords...)
				break
			}
		}
	}
	return out
}

// PersonaIndicatorsFor returns the indicator lists whose full archetype name
// occurs in the persona text.
func (l *Lexicon) PersonaIndicatorsFor(persona string) [][]string {
	return matchFull(l.PersonaIndicators, persona)
}

// JobIndicatorsFor returns the indicator lists whose full archetype name
// occurs in the job text.
func (l *Lexicon) JobIndicatorsFor(job string) [][]string {
	return matchFull(l.JobIndicators, job)
}

func matchFull(set []Archetype, text string) [][]string {
	key := textnorm.Key(text)
	var out [][]string
	for _, a := range set {
		if a.Name != "" && strings.Contains(key, a.Name) {
			out = append(out, a.Keywords)
		}
	}
	return out
}
