package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docintel/internal/config"
	"github.com/dgallion1/docintel/internal/heading"
	"github.com/dgallion1/docintel/internal/insight"
	"github.com/dgallion1/docintel/internal/layout"
	"github.com/dgallion1/docintel/internal/lexicon"
	"github.com/dgallion1/docintel/internal/parser"
	"github.com/dgallion1/docintel/internal/rank"
	"github.com/dgallion1/docintel/internal/relevance"
)

// Tuning holds every scoring constant of an analysis run.
type Tuning struct {
	Layout    layout.Config    `yaml:"layout"`
	Heading   heading.Config   `yaml:"heading"`
	Relevance relevance.Config `yaml:"relevance"`
	Rank      rank.Config      `yaml:"rank"`
	Insight   insight.Config   `yaml:"insight"`

	// LexiconFile replaces the built-in persona/job vocabulary when set.
	LexiconFile string `yaml:"lexicon_file"`
}

// DefaultTuning returns the stock constants of every stage.
func DefaultTuning() Tuning {
	return Tuning{
		Layout:    layout.DefaultConfig(),
		Heading:   heading.DefaultConfig(),
		Relevance: relevance.DefaultConfig(),
		Rank:      rank.DefaultConfig(),
		Insight:   insight.DefaultConfig(),
	}
}

// LoadTuning reads a YAML tuning file over the defaults. Keys missing from
// the file keep their default values; an empty path or a missing file
// yields DefaultTuning.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return t, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return DefaultTuning(), fmt.Errorf("parse tuning %s: %w", path, err)
	}
	return t, nil
}

// NewAnalyzerFromConfig loads the tuning file and lexicon named by cfg and
// builds an Analyzer from them. LEXICON_FILE wins over the tuning file's
// lexicon_file.
func NewAnalyzerFromConfig(cfg config.Config, log *slog.Logger) (*Analyzer, error) {
	tuning, err := LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, err
	}
	lexPath := tuning.LexiconFile
	if cfg.LexiconFile != "" {
		lexPath = cfg.LexiconFile
	}
	lex, err := lexicon.Load(lexPath)
	if err != nil {
		return nil, err
	}
	opts := Options{
		MaxConcurrentDocs: cfg.MaxConcurrentDocs,
		Parser:            parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
	}
	return NewAnalyzer(tuning, lex, opts, log), nil
}
