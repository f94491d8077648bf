// Package chunker splits section text into the passages mined for insights.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

// Config controls passage splitting.
type Config struct {
	MinParagraphWords int `yaml:"min_paragraph_words"` // Shorter paragraphs are dropped.
	MinSentenceWords  int `yaml:"min_sentence_words"`  // Shorter sentences are dropped.
	ChunkWords        int `yaml:"chunk_words"`         // Sentence groups are flushed at this size.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinParagraphWords: 10,
		MinSentenceWords:  5,
		ChunkWords:        30,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinParagraphWords <= 0 {
		c.MinParagraphWords = d.MinParagraphWords
	}
	if c.MinSentenceWords <= 0 {
		c.MinSentenceWords = d.MinSentenceWords
	}
	if c.ChunkWords <= 0 {
		c.ChunkWords = d.ChunkWords
	}
	return c
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Paragraphs splits text on blank lines and keeps paragraphs of at least
// MinParagraphWords words.
func Paragraphs(text string, cfg Config) []string {
	cfg = cfg.withDefaults()
	var result []string
	for _, p := range paragraphBreak.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" && WordCount(p) >= cfg.MinParagraphWords {
			result = append(result, p)
		}
	}
	return result
}

// Sentences splits text after '.', '!' or '?' when followed by whitespace or
// the end of the text. The terminal mark is removed; sentences shorter than
// minWords are dropped.
func Sentences(text string, minWords int) []string {
	return splitSentences(text, minWords, false)
}

func splitSentences(text string, minWords int, keepMark bool) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if s != "" && WordCount(s) >= minWords {
			sentences = append(sentences, s)
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			if keepMark {
				current.WriteRune(r)
			}
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return sentences
}

// SentenceGroups joins consecutive sentences of text, each keeping its
// terminal mark, until a group reaches ChunkWords words. A trailing group
// that never reaches the size is dropped.
func SentenceGroups(text string, cfg Config) []string {
	cfg = cfg.withDefaults()
	var groups []string
	var current []string
	words := 0
	for _, s := range splitSentences(text, cfg.MinSentenceWords, true) {
		current = append(current, s)
		words += WordCount(s)
		if words >= cfg.ChunkWords {
			groups = append(groups, strings.Join(current, " "))
			current = current[:0]
			words = 0
		}
	}
	return groups
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
