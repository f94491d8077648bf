package relevance

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docintel/internal/lexicon"
	"github.com/dgallion1/docintel/internal/textnorm"
)

const (
	minTokenLen  = 3 // runes
	minPhraseLen = 6 // runes, including the joining space
)

// Profile is the keyword set derived from a persona or job description.
// Keywords may be single words or multi-word phrases.
type Profile struct {
	keywords []string // sorted, distinct
	words    map[string]struct{}
}

// NewProfile builds a profile from free text: folded tokens longer than two
// runes that are not stop words, the phrases formed by adjacent tokens, and
// the given lexicon keywords.
func NewProfile(text string, lex *lexicon.Lexicon, extra []string) Profile {
	set := make(map[string]struct{})
	var tokens []string
	for _, w := range textnorm.Words(text) {
		if utf8.RuneCountInString(w) < minTokenLen || lex.IsStopWord(w) {
			continue
		}
		tokens = append(tokens, w)
		set[w] = struct{}{}
	}
	for i := 0; i+1 < len(tokens); i++ {
		phrase := tokens[i] + " " + tokens[i+1]
		if utf8.RuneCountInString(phrase) >= minPhraseLen {
			set[phrase] = struct{}{}
		}
	}
	for _, kw := range extra {
		if kw = textnorm.Key(kw); kw != "" {
			set[kw] = struct{}{}
		}
	}

	p := Profile{keywords: make([]string, 0, len(set)), words: make(map[string]struct{}, len(set))}
	for kw := range set {
		p.keywords = append(p.keywords, kw)
		p.words[kw] = struct{}{}
	}
	sort.Strings(p.keywords)
	return p
}

// Keywords returns the profile's keywords in sorted order.
func (p Profile) Keywords() []string {
	return append([]string(nil), p.keywords...)
}

// Has reports whether kw is one of the profile's keywords.
func (p Profile) Has(kw string) bool {
	_, ok := p.words[kw]
	return ok
}

// Contained counts keywords occurring anywhere in the folded text.
func (p Profile) Contained(text string) int {
	text = textnorm.Fold(text)
	n := 0
	for _, kw := range p.keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// Overlap counts keywords present in the word set.
func (p Profile) Overlap(words map[string]struct{}) int {
	n := 0
	for w := range words {
		if p.Has(w) {
			n++
		}
	}
	return n
}

// Phrases counts multi-word keywords occurring verbatim in the folded text.
func (p Profile) Phrases(text string) int {
	text = textnorm.Fold(text)
	n := 0
	for _, kw := range p.keywords {
		if strings.Contains(kw, " ") && strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// Profiles pairs the persona and job profiles of one analysis run.
type Profiles struct {
	Persona Profile
	Job     Profile
}

// NewProfiles derives both profiles, expanding them with the keywords of the
// matching lexicon archetypes.
func NewProfiles(lex *lexicon.Lexicon, persona, job string) Profiles {
	return Profiles{
		Persona: NewProfile(persona, lex, lex.PersonaKeywords(persona)),
		Job:     NewProfile(job, lex, lex.JobKeywords(job)),
	}
}
