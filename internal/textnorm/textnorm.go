// Package textnorm holds the text folding and tokenization shared by the
// scoring stages.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Fold returns s in NFKC form with Unicode case folding applied.
func Fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// Words returns the word tokens of the folded text, in order.
func Words(s string) []string {
	return wordPattern.FindAllString(Fold(s), -1)
}

// WordSet returns the distinct word tokens of s.
func WordSet(s string) map[string]struct{} {
	words := Words(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// CollapseSpace trims s and replaces every whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key folds and whitespace-collapses s for equality comparisons.
func Key(s string) string {
	return CollapseSpace(Fold(s))
}
