// Package keywords implements the tokenization shared by indexing, search and
// similarity scoring: alphabetic runs of three or more letters, lower-cased,
// minus a fixed stop-word list.
package keywords

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MinLength is the shortest run of letters treated as a keyword.
const MinLength = 3

// A keyword is a whole word made only of ASCII letters. Words are runs of
// Unicode letters, marks, digits and connectors, so an accented letter or a
// digit next to ASCII letters disqualifies the run instead of splitting it.
var (
	wordPattern    = regexp.MustCompile(`[\p{L}\p{M}\p{N}\p{Pc}]+`)
	keywordPattern = regexp.MustCompile(`^[a-zA-Z]{3,}$`)
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {}, "our": {},
	"out": {}, "day": {}, "get": {}, "has": {}, "him": {}, "his": {}, "how": {},
	"man": {}, "new": {}, "now": {}, "old": {}, "see": {}, "two": {}, "way": {},
	"who": {}, "boy": {}, "did": {}, "its": {}, "let": {}, "put": {}, "say": {},
	"she": {}, "too": {}, "use": {},
}

// Set is an unordered keyword collection.
type Set map[string]struct{}

// IsStopWord reports whether word (already lower-cased) is ignored.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Extract returns the keywords of text in order of appearance, duplicates kept.
func Extract(text string) []string {
	matches := wordPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !keywordPattern.MatchString(m) {
			continue
		}
		w := strings.ToLower(m)
		if IsStopWord(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Unique returns the distinct keywords of text in order of first appearance.
func Unique(text string) []string {
	seen := make(Set)
	var out []string
	for _, w := range Extract(text) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// NewSet returns the keyword set of text.
func NewSet(text string) Set {
	s := make(Set)
	for _, w := range Extract(text) {
		s[w] = struct{}{}
	}
	return s
}

// Contains reports whether w is in the set.
func (s Set) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both are empty.
func Jaccard[T comparable](a, b map[T]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Similarity is the Jaccard similarity of the keyword sets of two texts.
func Similarity(a, b string) float64 {
	return Jaccard(NewSet(a), NewSet(b))
}

// Normalize trims, case-folds and replaces spaces with underscores so that
// authorities and tags compare equal regardless of spelling variants.
func Normalize(s string) string {
	lower := cases.Lower(language.Und).String(strings.TrimSpace(s))
	return strings.ReplaceAll(lower, " ", "_")
}

// StringSet builds a set from a slice.
func StringSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}
