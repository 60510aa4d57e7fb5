package service

import (
	"regexp"
	"strings"
)

var termPattern = regexp.MustCompile(`[a-z0-9]{3,}`)

// Tokenize returns the set of lowercase alphanumeric terms of at least
// three characters.
func Tokenize(text string) map[string]struct{} {
	matches := termPattern.FindAllString(strings.ToLower(text), -1)
	terms := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		terms[m] = struct{}{}
	}
	return terms
}

// LexicalScore is the fraction of query terms present in text.
func LexicalScore(queryTerms map[string]struct{}, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	chunkTerms := Tokenize(text)
	overlap := 0
	for term := range queryTerms {
		if _, ok := chunkTerms[term]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTerms))
}
