package analyzer

import (
	"regexp"
	"sort"
	"strings"
)

const (
	topUnigrams    = 150
	topBigrams     = 50
	minBigramCount = 2
	minTokenLength = 3
)

// nonKeywordChars matches every character outside the keyword alphabet;
// matches become spaces before tokenization.
var nonKeywordChars = regexp.MustCompile(`[^a-z0-9\s\-']`)

// termCount pairs a term with its frequency. Slices of termCount keep
// first-seen order so ties rank by first occurrence.
type termCount struct {
	term  string
	count int
}

// keywordFrequencies computes the keyword frequency map for a page's body
// text: the top 150 unigrams plus the top 50 bigrams seen at least twice.
// Empty content yields an empty map.
func keywordFrequencies(contentText string) map[string]int {
	combined := make(map[string]int)
	if contentText == "" {
		return combined
	}

	cleaned := nonKeywordChars.ReplaceAllString(strings.ToLower(contentText), " ")

	var tokens []string
	for _, raw := range strings.Fields(cleaned) {
		token := strings.Trim(raw, "'-")
		if len(token) < minTokenLength || isStopWord(token) {
			continue
		}
		tokens = append(tokens, token)
	}

	var bigrams []string
	for i := 0; i+1 < len(tokens); i++ {
		bigrams = append(bigrams, tokens[i]+" "+tokens[i+1])
	}

	for _, tc := range topTerms(countTerms(tokens), topUnigrams) {
		combined[tc.term] = tc.count
	}
	for _, tc := range topTerms(countTerms(bigrams), topBigrams) {
		if tc.count >= minBigramCount {
			combined[tc.term] = tc.count
		}
	}
	return combined
}

// countTerms tallies terms preserving first-seen order.
func countTerms(terms []string) []termCount {
	counts := make(map[string]int, len(terms))
	order := make([]string, 0, len(terms))
	for _, t := range terms {
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	out := make([]termCount, 0, len(order))
	for _, t := range order {
		out = append(out, termCount{term: t, count: counts[t]})
	}
	return out
}

// topTerms returns the n highest counts; equal counts keep first-seen order.
func topTerms(terms []termCount, n int) []termCount {
	sorted := make([]termCount, len(terms))
	copy(sorted, terms)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].count > sorted[j].count })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
