package chunk

import (
	"regexp"
	"sort"
	"strings"
)

var punctuation = regexp.MustCompile(`[^\w\s]`)

// stopwords is a set of high-frequency function words suppressed
// aggressively so keyword extraction surfaces meaningful top-K terms.
var stopwords = map[string]bool{
	"the": true, "is": true, "at": true, "of": true, "on": true, "and": true,
	"a": true, "an": true, "in": true, "to": true, "for": true, "with": true,
	"as": true, "by": true, "it": true, "this": true, "that": true, "be": true,
	"are": true, "was": true, "were": true, "or": true, "from": true, "but": true,
}

// tokenize lowercases, strips punctuation, and filters stopwords, grounded
// on internal/sefii/engine.go's tokenize.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if !stopwords[w] && len(w) > 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// TopKeywords scores tokens by term frequency within the chunk and returns
// the top k, ties broken by first occurrence to keep results deterministic.
func TopKeywords(text string, k int) []string {
	tokens := tokenize(text)
	freq := make(map[string]int, len(tokens))
	order := make(map[string]int, len(tokens))
	for i, t := range tokens {
		freq[t]++
		if _, seen := order[t]; !seen {
			order[t] = i
		}
	}
	unique := make([]string, 0, len(freq))
	for t := range freq {
		unique = append(unique, t)
	}
	sort.Slice(unique, func(i, j int) bool {
		if freq[unique[i]] != freq[unique[j]] {
			return freq[unique[i]] > freq[unique[j]]
		}
		return order[unique[i]] < order[unique[j]]
	})
	if len(unique) > k {
		unique = unique[:k]
	}
	return unique
}
