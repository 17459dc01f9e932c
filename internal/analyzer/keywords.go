// Copyright 2025 James Ross
package analyzer

import (
	"sort"
	"strings"
	"unicode"

	"github.com/marketintel/engine/internal/queue"
)

// stopWords is the minimum required set from §4.3, used to filter common
// short connector words out of keyword frequency analysis. Portuguese and
// English tokens both appear since the catalog spans both languages.
var stopWords = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "para": {}, "com": {}, "em": {},
	"por": {}, "e": {}, "a": {}, "o": {},
	"the": {}, "and": {}, "or": {}, "for": {}, "with": {}, "in": {}, "on": {}, "at": {},
}

const minKeywordLength = 4

// TrendingKeywords tokenizes every product title, lowercases, splits on
// non-alphanumeric runes, drops short/stop tokens, and ranks the rest by
// frequency. Pure function: identical inputs yield byte-identical outputs.
func TrendingKeywords(products []queue.ScrapedProduct) []string {
	counts := map[string]int{}
	order := []string{}

	for _, p := range products {
		for _, token := range tokenize(p.Title) {
			if len(token) < minKeywordLength {
				continue
			}
			if _, stop := stopWords[token]; stop {
				continue
			}
			if _, seen := counts[token]; !seen {
				order = append(order, token)
			}
			counts[token]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxTrendingKeywords {
		order = order[:maxTrendingKeywords]
	}
	return order
}

func tokenize(title string) []string {
	lower := strings.ToLower(title)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
