// Package analysis computes trend, gap, and composite reports over paper
// collections. All analyses are pure single-pass computations over the input
// slice and are safe to run concurrently.
package analysis

import (
	"regexp"
	"strings"
)

// maxKeywordsPerPaper caps how many distinct keywords one paper contributes.
const maxKeywordsPerPaper = 20

// wordRegex matches a run of ASCII letters.
var wordRegex = regexp.MustCompile(`[a-zA-Z]+`)

// stopWords are excluded from keyword extraction. The list mixes generic
// function words with academic boilerplate ("propose", "results") that is
// near-universal in abstracts and therefore useless as a trend signal.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "a": {}, "an": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {},
	"might": {}, "must": {}, "shall": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "we": {}, "they": {}, "our": {}, "their": {},
	"using": {}, "based": {}, "approach": {}, "method": {}, "model": {},
	"paper": {}, "study": {}, "research": {}, "work": {}, "results": {},
	"show": {}, "propose": {}, "present": {},
}

// ExtractKeywords tokenizes lowercased content into alphabetic runs, drops
// words of length <= 3 and stop words, and returns the distinct keywords in
// first-seen order, capped at maxKeywordsPerPaper.
func ExtractKeywords(content string) []string {
	words := wordRegex.FindAllString(strings.ToLower(content), -1)

	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, maxKeywordsPerPaper)

	for _, word := range words {
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywordsPerPaper {
			break
		}
	}

	return keywords
}

// topKeywords returns at most n leading keywords.
func topKeywords(keywords []string, n int) []string {
	if len(keywords) > n {
		return keywords[:n]
	}
	return keywords
}
