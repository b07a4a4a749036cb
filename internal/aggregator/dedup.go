package aggregator

import (
	"github.com/researchmate/research-service/internal/domain"
)

// Deduplicate removes duplicate papers from the slice, keeping the first
// occurrence of each paper. Two papers are the same paper when they share any
// identifier token: DOI, arXiv ID, PMID, or normalized title. Because the
// input is ordered by source priority, first-wins means the higher-priority
// source's record survives.
//
// A paper with no identifying tokens at all (no identifiers and a placeholder
// title) is always kept; nothing can prove it is a duplicate.
func Deduplicate(papers []*domain.Paper) []*domain.Paper {
	seen := make(map[string]struct{}, len(papers)*2)
	unique := make([]*domain.Paper, 0, len(papers))

	for _, paper := range papers {
		tokens := paper.DedupTokens()

		duplicate := false
		for _, token := range tokens {
			if _, ok := seen[token]; ok {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		// Register all tokens, so a later record matching this paper under a
		// different identifier is still recognized.
		for _, token := range tokens {
			seen[token] = struct{}{}
		}
		unique = append(unique, paper)
	}

	return unique
}
