package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/researchmate/research-service/internal/domain"
)

// topRankLimit caps every ranking list in a network summary.
const topRankLimit = 10

// NetworkMetrics summarizes the co-authorship graph built from a paper
// collection. Density is the fraction of possible author pairs that actually
// collaborated; it is zero for fewer than two authors.
type NetworkMetrics struct {
	TotalAuthors         int     `json:"total_authors"`
	TotalCollaborations  int     `json:"total_collaborations"`
	NetworkDensity       float64 `json:"network_density"`
	ConnectedComponents  int     `json:"connected_components"`
	LargestComponentSize int     `json:"largest_component_size"`
}

// AuthorRank is one author with a score (collaborator count, paper count, or
// citation total depending on the list it appears in).
type AuthorRank struct {
	Author string `json:"author"`
	Count  int    `json:"count"`
}

// PaperRank is one paper with its source-reported citation count.
type PaperRank struct {
	Title     string `json:"title"`
	Citations int    `json:"citations"`
}

// NetworkStats relates the paper and author populations.
type NetworkStats struct {
	TotalPapers             int     `json:"total_papers"`
	TotalAuthors            int     `json:"total_authors"`
	PapersPerAuthor         float64 `json:"papers_per_author"`
	CollaborationsPerAuthor float64 `json:"collaborations_per_author"`
}

// NetworkSummary is the result of AnalyzeCollaborationNetwork. Ranking lists
// are sorted by score descending, ties broken alphabetically, and capped at
// ten entries.
type NetworkSummary struct {
	Metrics           NetworkMetrics `json:"network_metrics"`
	TopCollaborators  []AuthorRank   `json:"top_collaborators"`
	TopProductive     []AuthorRank   `json:"top_productive_authors"`
	TopCited          []AuthorRank   `json:"top_cited_authors"`
	MostCitedPapers   []PaperRank    `json:"most_cited_papers"`
	Stats             NetworkStats   `json:"overall_stats"`
	AnalysisTimestamp string         `json:"analysis_timestamp"`
	Error             string         `json:"error,omitempty"`
}

// authorRecord accumulates one author's papers and citations during the build.
type authorRecord struct {
	papers    int
	citations int
}

// AnalyzeCollaborationNetwork builds a co-authorship graph over the collection
// and reports its shape: graph metrics, the most connected, most productive,
// and most cited authors, and the most cited papers. An edge joins two authors
// whenever they share a paper; an author's citation total sums the citation
// counts of every paper they appear on. Fails only on empty input.
func (a *Analyzer) AnalyzeCollaborationNetwork(papers []*domain.Paper) (*NetworkSummary, error) {
	start := time.Now()

	if len(papers) == 0 {
		a.recordFailure("network")
		return nil, domain.NewAnalysisError("collaboration network", domain.ErrNoPapers)
	}

	authors := make(map[string]*authorRecord)
	// adjacency holds the distinct collaborators of each author.
	adjacency := make(map[string]map[string]struct{})
	edges := 0

	for _, paper := range papers {
		names := normalizeAuthors(paper.Authors)

		for _, name := range names {
			record := authors[name]
			if record == nil {
				record = &authorRecord{}
				authors[name] = record
				adjacency[name] = make(map[string]struct{})
			}
			record.papers++
			record.citations += paper.CitationCount
		}

		for i, first := range names {
			for _, second := range names[i+1:] {
				if _, dup := adjacency[first][second]; !dup {
					adjacency[first][second] = struct{}{}
					adjacency[second][first] = struct{}{}
					edges++
				}
			}
		}
	}

	summary := &NetworkSummary{
		Metrics: NetworkMetrics{
			TotalAuthors:        len(authors),
			TotalCollaborations: edges,
		},
		TopCollaborators:  rankAuthors(authors, func(name string, _ *authorRecord) int { return len(adjacency[name]) }),
		TopProductive:     rankAuthors(authors, func(_ string, r *authorRecord) int { return r.papers }),
		TopCited:          rankAuthors(authors, func(_ string, r *authorRecord) int { return r.citations }),
		MostCitedPapers:   rankPapers(papers),
		AnalysisTimestamp: a.now().Format(time.RFC3339),
	}

	if n := len(authors); n > 1 {
		summary.Metrics.NetworkDensity = 2 * float64(edges) / float64(n*(n-1))
	}
	summary.Metrics.ConnectedComponents, summary.Metrics.LargestComponentSize = componentStats(adjacency)

	summary.Stats = NetworkStats{
		TotalPapers:  len(papers),
		TotalAuthors: len(authors),
	}
	if len(authors) > 0 {
		summary.Stats.PapersPerAuthor = float64(len(papers)) / float64(len(authors))
		summary.Stats.CollaborationsPerAuthor = float64(edges) / float64(len(authors))
	}

	a.recordRun("network", start)
	a.logger.Debug().
		Int("papers", len(papers)).
		Int("authors", len(authors)).
		Int("collaborations", edges).
		Msg("collaboration network built")

	return summary, nil
}

// normalizeAuthors trims author names and drops empties and per-paper
// duplicates, preserving order.
func normalizeAuthors(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// rankAuthors sorts authors by the given score descending, names ascending on
// ties, capped at topRankLimit.
func rankAuthors(authors map[string]*authorRecord, score func(string, *authorRecord) int) []AuthorRank {
	ranked := make([]AuthorRank, 0, len(authors))
	for name, record := range authors {
		ranked = append(ranked, AuthorRank{Author: name, Count: score(name, record)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Author < ranked[j].Author
	})
	if len(ranked) > topRankLimit {
		ranked = ranked[:topRankLimit]
	}
	return ranked
}

// rankPapers sorts papers by citation count descending, titles ascending on
// ties, capped at topRankLimit. Untitled papers are skipped.
func rankPapers(papers []*domain.Paper) []PaperRank {
	ranked := make([]PaperRank, 0, len(papers))
	for _, paper := range papers {
		if strings.TrimSpace(paper.Title) == "" {
			continue
		}
		ranked = append(ranked, PaperRank{Title: paper.Title, Citations: paper.CitationCount})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Citations != ranked[j].Citations {
			return ranked[i].Citations > ranked[j].Citations
		}
		return ranked[i].Title < ranked[j].Title
	})
	if len(ranked) > topRankLimit {
		ranked = ranked[:topRankLimit]
	}
	return ranked
}

// componentStats walks the adjacency map and returns the number of connected
// components and the size of the largest one.
func componentStats(adjacency map[string]map[string]struct{}) (count, largest int) {
	visited := make(map[string]struct{}, len(adjacency))

	for node := range adjacency {
		if _, done := visited[node]; done {
			continue
		}
		count++

		size := 0
		queue := []string{node}
		visited[node] = struct{}{}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			size++
			for neighbor := range adjacency[current] {
				if _, done := visited[neighbor]; done {
					continue
				}
				visited[neighbor] = struct{}{}
				queue = append(queue, neighbor)
			}
		}
		if size > largest {
			largest = size
		}
	}

	return count, largest
}
