// Package domain provides domain models and business logic for the research
// assistant service.
package domain

// SourceType identifies the upstream database a paper record came from.
type SourceType string

const (
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeCrossref        SourceType = "crossref"
	SourceTypePubMed          SourceType = "pubmed"
	SourceTypeUploadedPDF     SourceType = "uploaded_pdf"
)

// AllSearchSources lists the searchable upstream sources in default
// invocation order. The order matters: deduplication keeps the first
// occurrence of a paper, so it encodes source priority.
var AllSearchSources = []SourceType{
	SourceTypeArXiv,
	SourceTypeSemanticScholar,
	SourceTypeCrossref,
	SourceTypePubMed,
}

// ParseSourceType maps a source name string to a SourceType.
// Returns false for names that do not correspond to a searchable source.
func ParseSourceType(name string) (SourceType, bool) {
	switch SourceType(name) {
	case SourceTypeArXiv, SourceTypeSemanticScholar, SourceTypeCrossref, SourceTypePubMed:
		return SourceType(name), true
	default:
		return "", false
	}
}

// SortOrder controls how aggregated search results are ordered.
type SortOrder string

const (
	// SortByRelevance preserves the per-source relevance order, concatenated
	// in source-invocation order.
	SortByRelevance SortOrder = "relevance"

	// SortByDate orders results by published date, newest first.
	SortByDate SortOrder = "date"
)
