package domain

import (
	"regexp"
	"strings"
)

// nonWordRegex matches anything that is not a word character or whitespace.
// Used to strip punctuation when normalizing titles for deduplication.
var nonWordRegex = regexp.MustCompile(`[^\w\s]`)

// whitespaceRegex matches one or more whitespace characters (spaces, tabs, newlines).
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Paper is the canonical record all source-specific API responses are mapped
// into. Papers are created at search time and are not mutated afterwards
// within the aggregation pipeline; downstream consumers (projects, the RAG
// index) store copies.
type Paper struct {
	// Title is the paper title. The only field every source is expected to fill.
	Title string `json:"title"`

	// Authors holds display names ("Given Family" or a single string) in the
	// order the source returned them.
	Authors []string `json:"authors"`

	// Abstract is the paper's abstract text, empty when the source omits it.
	Abstract string `json:"abstract"`

	// PublishedDate is the publication date as an ISO-8601 date string
	// (YYYY-MM-DD), or empty when unknown.
	PublishedDate string `json:"published_date"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty"`

	// URL is the landing page for the paper at its source.
	URL string `json:"url"`

	// PDFURL is a direct link to the full-text PDF when the source provides one.
	PDFURL string `json:"pdf_url,omitempty"`

	// Source identifies which upstream database produced this record.
	Source SourceType `json:"source"`

	// DOI is the Digital Object Identifier, empty when unknown.
	DOI string `json:"doi,omitempty"`

	// ArxivID is the arXiv identifier (last path segment of the entry URL),
	// empty outside arXiv unless another source reports one.
	ArxivID string `json:"arxiv_id,omitempty"`

	// PMID is the PubMed identifier, empty outside PubMed.
	PMID string `json:"pmid,omitempty"`

	// CitationCount is the citation count reported by the source
	// (Semantic Scholar only; 0 elsewhere).
	CitationCount int `json:"citation_count,omitempty"`

	// Categories holds arXiv category terms (e.g. "cs.AI").
	Categories []string `json:"categories,omitempty"`

	// Journal is the journal or venue name when the source reports one.
	Journal string `json:"journal,omitempty"`
}

// NormalizeTitle lowercases a title, strips punctuation, and collapses
// whitespace, producing the form used for title-based deduplication.
func NormalizeTitle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = nonWordRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// DedupTokens returns the identifier tokens that define this paper's identity
// for deduplication: doi:, arxiv:, pmid: and title: prefixed values, all
// lowercased. A placeholder "no title" title never counts as identifying.
// Papers sharing any token are the same paper; the first occurrence wins.
func (p *Paper) DedupTokens() []string {
	tokens := make([]string, 0, 4)

	if doi := strings.TrimSpace(p.DOI); doi != "" {
		tokens = append(tokens, "doi:"+strings.ToLower(doi))
	}
	if arxivID := strings.TrimSpace(p.ArxivID); arxivID != "" {
		tokens = append(tokens, "arxiv:"+strings.ToLower(arxivID))
	}
	if pmid := strings.TrimSpace(p.PMID); pmid != "" {
		tokens = append(tokens, "pmid:"+pmid)
	}

	title := strings.ToLower(strings.TrimSpace(p.Title))
	if title != "" && title != "no title" {
		tokens = append(tokens, "title:"+NormalizeTitle(title))
	}

	return tokens
}

// Content returns the lowercased concatenation of title and abstract, the
// text form every analysis primitive (keyword extraction, taxonomy matching)
// operates on.
func (p *Paper) Content() string {
	return strings.ToLower(p.Title + " " + p.Abstract)
}
