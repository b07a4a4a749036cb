// Package papersources provides clients for searching academic paper
// databases. Each upstream API (arXiv, Semantic Scholar, Crossref, PubMed)
// implements the PaperSource interface, translating its response format into
// the canonical domain.Paper record so the aggregator can fan a query out
// across sources with a unified API.
package papersources

import (
	"context"

	"github.com/researchmate/research-service/internal/domain"
)

// SearchParams defines the parameters for searching academic papers.
type SearchParams struct {
	// Query is the free-text search query. May be empty when Category is set,
	// in which case category-only results are returned (arXiv).
	Query string

	// MaxResults caps the number of papers returned. Adapters truncate to
	// this count even when the upstream API returns more. A value of 0 uses
	// the source's default limit.
	MaxResults int

	// Category is an optional arXiv category filter (e.g. "cs.AI"). Sources
	// without category support ignore it.
	Category string
}

// PaperSource is the contract every source adapter implements.
//
// Implementations should:
//   - Respect context cancellation.
//   - Apply their source's rate limit before each upstream request.
//   - Transform source-specific responses into domain.Paper records.
//   - Skip malformed records within a batch rather than failing the batch.
//
// Search returns an error on upstream failure; the aggregator recovers it as
// an empty contribution from that source (fail-open), so an error here never
// aborts a multi-source search.
type PaperSource interface {
	// Search queries the source for papers matching the given parameters.
	Search(ctx context.Context, params SearchParams) ([]*domain.Paper, error)

	// GetByID retrieves a specific paper by its source-specific identifier
	// (arXiv ID, DOI, or PMID depending on the source).
	// Returns domain.ErrNotFound if the paper does not exist.
	GetByID(ctx context.Context, id string) (*domain.Paper, error)

	// SourceType returns the type identifier for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for logging and attribution.
	Name() string
}
