// Package aggregator fans a search query out across the configured paper
// sources, merges their results with source-priority deduplication, and
// routes identifier lookups to the right source.
package aggregator

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/observability"
	"github.com/researchmate/research-service/internal/papersources"
)

// DefaultMaxResults is the merged result cap used when a search does not
// specify one.
const DefaultMaxResults = 10

// arxivIDRegex matches modern arXiv identifiers like "2301.12345" or
// "2301.12345v2".
var arxivIDRegex = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)

// pmidRegex matches PubMed identifiers, which are plain digit strings.
var pmidRegex = regexp.MustCompile(`^\d+$`)

// SearchOptions controls a multi-source search.
type SearchOptions struct {
	// Query is the free-text search query.
	Query string

	// MaxResults caps the merged result count. Zero uses DefaultMaxResults.
	MaxResults int

	// Sources selects which sources to query, in priority order. Empty means
	// all registered sources in canonical order.
	Sources []domain.SourceType

	// Category is an optional arXiv category filter.
	Category string

	// SortBy orders the merged results. SortByRelevance keeps the
	// priority-merged order; SortByDate sorts newest first.
	SortBy domain.SortOrder

	// DateFrom and DateTo, when set (YYYY-MM-DD), restrict results to papers
	// published inside the range. Papers without any date survive the filter.
	DateFrom string
	DateTo   string
}

// Aggregator coordinates searches across the registered paper sources.
type Aggregator struct {
	registry *papersources.Registry
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// New creates an aggregator over the given source registry. Metrics may be
// nil when metric collection is disabled.
func New(registry *papersources.Registry, logger zerolog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// sourceResult carries one source's contribution, tagged with its invocation
// index so the merge preserves source priority regardless of completion order.
type sourceResult struct {
	index  int
	source domain.SourceType
	papers []*domain.Paper
}

// Search fans the query out to every selected source concurrently, merges the
// results in source-priority order, deduplicates them, and truncates to the
// requested cap.
//
// A failing source contributes nothing: the failure is logged and the search
// continues with the remaining sources. Search only returns an error when the
// context is canceled before any work completes.
func (a *Aggregator) Search(ctx context.Context, opts SearchOptions) ([]*domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	sources := a.resolveSources(opts.Sources)
	if len(sources) == 0 {
		return []*domain.Paper{}, nil
	}

	// Each source gets an equal share of the result budget, never less
	// than one.
	perSource := maxResults / len(sources)
	if perSource < 1 {
		perSource = 1
	}

	results := make([]sourceResult, len(sources))
	var wg sync.WaitGroup

	for i, sourceType := range sources {
		source := a.registry.Get(sourceType)
		if source == nil {
			results[i] = sourceResult{index: i, source: sourceType}
			continue
		}

		wg.Add(1)
		go func(i int, source papersources.PaperSource) {
			defer wg.Done()
			results[i] = sourceResult{
				index:  i,
				source: source.SourceType(),
				papers: a.searchSource(ctx, source, papersources.SearchParams{
					Query:      opts.Query,
					MaxResults: perSource,
					Category:   opts.Category,
				}),
			}
		}(i, source)
	}

	wg.Wait()

	// Merge in invocation order so deduplication prefers records from
	// higher-priority sources.
	merged := make([]*domain.Paper, 0, maxResults)
	for _, res := range results {
		merged = append(merged, res.papers...)
	}

	before := len(merged)
	unique := Deduplicate(merged)
	if a.metrics != nil {
		a.metrics.RecordPaperDuplicates(before - len(unique))
	}

	unique = FilterByDateRange(unique, opts.DateFrom, opts.DateTo)

	if opts.SortBy == domain.SortByDate {
		SortByDateDesc(unique)
	}

	if len(unique) > maxResults {
		unique = unique[:maxResults]
	}

	if a.metrics != nil {
		counts := make(map[domain.SourceType]int, len(sources))
		for _, p := range unique {
			counts[p.Source]++
		}
		for source, count := range counts {
			a.metrics.RecordPapersDiscovered(string(source), count)
		}
	}

	a.logger.Info().
		Str("query", opts.Query).
		Int("sources", len(sources)).
		Int("fetched", before).
		Int("returned", len(unique)).
		Msg("multi-source search complete")

	return unique, nil
}

// searchSource queries one source, recovering failures as an empty
// contribution so a broken upstream never aborts the whole search.
func (a *Aggregator) searchSource(ctx context.Context, source papersources.PaperSource, params papersources.SearchParams) []*domain.Paper {
	start := time.Now()
	name := string(source.SourceType())

	if a.metrics != nil {
		a.metrics.RecordSearchStarted(name)
	}

	papers, err := source.Search(ctx, params)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordSearchFailed(name, elapsed)
		}
		slog := observability.WithSearchContext(a.logger, params.Query, name)
		slog.Warn().
			Err(err).
			Msg("source search failed, continuing without it")
		return nil
	}

	if a.metrics != nil {
		a.metrics.RecordSearchCompleted(name, len(papers), elapsed)
	}

	return papers
}

// GetByID resolves a paper identifier, routing it to the source that owns
// the identifier scheme:
//
//   - "2301.12345" or "2301.12345v2" goes to arXiv
//   - "10.1234/..." or "doi:10.1234/..." goes to Crossref
//   - an all-digit string goes to PubMed as a PMID
//   - anything else falls back to a one-result search across all sources
func (a *Aggregator) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	sourceType, ok := ClassifyIdentifier(id)
	if !ok {
		return a.getByIDFallback(ctx, id)
	}
	if sourceType == domain.SourceTypeCrossref {
		id = strings.TrimPrefix(id, "doi:")
	}

	source := a.registry.Get(sourceType)
	if source == nil {
		return a.getByIDFallback(ctx, id)
	}

	return source.GetByID(ctx, id)
}

// getByIDFallback treats an unrecognized identifier as a search query and
// returns the best match, if any.
func (a *Aggregator) getByIDFallback(ctx context.Context, id string) (*domain.Paper, error) {
	papers, err := a.Search(ctx, SearchOptions{Query: id, MaxResults: 1})
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return papers[0], nil
}

// ClassifyIdentifier maps a paper identifier string to the source that can
// resolve it. The second return value is false when the identifier matches
// no known scheme.
func ClassifyIdentifier(id string) (domain.SourceType, bool) {
	switch {
	case arxivIDRegex.MatchString(id):
		return domain.SourceTypeArXiv, true
	case strings.HasPrefix(id, "doi:"), strings.HasPrefix(id, "10.") && strings.Contains(id, "/"):
		return domain.SourceTypeCrossref, true
	case pmidRegex.MatchString(id):
		return domain.SourceTypePubMed, true
	default:
		return "", false
	}
}

// FilterByDateRange keeps papers published within [from, to]. Either bound
// may be empty. Papers without a publication date are kept; absence of a date
// is not evidence the paper falls outside the range.
func FilterByDateRange(papers []*domain.Paper, from, to string) []*domain.Paper {
	if from == "" && to == "" {
		return papers
	}

	filtered := make([]*domain.Paper, 0, len(papers))
	for _, paper := range papers {
		if paper.PublishedDate == "" {
			filtered = append(filtered, paper)
			continue
		}
		// ISO dates compare correctly as strings.
		if from != "" && paper.PublishedDate < from {
			continue
		}
		if to != "" && paper.PublishedDate > to {
			continue
		}
		filtered = append(filtered, paper)
	}

	return filtered
}

// SortByDateDesc sorts papers newest first, in place. Papers without dates
// sink to the end. The sort is stable so equal dates keep their merge order.
func SortByDateDesc(papers []*domain.Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].PublishedDate > papers[j].PublishedDate
	})
}

// resolveSources returns the sources to query in priority order. Requested
// sources with no registered client are skipped with a warning rather than
// failing the search.
func (a *Aggregator) resolveSources(requested []domain.SourceType) []domain.SourceType {
	if len(requested) == 0 {
		return a.registry.Types()
	}

	sources := make([]domain.SourceType, 0, len(requested))
	for _, st := range requested {
		if a.registry.Get(st) == nil {
			a.logger.Warn().
				Str("source", string(st)).
				Msg("skipping unregistered source")
			continue
		}
		sources = append(sources, st)
	}
	return sources
}
