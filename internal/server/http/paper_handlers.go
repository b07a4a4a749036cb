package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/researchmate/research-service/internal/aggregator"
	"github.com/researchmate/research-service/internal/domain"
)

// Query parameter bounds.
const (
	defaultSearchResults = 10
	maxSearchResults     = 100
	maxQueryLength       = 1000
)

type searchResponse struct {
	Query  string          `json:"query"`
	Papers []*domain.Paper `json:"papers"`
	Count  int             `json:"count"`
}

type trendingResponse struct {
	Category string          `json:"category"`
	DaysBack int             `json:"days_back"`
	Papers   []*domain.Paper `json:"papers"`
	Count    int             `json:"count"`
}

type categoriesResponse struct {
	Categories []aggregator.Category `json:"categories"`
}

// searchPapers handles GET /api/v1/search.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("q must be at most %d characters", maxQueryLength))
		return
	}

	opts := aggregator.SearchOptions{
		Query:      query,
		MaxResults: parseBoundedInt(r, "max_results", defaultSearchResults, maxSearchResults),
		Category:   r.URL.Query().Get("category"),
		DateFrom:   r.URL.Query().Get("date_from"),
		DateTo:     r.URL.Query().Get("date_to"),
	}

	if sortParam := r.URL.Query().Get("sort"); sortParam != "" {
		switch domain.SortOrder(sortParam) {
		case domain.SortByRelevance, domain.SortByDate:
			opts.SortBy = domain.SortOrder(sortParam)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported sort order: %s", sortParam))
			return
		}
	}

	// Unknown source names are skipped, not rejected: a search against the
	// sources we do recognize is more useful than a failed request.
	if sourcesParam := r.URL.Query().Get("sources"); sourcesParam != "" {
		for _, name := range strings.Split(sourcesParam, ",") {
			source, ok := domain.ParseSourceType(strings.TrimSpace(name))
			if !ok {
				s.logger.Warn().
					Str("source", name).
					Msg("skipping unknown source")
				continue
			}
			opts.Sources = append(opts.Sources, source)
		}
		if len(opts.Sources) == 0 {
			writeJSON(w, http.StatusOK, searchResponse{
				Query:  query,
				Papers: []*domain.Paper{},
				Count:  0,
			})
			return
		}
	}

	papers, err := s.searcher.Search(r.Context(), opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:  query,
		Papers: papers,
		Count:  len(papers),
	})
}

// getPaper handles GET /api/v1/papers/{paperID}. The ID may be an arXiv ID,
// DOI, or PMID.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")
	if paperID == "" {
		writeError(w, http.StatusBadRequest, "paper id is required")
		return
	}

	paper, err := s.searcher.GetByID(r.Context(), paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paper)
}

// listCategories handles GET /api/v1/categories.
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: aggregator.Categories})
}

// trendingPapers handles GET /api/v1/trending.
func (s *Server) trendingPapers(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	maxResults := parseBoundedInt(r, "max_results", defaultSearchResults, maxSearchResults)
	daysBack := parseBoundedInt(r, "days_back", 30, 365)

	papers, err := s.searcher.Trending(r.Context(), category, maxResults, daysBack)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trendingResponse{
		Category: category,
		DaysBack: daysBack,
		Papers:   papers,
		Count:    len(papers),
	})
}

// parseBoundedInt reads a positive integer query parameter, falling back to
// def and clamping to max.
func parseBoundedInt(r *http.Request, name string, def, max int) int {
	value := def
	if param := r.URL.Query().Get(name); param != "" {
		if parsed, err := strconv.Atoi(param); err == nil && parsed > 0 {
			value = parsed
		}
	}
	if value > max {
		value = max
	}
	return value
}
