package httpserver

import (
	"net/http"
	"strings"

	"github.com/researchmate/research-service/internal/aggregator"
	"github.com/researchmate/research-service/internal/analysis"
	"github.com/researchmate/research-service/internal/domain"
)

type trendsResponse struct {
	Topic          string                   `json:"topic"`
	PapersAnalyzed int                      `json:"papers_analyzed"`
	Trends         *analysis.TemporalTrends `json:"trends"`
}

type gapsResponse struct {
	Topic          string                 `json:"topic"`
	PapersAnalyzed int                    `json:"papers_analyzed"`
	Gaps           *analysis.ResearchGaps `json:"gaps"`
}

type networkResponse struct {
	Topic          string                   `json:"topic"`
	PapersAnalyzed int                      `json:"papers_analyzed"`
	Network        *analysis.NetworkSummary `json:"network"`
}

type reportResponse struct {
	Topic  string                `json:"topic"`
	Report *analysis.TrendReport `json:"report"`
}

// fetchAnalysisCorpus searches for papers on the topic, capped at the
// configured analysis budget. Responds with an error and returns false when
// the topic is missing or the search fails.
func (s *Server) fetchAnalysisCorpus(w http.ResponseWriter, r *http.Request) (string, []*domain.Paper, bool) {
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return "", nil, false
	}

	maxPapers := parseBoundedInt(r, "max_papers", s.maxAnalysisPapers, s.maxAnalysisPapers)

	papers, err := s.searcher.Search(r.Context(), aggregator.SearchOptions{
		Query:      topic,
		MaxResults: maxPapers,
	})
	if err != nil {
		writeDomainError(w, err)
		return "", nil, false
	}
	if len(papers) == 0 {
		writeError(w, http.StatusNotFound, "no papers found for topic")
		return "", nil, false
	}

	return topic, papers, true
}

// analyzeTrends handles GET /api/v1/analysis/trends.
func (s *Server) analyzeTrends(w http.ResponseWriter, r *http.Request) {
	topic, papers, ok := s.fetchAnalysisCorpus(w, r)
	if !ok {
		return
	}

	trends, err := s.analyzer.AnalyzeTemporalTrends(papers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trendsResponse{
		Topic:          topic,
		PapersAnalyzed: len(papers),
		Trends:         trends,
	})
}

// analyzeGaps handles GET /api/v1/analysis/gaps.
func (s *Server) analyzeGaps(w http.ResponseWriter, r *http.Request) {
	topic, papers, ok := s.fetchAnalysisCorpus(w, r)
	if !ok {
		return
	}

	gaps, err := s.analyzer.DetectResearchGaps(r.Context(), papers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gapsResponse{
		Topic:          topic,
		PapersAnalyzed: len(papers),
		Gaps:           gaps,
	})
}

// analyzeNetwork handles GET /api/v1/analysis/network.
func (s *Server) analyzeNetwork(w http.ResponseWriter, r *http.Request) {
	topic, papers, ok := s.fetchAnalysisCorpus(w, r)
	if !ok {
		return
	}

	network, err := s.analyzer.AnalyzeCollaborationNetwork(papers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, networkResponse{
		Topic:          topic,
		PapersAnalyzed: len(papers),
		Network:        network,
	})
}

// generateReport handles GET /api/v1/analysis/report.
func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	topic, papers, ok := s.fetchAnalysisCorpus(w, r)
	if !ok {
		return
	}

	report, err := s.analyzer.GenerateTrendReport(r.Context(), papers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{
		Topic:  topic,
		Report: report,
	})
}
