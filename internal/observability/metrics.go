package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the research service.
// Metrics are organized by subsystem: searches, papers, analysis, RAG, and
// LLM operations. All counters and histograms are registered via promauto
// for automatic registration with the default Prometheus registry.
type Metrics struct {
	// SearchesStarted counts searches initiated, labeled by paper source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful searches, labeled by paper source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed searches, labeled by paper source.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes search duration in seconds, labeled by paper source.
	SearchDuration *prometheus.HistogramVec

	// PapersPerSearch observes the distribution of papers returned per search, labeled by source.
	PapersPerSearch *prometheus.HistogramVec

	// PapersDiscovered counts the total number of unique papers discovered.
	PapersDiscovered prometheus.Counter

	// PapersDuplicate counts duplicate papers dropped during deduplication.
	PapersDuplicate prometheus.Counter

	// PapersBySource counts papers contributed to merged results, labeled by source.
	PapersBySource *prometheus.CounterVec

	// AnalysisRuns counts analysis operations, labeled by analysis type
	// (trends, gaps, report).
	AnalysisRuns *prometheus.CounterVec

	// AnalysisFailed counts failed analysis operations, labeled by analysis type.
	AnalysisFailed *prometheus.CounterVec

	// AnalysisDuration observes analysis duration in seconds, labeled by analysis type.
	AnalysisDuration *prometheus.HistogramVec

	// PDFsProcessed counts PDF uploads processed.
	PDFsProcessed prometheus.Counter

	// PDFsFailed counts PDF uploads that failed to process.
	PDFsFailed prometheus.Counter

	// RAGQuestions counts questions answered through the RAG pipeline.
	RAGQuestions prometheus.Counter

	// RAGDocumentsIndexed counts documents added to the vector index.
	RAGDocumentsIndexed prometheus.Counter

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of paper searches started by source",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of paper searches completed by source",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of paper searches that failed by source",
		}, []string{"source"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of paper searches in seconds by source",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		PapersPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of papers returned per search by source",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{"source"}),

		PapersDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_discovered_total",
			Help:      "Total number of unique papers discovered",
		}),
		PapersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of duplicate papers dropped",
		}),
		PapersBySource: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_by_source_total",
			Help:      "Total number of papers contributed by source",
		}, []string{"source"}),

		AnalysisRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Total number of analysis runs by type",
		}, []string{"analysis"}),
		AnalysisFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failed_total",
			Help:      "Total number of failed analysis runs by type",
		}, []string{"analysis"}),
		AnalysisDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of analysis runs in seconds by type",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		}, []string{"analysis"}),

		PDFsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdfs_processed_total",
			Help:      "Total number of uploaded PDFs processed",
		}),
		PDFsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdfs_failed_total",
			Help:      "Total number of uploaded PDFs that failed to process",
		}),

		RAGQuestions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rag_questions_total",
			Help:      "Total number of questions answered through the RAG pipeline",
		}),
		RAGDocumentsIndexed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rag_documents_indexed_total",
			Help:      "Total number of documents added to the vector index",
		}),

		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by operation",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM requests by operation",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation", "model"}),
	}
}

// RecordSearchStarted records that a search has started.
func (m *Metrics) RecordSearchStarted(source string) {
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records that a search has completed.
func (m *Metrics) RecordSearchCompleted(source string, paperCount int, durationSeconds float64) {
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSearch.WithLabelValues(source).Observe(float64(paperCount))
}

// RecordSearchFailed records that a search has failed.
func (m *Metrics) RecordSearchFailed(source string, durationSeconds float64) {
	m.SearchesFailed.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordPapersDiscovered records unique papers contributed by a source.
func (m *Metrics) RecordPapersDiscovered(source string, count int) {
	m.PapersDiscovered.Add(float64(count))
	m.PapersBySource.WithLabelValues(source).Add(float64(count))
}

// RecordPaperDuplicates records duplicate papers dropped in a merge.
func (m *Metrics) RecordPaperDuplicates(count int) {
	m.PapersDuplicate.Add(float64(count))
}

// RecordAnalysisRun records a completed analysis run.
func (m *Metrics) RecordAnalysisRun(analysis string, durationSeconds float64) {
	m.AnalysisRuns.WithLabelValues(analysis).Inc()
	m.AnalysisDuration.WithLabelValues(analysis).Observe(durationSeconds)
}

// RecordAnalysisFailed records a failed analysis run.
func (m *Metrics) RecordAnalysisFailed(analysis string) {
	m.AnalysisFailed.WithLabelValues(analysis).Inc()
}

// RecordPDFProcessed records a processed PDF upload.
func (m *Metrics) RecordPDFProcessed() {
	m.PDFsProcessed.Inc()
}

// RecordPDFFailed records a failed PDF upload.
func (m *Metrics) RecordPDFFailed() {
	m.PDFsFailed.Inc()
}

// RecordRAGQuestion records a question answered through the RAG pipeline.
func (m *Metrics) RecordRAGQuestion() {
	m.RAGQuestions.Inc()
}

// RecordRAGDocumentsIndexed records documents added to the vector index.
func (m *Metrics) RecordRAGDocumentsIndexed(count int) {
	m.RAGDocumentsIndexed.Add(float64(count))
}

// RecordLLMRequest records an LLM request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64) {
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}
