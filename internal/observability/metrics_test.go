package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewMetrics registers with the default registry, so it can only be called
// once per test binary. All metric assertions share this instance.
func TestMetrics(t *testing.T) {
	m := NewMetrics("research_test")
	require.NotNil(t, m)

	t.Run("records search lifecycle", func(t *testing.T) {
		m.RecordSearchStarted("arxiv")
		m.RecordSearchCompleted("arxiv", 10, 1.5)
		m.RecordSearchFailed("pubmed", 0.2)

		assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesStarted.WithLabelValues("arxiv")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesCompleted.WithLabelValues("arxiv")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesFailed.WithLabelValues("pubmed")))
	})

	t.Run("records paper counters", func(t *testing.T) {
		m.RecordPapersDiscovered("crossref", 5)
		m.RecordPaperDuplicates(3)

		assert.Equal(t, float64(5), testutil.ToFloat64(m.PapersDiscovered))
		assert.Equal(t, float64(5), testutil.ToFloat64(m.PapersBySource.WithLabelValues("crossref")))
		assert.Equal(t, float64(3), testutil.ToFloat64(m.PapersDuplicate))
	})

	t.Run("records analysis runs", func(t *testing.T) {
		m.RecordAnalysisRun("trends", 0.01)
		m.RecordAnalysisFailed("gaps")

		assert.Equal(t, float64(1), testutil.ToFloat64(m.AnalysisRuns.WithLabelValues("trends")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.AnalysisFailed.WithLabelValues("gaps")))
	})

	t.Run("records PDF and RAG counters", func(t *testing.T) {
		m.RecordPDFProcessed()
		m.RecordPDFFailed()
		m.RecordRAGQuestion()
		m.RecordRAGDocumentsIndexed(4)

		assert.Equal(t, float64(1), testutil.ToFloat64(m.PDFsProcessed))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.PDFsFailed))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.RAGQuestions))
		assert.Equal(t, float64(4), testutil.ToFloat64(m.RAGDocumentsIndexed))
	})

	t.Run("records LLM requests", func(t *testing.T) {
		m.RecordLLMRequest("summarize", "llama-3.3-70b", 2.0)
		m.RecordLLMRequestFailed("summarize", "llama-3.3-70b", "timeout")

		assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("summarize", "llama-3.3-70b")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsFailed.WithLabelValues("summarize", "llama-3.3-70b", "timeout")))
	})
}
