package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmate/research-service/internal/domain"
)

func TestAnalyzer_GenerateTrendReport(t *testing.T) {
	ctx := context.Background()

	// The test clock is pinned to mid-2024, so papers from 2022 onward count
	// as recent for emerging-topic detection.
	reportPapers := []*domain.Paper{
		paperWithYear(2020, "graph optimization", ""),
		paperWithYear(2023, "graph embedding", ""),
		paperWithYear(2023, "graph compression", ""),
		paperWithYear(2024, "graph pruning", ""),
	}

	t.Run("rejects empty input", func(t *testing.T) {
		analyzer := newTestAnalyzer()

		report, err := analyzer.GenerateTrendReport(ctx, nil)

		require.Error(t, err)
		assert.Nil(t, report)
		assert.True(t, errors.Is(err, domain.ErrNoPapers))
	})

	t.Run("assembles all sections", func(t *testing.T) {
		analyzer := newTestAnalyzer()

		report, err := analyzer.GenerateTrendReport(ctx, reportPapers)

		require.NoError(t, err)
		require.NotNil(t, report.TemporalTrends)
		require.NotNil(t, report.ResearchGaps)
		require.NotNil(t, report.KeywordAnalysis)
		require.NotNil(t, report.EmergingTopics)

		assert.Empty(t, report.TemporalTrends.Error)
		assert.Empty(t, report.ResearchGaps.Error)
		assert.Equal(t, 4, report.Metadata.PapersAnalyzed)
		assert.Equal(t, "2.0", report.Metadata.ReportVersion)
		assert.NotEmpty(t, report.Metadata.AnalysisDate)
	})

	t.Run("ranks keyword trends between the latest two years", func(t *testing.T) {
		analyzer := newTestAnalyzer()

		report, err := analyzer.GenerateTrendReport(ctx, reportPapers)

		require.NoError(t, err)
		trending := report.KeywordAnalysis.TrendingKeywords
		require.NotEmpty(t, trending)

		// 2023 has "graph" twice; 2024 has it once: a 50% drop. The other
		// 2023 keywords vanish entirely, a 100% drop, so "graph" ranks first.
		assert.Equal(t, "graph", trending[0].Keyword)
		assert.InDelta(t, -50.0, trending[0].TrendPercent, 0.001)
		for _, kt := range trending[1:] {
			assert.InDelta(t, -100.0, kt.TrendPercent, 0.001)
		}
	})

	t.Run("detects emerging topics against the older half", func(t *testing.T) {
		analyzer := newTestAnalyzer()

		report, err := analyzer.GenerateTrendReport(ctx, reportPapers)

		require.NoError(t, err)
		emerging := report.EmergingTopics
		assert.Equal(t, 3, emerging.RecentPapersCount)
		assert.Equal(t, 1, emerging.OlderPapersCount)
		assert.Contains(t, emerging.Topics, "pruning")
		assert.Contains(t, emerging.Topics, "embedding")
		assert.NotContains(t, emerging.Topics, "graph")
		assert.NotContains(t, emerging.Topics, "optimization")
	})

	t.Run("reports a placeholder summary without a generator", func(t *testing.T) {
		analyzer := newTestAnalyzer()

		report, err := analyzer.GenerateTrendReport(ctx, reportPapers)

		require.NoError(t, err)
		assert.Contains(t, report.ExecutiveSummary, "not available")
	})

	t.Run("uses the generator for the executive summary", func(t *testing.T) {
		gen := &fakeGenerator{response: "a concise summary"}
		analyzer := newTestAnalyzer()
		analyzer.generator = gen

		report, err := analyzer.GenerateTrendReport(ctx, reportPapers)

		require.NoError(t, err)
		assert.Equal(t, "a concise summary", report.ExecutiveSummary)
		assert.Contains(t, gen.lastPrompt, "Papers Analyzed: 4")
	})

	t.Run("generator failure yields an error-prefixed summary", func(t *testing.T) {
		analyzer := newTestAnalyzer()
		analyzer.generator = &fakeGenerator{err: errors.New("quota exceeded")}

		report, err := analyzer.GenerateTrendReport(ctx, reportPapers)

		require.NoError(t, err)
		assert.True(t, len(report.ExecutiveSummary) > 0)
		assert.Contains(t, report.ExecutiveSummary, "Error:")
		assert.Contains(t, report.ExecutiveSummary, "quota exceeded")
	})
}
