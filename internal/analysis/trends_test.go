package analysis

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmate/research-service/internal/domain"
)

func newTestAnalyzer() *Analyzer {
	a := New(nil, zerolog.Nop(), nil)
	a.now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return a
}

func paperWithYear(year int, title, abstract string) *domain.Paper {
	return &domain.Paper{
		Title:    title,
		Abstract: abstract,
		Year:     year,
		Source:   domain.SourceTypeArXiv,
	}
}

func TestExtractKeywords(t *testing.T) {
	t.Run("filters stop words and short words", func(t *testing.T) {
		keywords := ExtractKeywords("The transformer model is based on attention and uses cnn")

		assert.Equal(t, []string{"transformer", "attention", "uses"}, keywords)
	})

	t.Run("keeps distinct keywords in first-seen order", func(t *testing.T) {
		keywords := ExtractKeywords("graph neural graph networks neural graph")

		assert.Equal(t, []string{"graph", "neural", "networks"}, keywords)
	})

	t.Run("caps at twenty keywords", func(t *testing.T) {
		// The tokenizer keeps alphabetic runs only, so distinct fixture
		// words need letter suffixes.
		content := ""
		for i := 0; i < 30; i++ {
			content += fmt.Sprintf("keyword%c%c ", 'a'+i/26, 'a'+i%26)
		}

		keywords := ExtractKeywords(content)

		require.Len(t, keywords, 20)
		assert.Equal(t, "keywordaa", keywords[0])
		assert.Equal(t, "keywordat", keywords[19])
	})

	t.Run("lowercases input", func(t *testing.T) {
		keywords := ExtractKeywords("Transformer ATTENTION")

		assert.Equal(t, []string{"transformer", "attention"}, keywords)
	})
}

func TestAnalyzer_AnalyzeTemporalTrends(t *testing.T) {
	analyzer := newTestAnalyzer()

	t.Run("rejects empty input", func(t *testing.T) {
		trends, err := analyzer.AnalyzeTemporalTrends(nil)

		require.Error(t, err)
		assert.Nil(t, trends)
		assert.True(t, errors.Is(err, domain.ErrNoPapers))

		var analysisErr *domain.AnalysisError
		require.True(t, errors.As(err, &analysisErr))
	})

	t.Run("detects publication growth", func(t *testing.T) {
		var papers []*domain.Paper
		counts := map[int]int{2018: 2, 2019: 2, 2020: 2, 2021: 10, 2022: 10}
		for year, n := range counts {
			for i := 0; i < n; i++ {
				papers = append(papers, paperWithYear(year, "quantum annealing", ""))
			}
		}

		trends, err := analyzer.AnalyzeTemporalTrends(papers)

		require.NoError(t, err)
		require.NotNil(t, trends.GrowthAnalysis)
		assert.Equal(t, "growing", trends.GrowthAnalysis.TrendDirection)
		assert.InDelta(t, 7.333, trends.GrowthAnalysis.RecentAverage, 0.001)
		assert.InDelta(t, 2.0, trends.GrowthAnalysis.EarlierAverage, 0.001)
		assert.InDelta(t, 266.667, trends.GrowthAnalysis.GrowthRatePercent, 0.01)
	})

	t.Run("detects decline", func(t *testing.T) {
		var papers []*domain.Paper
		counts := map[int]int{2018: 10, 2019: 10, 2020: 4, 2021: 1, 2022: 1}
		for year, n := range counts {
			for i := 0; i < n; i++ {
				papers = append(papers, paperWithYear(year, "expert systems", ""))
			}
		}

		trends, err := analyzer.AnalyzeTemporalTrends(papers)

		require.NoError(t, err)
		require.NotNil(t, trends.GrowthAnalysis)
		assert.Equal(t, "declining", trends.GrowthAnalysis.TrendDirection)
	})

	t.Run("flat counts are stable", func(t *testing.T) {
		var papers []*domain.Paper
		for _, year := range []int{2019, 2020, 2021, 2022} {
			for i := 0; i < 3; i++ {
				papers = append(papers, paperWithYear(year, "spiking networks", ""))
			}
		}

		trends, err := analyzer.AnalyzeTemporalTrends(papers)

		require.NoError(t, err)
		require.NotNil(t, trends.GrowthAnalysis)
		assert.Equal(t, "stable", trends.GrowthAnalysis.TrendDirection)
		assert.InDelta(t, 0.0, trends.GrowthAnalysis.GrowthRatePercent, 0.001)
	})

	t.Run("filters implausible years", func(t *testing.T) {
		papers := []*domain.Paper{
			paperWithYear(1889, "mechanical calculation", ""),
			paperWithYear(2050, "time travel", ""),
			paperWithYear(2020, "federated optimization", ""),
		}

		trends, err := analyzer.AnalyzeTemporalTrends(papers)

		require.NoError(t, err)
		assert.Equal(t, map[int]int{2020: 1}, trends.PublicationTrend)
		assert.Equal(t, 1, trends.TemporalAnalysis.TotalYears)
		assert.Equal(t, "2020-2020", trends.TemporalAnalysis.YearRange)
		assert.Nil(t, trends.GrowthAnalysis)
		assert.Nil(t, trends.EmergingTopics)
	})

	t.Run("falls back to published date for year", func(t *testing.T) {
		papers := []*domain.Paper{
			{Title: "undated metadata", PublishedDate: "2021-03-01"},
			paperWithYear(2022, "dated metadata", ""),
		}

		trends, err := analyzer.AnalyzeTemporalTrends(papers)

		require.NoError(t, err)
		assert.Equal(t, map[int]int{2021: 1, 2022: 1}, trends.PublicationTrend)
	})

	t.Run("reports emerging and declining topics", func(t *testing.T) {
		papers := []*domain.Paper{
			paperWithYear(2021, "transformer architectures", ""),
			paperWithYear(2022, "diffusion transformer", ""),
		}

		trends, err := analyzer.AnalyzeTemporalTrends(papers)

		require.NoError(t, err)
		require.NotNil(t, trends.EmergingTopics)
		require.NotNil(t, trends.DecliningTopics)
		assert.Equal(t, []string{"diffusion"}, trends.EmergingTopics.Topics)
		assert.Equal(t, 1, trends.EmergingTopics.Count)
		assert.Equal(t, []string{"architectures"}, trends.DecliningTopics.Topics)
		assert.Equal(t, 1, trends.DecliningTopics.Count)
	})

	t.Run("caps topic lists at ten but keeps the full count", func(t *testing.T) {
		previous := paperWithYear(2021, "ordinary baseline", "")
		latest := paperWithYear(2022, "", "")
		for i := 0; i < 12; i++ {
			latest.Abstract += fmt.Sprintf("novelterm%c ", 'a'+i)
		}

		trends, err := analyzer.AnalyzeTemporalTrends([]*domain.Paper{previous, latest})

		require.NoError(t, err)
		require.NotNil(t, trends.EmergingTopics)
		assert.Len(t, trends.EmergingTopics.Topics, 10)
		assert.Equal(t, 12, trends.EmergingTopics.Count)
		assert.Equal(t, "novelterma", trends.EmergingTopics.Topics[0])
	})

	t.Run("summarizes the year axis", func(t *testing.T) {
		papers := []*domain.Paper{
			paperWithYear(2019, "a", ""),
			paperWithYear(2020, "b", ""),
			paperWithYear(2020, "c", ""),
			paperWithYear(2020, "d", ""),
			paperWithYear(2022, "e", ""),
			paperWithYear(2022, "f", ""),
		}

		trends, err := analyzer.AnalyzeTemporalTrends(papers)

		require.NoError(t, err)
		summary := trends.TemporalAnalysis
		assert.Equal(t, 3, summary.TotalYears)
		assert.Equal(t, "2019-2022", summary.YearRange)
		assert.Equal(t, 2020, summary.PeakYear)
		assert.Equal(t, 6, summary.TotalPapers)
		assert.InDelta(t, 2.0, summary.AveragePerYear, 0.001)
	})
}
