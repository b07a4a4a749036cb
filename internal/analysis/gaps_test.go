package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmate/research-service/internal/domain"
)

// fakeGenerator stands in for the LLM client.
type fakeGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	g.lastPrompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func gapCategories(gaps []GapEntry) []string {
	categories := make([]string, 0, len(gaps))
	for _, gap := range gaps {
		categories = append(categories, gap.Category)
	}
	return categories
}

func TestAnalyzer_DetectResearchGaps(t *testing.T) {
	ctx := context.Background()
	analyzer := newTestAnalyzer()

	t.Run("rejects empty input", func(t *testing.T) {
		gaps, err := analyzer.DetectResearchGaps(ctx, nil)

		require.Error(t, err)
		assert.Nil(t, gaps)
		assert.True(t, errors.Is(err, domain.ErrNoPapers))
	})

	t.Run("well-covered areas are not gaps, untouched areas are", func(t *testing.T) {
		papers := []*domain.Paper{
			paperWithYear(2022, "Robot manipulation", "Robotic grasping under uncertainty."),
			paperWithYear(2023, "Robotic assembly", "Robot arm trajectory planning."),
		}

		gaps, err := analyzer.DetectResearchGaps(ctx, papers)

		require.NoError(t, err)
		areas := gapCategories(gaps.ResearchAreaGaps)
		assert.NotContains(t, areas, "Robotics")
		assert.Contains(t, areas, "Finance")
		assert.Contains(t, areas, "Healthcare")
		assert.Len(t, areas, 8)

		for _, gap := range gaps.ResearchAreaGaps {
			if gap.Category == "Finance" {
				assert.Equal(t, 0, gap.PaperCount)
				assert.Equal(t, 0.0, gap.CoveragePercent)
			}
		}
	})

	t.Run("gap lists follow taxonomy order", func(t *testing.T) {
		papers := []*domain.Paper{
			paperWithYear(2022, "Quantum annealing", "Qubit coherence experiments."),
		}

		gaps, err := analyzer.DetectResearchGaps(ctx, papers)

		require.NoError(t, err)
		assert.Equal(t, []string{
			"Supervised Learning",
			"Unsupervised Learning",
			"Semi Supervised",
			"Transfer Learning",
			"Federated Learning",
			"Meta Learning",
			"Explainable Ai",
			"Adversarial",
		}, gapCategories(gaps.MethodologyGaps))
		assert.Equal(t, []string{
			"Text", "Image", "Audio", "Sensor", "Tabular",
		}, gapCategories(gaps.DataTypeGaps))
	})

	t.Run("threshold comparison is strict", func(t *testing.T) {
		// 1 of 20 papers mentions supervised learning: exactly 5% coverage,
		// which does not fall below the 5% methodology threshold.
		papers := []*domain.Paper{
			paperWithYear(2022, "Supervised classification of galaxies", ""),
		}
		for i := 0; i < 19; i++ {
			papers = append(papers, paperWithYear(2022, "Quantum annealing", "Qubit coherence."))
		}

		gaps, err := analyzer.DetectResearchGaps(ctx, papers)

		require.NoError(t, err)
		methods := gapCategories(gaps.MethodologyGaps)
		assert.NotContains(t, methods, "Supervised Learning")
		assert.Contains(t, methods, "Unsupervised Learning")
	})

	t.Run("fills the analysis summary", func(t *testing.T) {
		papers := []*domain.Paper{
			paperWithYear(2022, "Quantum annealing", "Qubit coherence."),
		}

		gaps, err := analyzer.DetectResearchGaps(ctx, papers)

		require.NoError(t, err)
		assert.Equal(t, 1, gaps.Summary.TotalPapersAnalyzed)
		assert.Equal(t, len(gaps.MethodologyGaps), gaps.Summary.MethodologyGapsFound)
		assert.Equal(t, len(gaps.ResearchAreaGaps), gaps.Summary.ResearchAreaGapsFound)
		assert.Equal(t, len(gaps.DataTypeGaps), gaps.Summary.DataTypeGapsFound)
		assert.NotEmpty(t, gaps.Summary.AnalysisTimestamp)
	})

	t.Run("includes AI commentary when a generator is configured", func(t *testing.T) {
		gen := &fakeGenerator{response: "gap commentary"}
		withGen := newTestAnalyzer()
		withGen.generator = gen

		gaps, err := withGen.DetectResearchGaps(ctx, []*domain.Paper{
			paperWithYear(2022, "Quantum annealing", ""),
		})

		require.NoError(t, err)
		assert.Equal(t, "gap commentary", gaps.AIAnalysis)
		assert.Contains(t, gen.lastPrompt, "Total Papers Analyzed: 1")
	})

	t.Run("generator failure degrades to an inline error", func(t *testing.T) {
		withGen := newTestAnalyzer()
		withGen.generator = &fakeGenerator{err: errors.New("model overloaded")}

		gaps, err := withGen.DetectResearchGaps(ctx, []*domain.Paper{
			paperWithYear(2022, "Quantum annealing", ""),
		})

		require.NoError(t, err)
		assert.Contains(t, gaps.AIAnalysis, "Error:")
		assert.Contains(t, gaps.AIAnalysis, "model overloaded")
	})
}

func TestClassifyDataType(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		matched bool
	}{
		{"no data mention", "robot manipulation planning", "", false},
		{"text corpus", "a large text dataset for parsing", "text", true},
		{"image data", "dataset of annotated images and video", "image", true},
		{"audio data", "speech recognition dataset", "audio", true},
		{"sensor data", "iot sensor data streams", "sensor", true},
		{"tabular fallback", "tabular dataset of patient records", "tabular", true},
		{"text wins over image", "text and image dataset", "text", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := classifyDataType(tt.content)

			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, label)
		})
	}
}

func TestTitleLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"natural_language_processing", "Natural Language Processing"},
		{"explainable_ai", "Explainable Ai"},
		{"adversarial", "Adversarial"},
		{"tabular", "Tabular"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, titleLabel(tt.label))
	}
}
