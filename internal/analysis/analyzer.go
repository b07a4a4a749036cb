package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchmate/research-service/internal/observability"
)

// Generator produces text from a prompt. The LLM client satisfies it; it is
// optional and analyses degrade to a placeholder message without one.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Analyzer runs trend and gap analyses over paper collections.
type Analyzer struct {
	generator Generator
	logger    zerolog.Logger
	metrics   *observability.Metrics

	// now is swapped in tests to pin the current year.
	now func() time.Time
}

// New creates an analyzer. generator may be nil when no language model is
// configured; metrics may be nil when metric collection is disabled.
func New(generator Generator, logger zerolog.Logger, metrics *observability.Metrics) *Analyzer {
	return &Analyzer{
		generator: generator,
		logger:    logger.With().Str("component", "analysis").Logger(),
		metrics:   metrics,
		now:       time.Now,
	}
}

func (a *Analyzer) recordRun(name string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordAnalysisRun(name, time.Since(start).Seconds())
	}
}

func (a *Analyzer) recordFailure(name string) {
	if a.metrics != nil {
		a.metrics.RecordAnalysisFailed(name)
	}
}
