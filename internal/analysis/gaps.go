package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/researchmate/research-service/internal/domain"
)

// Coverage thresholds, in percent. A category whose coverage falls below its
// taxonomy's threshold is reported as a gap.
const (
	methodologyGapThreshold  = 5.0
	researchAreaGapThreshold = 10.0
	dataTypeGapThreshold     = 15.0
)

// taxonomyCategory associates a category label with the keywords that signal
// it. A paper matches when its content contains any keyword.
type taxonomyCategory struct {
	label    string
	keywords []string
}

// researchAreaTaxonomy covers broad research fields. Order is report order.
var researchAreaTaxonomy = []taxonomyCategory{
	{"natural_language_processing", []string{"nlp", "language", "text", "linguistic"}},
	{"computer_vision", []string{"vision", "image", "visual", "cv"}},
	{"machine_learning", []string{"ml", "learning", "algorithm", "model"}},
	{"deep_learning", []string{"deep", "neural", "network", "cnn", "rnn"}},
	{"reinforcement_learning", []string{"reinforcement", "rl", "agent", "policy"}},
	{"robotics", []string{"robot", "robotic", "manipulation", "control"}},
	{"healthcare", []string{"medical", "health", "clinical", "patient"}},
	{"finance", []string{"financial", "trading", "market", "economic"}},
	{"security", []string{"security", "privacy", "attack", "defense"}},
}

// methodologyTaxonomy covers learning paradigms and techniques.
var methodologyTaxonomy = []taxonomyCategory{
	{"supervised_learning", []string{"supervised", "classification", "regression"}},
	{"unsupervised_learning", []string{"unsupervised", "clustering", "dimensionality"}},
	{"semi_supervised", []string{"semi-supervised", "few-shot", "zero-shot"}},
	{"transfer_learning", []string{"transfer", "domain adaptation", "fine-tuning"}},
	{"federated_learning", []string{"federated", "distributed", "decentralized"}},
	{"meta_learning", []string{"meta", "learning to learn", "few-shot"}},
	{"explainable_ai", []string{"explainable", "interpretable", "explanation"}},
	{"adversarial", []string{"adversarial", "robust", "attack"}},
}

// dataTypeTaxonomy classifies what kind of data a paper works with. Unlike
// the other taxonomies a paper matches at most one category: the first whose
// keywords appear, falling through to tabular. Classification only applies
// to papers that mention "dataset" or "data" at all.
var dataTypeTaxonomy = []taxonomyCategory{
	{"text", []string{"text", "corpus", "language"}},
	{"image", []string{"image", "visual", "video"}},
	{"audio", []string{"audio", "speech", "sound"}},
	{"sensor", []string{"sensor", "iot", "time series"}},
	{"tabular", nil},
}

// GapEntry reports one underexplored category.
type GapEntry struct {
	Category        string  `json:"category"`
	CoveragePercent float64 `json:"coverage_percent"`
	PaperCount      int     `json:"paper_count"`
}

// GapSummary aggregates a gap analysis run.
type GapSummary struct {
	TotalPapersAnalyzed   int    `json:"total_papers_analyzed"`
	MethodologyGapsFound  int    `json:"methodology_gaps_found"`
	ResearchAreaGapsFound int    `json:"research_area_gaps_found"`
	DataTypeGapsFound     int    `json:"data_type_gaps_found"`
	AnalysisTimestamp     string `json:"analysis_timestamp"`
}

// ResearchGaps is the result of DetectResearchGaps. Gap lists follow
// taxonomy-definition order and include zero-coverage categories.
type ResearchGaps struct {
	MethodologyGaps  []GapEntry `json:"methodology_gaps"`
	ResearchAreaGaps []GapEntry `json:"research_area_gaps"`
	DataTypeGaps     []GapEntry `json:"data_type_gaps"`
	AIAnalysis       string     `json:"ai_analysis,omitempty"`
	Summary          GapSummary `json:"analysis_summary"`
	Error            string     `json:"error,omitempty"`
}

// DetectResearchGaps scores the paper collection against the three fixed
// taxonomies and reports categories below their coverage thresholds. When a
// language model is configured, an AI commentary on the gaps is included.
// Fails only on empty input.
func (a *Analyzer) DetectResearchGaps(ctx context.Context, papers []*domain.Paper) (*ResearchGaps, error) {
	start := time.Now()

	if len(papers) == 0 {
		a.recordFailure("gaps")
		return nil, domain.NewAnalysisError("gap", domain.ErrNoPapers)
	}

	methodCounts := make(map[string]int, len(methodologyTaxonomy))
	areaCounts := make(map[string]int, len(researchAreaTaxonomy))
	dataCounts := make(map[string]int, len(dataTypeTaxonomy))

	for _, paper := range papers {
		content := paper.Content()

		for _, category := range researchAreaTaxonomy {
			if containsAny(content, category.keywords) {
				areaCounts[category.label]++
			}
		}
		for _, category := range methodologyTaxonomy {
			if containsAny(content, category.keywords) {
				methodCounts[category.label]++
			}
		}
		if label, ok := classifyDataType(content); ok {
			dataCounts[label]++
		}
	}

	total := len(papers)
	gaps := &ResearchGaps{
		MethodologyGaps:  collectGaps(methodologyTaxonomy, methodCounts, total, methodologyGapThreshold),
		ResearchAreaGaps: collectGaps(researchAreaTaxonomy, areaCounts, total, researchAreaGapThreshold),
		DataTypeGaps:     collectGaps(dataTypeTaxonomy, dataCounts, total, dataTypeGapThreshold),
	}

	if a.generator != nil {
		gaps.AIAnalysis = a.generateGapAnalysis(ctx, total, gaps)
	}

	gaps.Summary = GapSummary{
		TotalPapersAnalyzed:   total,
		MethodologyGapsFound:  len(gaps.MethodologyGaps),
		ResearchAreaGapsFound: len(gaps.ResearchAreaGaps),
		DataTypeGapsFound:     len(gaps.DataTypeGaps),
		AnalysisTimestamp:     a.now().Format(time.RFC3339),
	}

	a.recordRun("gaps", start)
	a.logger.Debug().
		Int("papers", total).
		Int("methodology_gaps", len(gaps.MethodologyGaps)).
		Int("area_gaps", len(gaps.ResearchAreaGaps)).
		Msg("gap detection complete")

	return gaps, nil
}

// collectGaps walks the taxonomy in definition order and reports every
// category whose coverage is below the threshold, zero-coverage included.
func collectGaps(taxonomy []taxonomyCategory, counts map[string]int, total int, threshold float64) []GapEntry {
	gaps := make([]GapEntry, 0, len(taxonomy))
	for _, category := range taxonomy {
		count := counts[category.label]
		coverage := float64(count) / float64(total) * 100
		if coverage < threshold {
			gaps = append(gaps, GapEntry{
				Category:        titleLabel(category.label),
				CoveragePercent: coverage,
				PaperCount:      count,
			})
		}
	}
	return gaps
}

// classifyDataType assigns a paper to its first matching data type. Papers
// that never mention data at all stay unclassified.
func classifyDataType(content string) (string, bool) {
	if !strings.Contains(content, "dataset") && !strings.Contains(content, "data") {
		return "", false
	}
	for _, category := range dataTypeTaxonomy {
		if category.keywords == nil || containsAny(content, category.keywords) {
			return category.label, true
		}
	}
	return "", false
}

func containsAny(content string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}

// titleLabel turns a snake_case category key into a display label, e.g.
// "natural_language_processing" becomes "Natural Language Processing".
func titleLabel(label string) string {
	words := strings.Split(label, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// generateGapAnalysis asks the language model to comment on the detected
// gaps. Failures degrade to an inline error message.
func (a *Analyzer) generateGapAnalysis(ctx context.Context, totalPapers int, gaps *ResearchGaps) string {
	summary := fmt.Sprintf(`Research Gap Analysis Summary:
- Total Papers Analyzed: %d
- Methodology Gaps Found: %d
- Research Area Gaps Found: %d
- Data Type Gaps Found: %d

Top Methodology Gaps:
%s

Top Research Area Gaps:
%s`,
		totalPapers,
		len(gaps.MethodologyGaps),
		len(gaps.ResearchAreaGaps),
		len(gaps.DataTypeGaps),
		joinGapLabels(gaps.MethodologyGaps, 5),
		joinGapLabels(gaps.ResearchAreaGaps, 5),
	)

	prompt := fmt.Sprintf(`Based on this research gap analysis, provide insights on:

%s

Please provide:
1. **Key Research Gaps**: Most significant gaps and why they matter
2. **Opportunities**: Potential research opportunities in underexplored areas
3. **Recommendations**: Specific recommendations for future research
4. **Priority Areas**: Which gaps should be prioritized and why

Format as a structured analysis.`, summary)

	response, err := a.generator.Generate(ctx, prompt, 1500)
	if err != nil {
		return fmt.Sprintf("Error: AI gap analysis failed: %v", err)
	}
	return response
}

func joinGapLabels(gaps []GapEntry, n int) string {
	labels := make([]string, 0, n)
	for _, gap := range gaps {
		labels = append(labels, gap.Category)
		if len(labels) == n {
			break
		}
	}
	return strings.Join(labels, ", ")
}
