package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/researchmate/research-service/internal/domain"
)

// reportVersion is stamped into report metadata.
const reportVersion = "2.0"

// KeywordTrend is one keyword's count change between the latest two years.
type KeywordTrend struct {
	Keyword      string  `json:"keyword"`
	TrendPercent float64 `json:"trend_percent"`
}

// KeywordAnalysis tracks keyword frequency per year and the fastest-moving
// keywords between the latest two years.
type KeywordAnalysis struct {
	KeywordEvolution map[int]map[string]int `json:"keyword_evolution"`
	TrendingKeywords []KeywordTrend         `json:"trending_keywords"`
	Error            string                 `json:"error,omitempty"`
}

// EmergingTopicsReport lists topics present in recent papers but absent from
// older ones.
type EmergingTopicsReport struct {
	Topics            []string `json:"emerging_topics"`
	RecentPapersCount int      `json:"recent_papers_count"`
	OlderPapersCount  int      `json:"older_papers_count"`
	Error             string   `json:"error,omitempty"`
}

// ReportMetadata describes a report run.
type ReportMetadata struct {
	PapersAnalyzed int    `json:"papers_analyzed"`
	AnalysisDate   string `json:"analysis_date"`
	ReportVersion  string `json:"report_version"`
}

// TrendReport is the composite analysis report. Each section carries its own
// error field; a failed sub-analysis never aborts the report.
type TrendReport struct {
	ExecutiveSummary string                `json:"executive_summary"`
	TemporalTrends   *TemporalTrends       `json:"temporal_trends"`
	ResearchGaps     *ResearchGaps         `json:"research_gaps"`
	KeywordAnalysis  *KeywordAnalysis      `json:"keyword_analysis"`
	EmergingTopics   *EmergingTopicsReport `json:"emerging_topics"`
	Metadata         ReportMetadata        `json:"report_metadata"`
}

// GenerateTrendReport runs every analysis over the collection and assembles
// the composite report. It fails only on empty input.
func (a *Analyzer) GenerateTrendReport(ctx context.Context, papers []*domain.Paper) (*TrendReport, error) {
	start := time.Now()

	if len(papers) == 0 {
		a.recordFailure("report")
		return nil, domain.NewAnalysisError("trend report", domain.ErrNoPapers)
	}

	report := &TrendReport{
		Metadata: ReportMetadata{
			PapersAnalyzed: len(papers),
			AnalysisDate:   a.now().Format(time.RFC3339),
			ReportVersion:  reportVersion,
		},
	}

	temporal, err := a.AnalyzeTemporalTrends(papers)
	if err != nil {
		temporal = &TemporalTrends{Error: err.Error()}
	}
	report.TemporalTrends = temporal

	gaps, err := a.DetectResearchGaps(ctx, papers)
	if err != nil {
		gaps = &ResearchGaps{Error: err.Error()}
	}
	report.ResearchGaps = gaps

	report.KeywordAnalysis = analyzeKeywordTrends(papers)
	report.EmergingTopics = a.detectEmergingTopics(papers)
	report.ExecutiveSummary = a.generateExecutiveSummary(ctx, len(papers), temporal, gaps)

	a.recordRun("report", start)
	a.logger.Info().
		Int("papers", len(papers)).
		Msg("trend report generated")

	return report, nil
}

// analyzeKeywordTrends counts each paper's top-10 keywords per year, then
// reports the ten keywords with the largest percentage change between the
// latest two years. Keywords absent from the earlier year are excluded since
// their change is unbounded.
func analyzeKeywordTrends(papers []*domain.Paper) *KeywordAnalysis {
	byYear := make(map[int]map[string]int)

	for _, paper := range papers {
		year := paperYear(paper)
		if year == 0 {
			continue
		}

		counts := byYear[year]
		if counts == nil {
			counts = make(map[string]int)
			byYear[year] = counts
		}
		for _, keyword := range topKeywords(ExtractKeywords(paper.Content()), 10) {
			counts[keyword]++
		}
	}

	analysis := &KeywordAnalysis{
		KeywordEvolution: byYear,
		TrendingKeywords: []KeywordTrend{},
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)
	if len(years) < 2 {
		return analysis
	}

	latest := byYear[years[len(years)-1]]
	previous := byYear[years[len(years)-2]]

	trending := make([]KeywordTrend, 0, len(previous))
	for keyword, previousCount := range previous {
		if previousCount == 0 {
			continue
		}
		change := float64(latest[keyword]-previousCount) / float64(previousCount) * 100
		trending = append(trending, KeywordTrend{Keyword: keyword, TrendPercent: change})
	}

	sort.Slice(trending, func(i, j int) bool {
		if trending[i].TrendPercent != trending[j].TrendPercent {
			return trending[i].TrendPercent > trending[j].TrendPercent
		}
		return trending[i].Keyword < trending[j].Keyword
	})
	if len(trending) > 10 {
		trending = trending[:10]
	}
	analysis.TrendingKeywords = trending

	return analysis
}

// detectEmergingTopics splits the collection at two calendar years before
// now and reports the top-5-per-paper topics of recent papers that never
// appear in the older half, capped at 15 in first-seen order.
func (a *Analyzer) detectEmergingTopics(papers []*domain.Paper) *EmergingTopicsReport {
	cutoff := a.now().Year() - 2

	var recentPapers, olderPapers []*domain.Paper
	for _, paper := range papers {
		year := paperYear(paper)
		if year == 0 {
			continue
		}
		if year >= cutoff {
			recentPapers = append(recentPapers, paper)
		} else {
			olderPapers = append(olderPapers, paper)
		}
	}

	olderTopics := make(map[string]struct{})
	for _, paper := range olderPapers {
		for _, topic := range topKeywords(ExtractKeywords(paper.Content()), 5) {
			olderTopics[topic] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	emerging := make([]string, 0, 15)
	for _, paper := range recentPapers {
		for _, topic := range topKeywords(ExtractKeywords(paper.Content()), 5) {
			if _, dup := seen[topic]; dup {
				continue
			}
			seen[topic] = struct{}{}
			if _, old := olderTopics[topic]; old {
				continue
			}
			if len(emerging) < 15 {
				emerging = append(emerging, topic)
			}
		}
	}

	return &EmergingTopicsReport{
		Topics:            emerging,
		RecentPapersCount: len(recentPapers),
		OlderPapersCount:  len(olderPapers),
	}
}

// generateExecutiveSummary asks the language model for a three-paragraph
// summary of the analysis. Without a model a placeholder is returned, and a
// model failure degrades to an "Error:" prefixed message.
func (a *Analyzer) generateExecutiveSummary(ctx context.Context, totalPapers int, temporal *TemporalTrends, gaps *ResearchGaps) string {
	if a.generator == nil {
		return "Executive summary not available: no language model configured"
	}

	direction := "unknown"
	growthRate := 0.0
	if temporal.GrowthAnalysis != nil {
		direction = temporal.GrowthAnalysis.TrendDirection
		growthRate = temporal.GrowthAnalysis.GrowthRatePercent
	}

	prompt := fmt.Sprintf(`Generate an executive summary for this research trend analysis:

Papers Analyzed: %d
Publication Growth: %s (%.1f%%)
Research Gaps Found: %d methodology gaps, %d area gaps

Temporal Analysis:
- Year Range: %s
- Peak Year: %d
- Average Papers/Year: %.1f

Provide a 3-paragraph executive summary covering:
1. Overall research landscape and trends
2. Key findings and patterns
3. Implications and future directions`,
		totalPapers,
		direction, growthRate,
		gaps.Summary.MethodologyGapsFound, gaps.Summary.ResearchAreaGapsFound,
		temporal.TemporalAnalysis.YearRange,
		temporal.TemporalAnalysis.PeakYear,
		temporal.TemporalAnalysis.AveragePerYear,
	)

	summary, err := a.generator.Generate(ctx, prompt, 1000)
	if err != nil {
		return fmt.Sprintf("Error: executive summary generation failed: %v", err)
	}
	return summary
}
