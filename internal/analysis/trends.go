package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/researchmate/research-service/internal/domain"
)

// Publication years outside this window are treated as data errors and
// excluded from temporal analysis.
const (
	minAnalysisYear = 1990
	maxAnalysisYear = 2030
)

// Growth-rate classification boundaries, in percent.
const (
	growingThreshold   = 5.0
	decliningThreshold = -5.0
)

// GrowthAnalysis compares recent publication volume against earlier years.
type GrowthAnalysis struct {
	RecentAverage     float64 `json:"recent_average"`
	EarlierAverage    float64 `json:"earlier_average"`
	GrowthRatePercent float64 `json:"growth_rate_percent"`
	TrendDirection    string  `json:"trend_direction"`
}

// TopicShift lists topics that appeared in one year's keyword set but not
// the adjacent year's. Count is the full difference; Topics is capped at 10
// in first-seen extraction order.
type TopicShift struct {
	Topics []string `json:"topics"`
	Count  int      `json:"count"`
}

// TemporalSummary aggregates the per-year publication counts.
type TemporalSummary struct {
	TotalYears     int     `json:"total_years"`
	YearRange      string  `json:"year_range"`
	PeakYear       int     `json:"peak_year,omitempty"`
	TotalPapers    int     `json:"total_papers"`
	AveragePerYear float64 `json:"average_per_year"`
}

// TemporalTrends is the result of AnalyzeTemporalTrends. Growth and topic
// sections are nil when fewer than two distinct years survive the filter.
type TemporalTrends struct {
	PublicationTrend map[int]int            `json:"publication_trend"`
	KeywordEvolution map[int]map[string]int `json:"keyword_evolution"`
	TemporalAnalysis TemporalSummary        `json:"temporal_analysis"`
	GrowthAnalysis   *GrowthAnalysis        `json:"growth_analysis,omitempty"`
	EmergingTopics   *TopicShift            `json:"emerging_topics,omitempty"`
	DecliningTopics  *TopicShift            `json:"declining_topics,omitempty"`
	Error            string                 `json:"error,omitempty"`
}

// AnalyzeTemporalTrends buckets papers by publication year, tracks keyword
// frequency per year, and derives growth and emerging/declining topic
// sections. It fails only on empty input; papers without a usable year are
// skipped individually.
func (a *Analyzer) AnalyzeTemporalTrends(papers []*domain.Paper) (*TemporalTrends, error) {
	start := time.Now()

	if len(papers) == 0 {
		a.recordFailure("trends")
		return nil, domain.NewAnalysisError("temporal trend", domain.ErrNoPapers)
	}

	yearCounts := make(map[int]int)
	evolution := make(map[int]map[string]int)
	// First-seen keyword order per year, needed for deterministic topic
	// shift truncation.
	keywordOrder := make(map[int][]string)

	for _, paper := range papers {
		year := paperYear(paper)
		if year < minAnalysisYear || year > maxAnalysisYear {
			continue
		}
		yearCounts[year]++

		counts := evolution[year]
		if counts == nil {
			counts = make(map[string]int)
			evolution[year] = counts
		}
		for _, keyword := range ExtractKeywords(paper.Content()) {
			if _, seen := counts[keyword]; !seen {
				keywordOrder[year] = append(keywordOrder[year], keyword)
			}
			counts[keyword]++
		}
	}

	years := sortedYears(yearCounts)

	trends := &TemporalTrends{
		PublicationTrend: yearCounts,
		KeywordEvolution: evolution,
		TemporalAnalysis: summarizeYears(years, yearCounts),
	}

	if len(years) >= 2 {
		trends.GrowthAnalysis = analyzeGrowth(years, yearCounts)

		latest := years[len(years)-1]
		previous := years[len(years)-2]
		trends.EmergingTopics = topicShift(keywordOrder[latest], evolution[previous])
		trends.DecliningTopics = topicShift(keywordOrder[previous], evolution[latest])
	}

	a.recordRun("trends", start)
	a.logger.Debug().
		Int("papers", len(papers)).
		Int("years", len(years)).
		Msg("temporal trend analysis complete")

	return trends, nil
}

// analyzeGrowth compares the mean count of the latest up-to-3 years against
// the mean of the earlier years. With three or fewer years the "earlier"
// window is everything but the latest year.
func analyzeGrowth(years []int, counts map[int]int) *GrowthAnalysis {
	recent := years
	if len(years) > 3 {
		recent = years[len(years)-3:]
	}

	var earlier []int
	if len(years) > 3 {
		earlier = years[:len(years)-3]
	} else {
		earlier = years[:len(years)-1]
	}

	recentAvg := meanCount(recent, counts)
	earlierAvg := meanCount(earlier, counts)

	var growthRate float64
	if earlierAvg > 0 {
		growthRate = (recentAvg - earlierAvg) / earlierAvg * 100
	}

	direction := "stable"
	switch {
	case growthRate > growingThreshold:
		direction = "growing"
	case growthRate < decliningThreshold:
		direction = "declining"
	}

	return &GrowthAnalysis{
		RecentAverage:     recentAvg,
		EarlierAverage:    earlierAvg,
		GrowthRatePercent: growthRate,
		TrendDirection:    direction,
	}
}

// topicShift returns the keywords present in the ordered set but absent from
// the other year's table, capped at 10 with the full count preserved.
func topicShift(ordered []string, other map[string]int) *TopicShift {
	diff := make([]string, 0, len(ordered))
	for _, keyword := range ordered {
		if _, ok := other[keyword]; !ok {
			diff = append(diff, keyword)
		}
	}

	shift := &TopicShift{Topics: diff, Count: len(diff)}
	if len(shift.Topics) > 10 {
		shift.Topics = shift.Topics[:10]
	}
	return shift
}

func summarizeYears(years []int, counts map[int]int) TemporalSummary {
	summary := TemporalSummary{
		TotalYears: len(years),
		YearRange:  "N/A",
	}
	if len(years) == 0 {
		return summary
	}

	summary.YearRange = fmt.Sprintf("%d-%d", years[0], years[len(years)-1])

	total := 0
	peakYear, peakCount := 0, 0
	for _, year := range years {
		total += counts[year]
		if counts[year] > peakCount {
			peakYear, peakCount = year, counts[year]
		}
	}

	summary.PeakYear = peakYear
	summary.TotalPapers = total
	summary.AveragePerYear = float64(total) / float64(len(years))
	return summary
}

func meanCount(years []int, counts map[int]int) float64 {
	if len(years) == 0 {
		return 0
	}
	total := 0
	for _, year := range years {
		total += counts[year]
	}
	return float64(total) / float64(len(years))
}

func sortedYears(counts map[int]int) []int {
	years := make([]int, 0, len(counts))
	for year := range counts {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// paperYear resolves a paper's publication year, falling back to the leading
// year of the ISO date when the Year field is unset.
func paperYear(paper *domain.Paper) int {
	if paper.Year != 0 {
		return paper.Year
	}
	if len(paper.PublishedDate) >= 4 {
		if year, err := strconv.Atoi(paper.PublishedDate[:4]); err == nil {
			return year
		}
	}
	return 0
}
