package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/researchmate/research-service/internal/domain"
)

// Prompt input limits, in characters, to stay inside the model's context.
const (
	maxSummaryContent  = 8000
	maxQuestionContext = 4000
	maxReviewPapers    = 10
)

// PaperSummary is a structured paper summary parsed from the model's reply.
type PaperSummary struct {
	Summary       string `json:"summary"`
	Contributions string `json:"contributions"`
	Methodology   string `json:"methodology"`
	Findings      string `json:"findings"`
	Limitations   string `json:"limitations"`
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
}

// PaperClassification is the model's categorization of a paper. When the
// model does not return valid JSON, Raw carries its reply verbatim.
type PaperClassification struct {
	PrimaryField    string   `json:"primary_field,omitempty"`
	Subfields       []string `json:"subfields,omitempty"`
	Methodology     string   `json:"methodology,omitempty"`
	ApplicationArea string   `json:"application_area,omitempty"`
	NoveltyScore    int      `json:"novelty_score,omitempty"`
	ImpactPotential string   `json:"impact_potential,omitempty"`
	Raw             string   `json:"raw,omitempty"`
}

// SummarizePaper asks the model for a sectioned summary of the paper and
// parses the reply into its sections.
func (c *Client) SummarizePaper(ctx context.Context, title, abstract, content string) (*PaperSummary, error) {
	if len(content) > maxSummaryContent {
		content = content[:maxSummaryContent] + "..."
	}

	prompt := fmt.Sprintf(`Analyze this research paper and provide a structured summary:

Title: %s
Abstract: %s
Content: %s

Provide a comprehensive summary with these sections:
1. **MAIN SUMMARY** (2-3 sentences)
2. **KEY CONTRIBUTIONS** (3-5 bullet points)
3. **METHODOLOGY** (brief description)
4. **KEY FINDINGS** (3-5 bullet points)
5. **LIMITATIONS** (if mentioned)

Format your response clearly with section headers.`, title, abstract, content)

	response, err := c.generate(ctx, "summarize", prompt, 0)
	if err != nil {
		return nil, err
	}

	summary := parseSummaryResponse(response)
	summary.Title = title
	summary.Abstract = abstract
	return summary, nil
}

// parseSummaryResponse splits the model's sectioned reply into summary
// fields. Section headers switch the target field; header-looking lines
// themselves are not captured.
func parseSummaryResponse(response string) *PaperSummary {
	summary := &PaperSummary{}
	sections := map[string]*string{
		"summary":       &summary.Summary,
		"contributions": &summary.Contributions,
		"methodology":   &summary.Methodology,
		"findings":      &summary.Findings,
		"limitations":   &summary.Limitations,
	}

	current := "summary"
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if section, isHeader := classifySummaryLine(line); isHeader {
			current = section
			continue
		}

		if hasAnyPrefix(line, "1.", "2.", "3.", "4.", "5.", "**", "#") {
			continue
		}
		*sections[current] += line + " "
	}

	summary.Summary = strings.TrimSpace(summary.Summary)
	summary.Contributions = strings.TrimSpace(summary.Contributions)
	summary.Methodology = strings.TrimSpace(summary.Methodology)
	summary.Findings = strings.TrimSpace(summary.Findings)
	summary.Limitations = strings.TrimSpace(summary.Limitations)
	return summary
}

func classifySummaryLine(line string) (string, bool) {
	lower := strings.ToLower(line)
	switch {
	case containsAnyOf(lower, "main summary", "1.", "**main"):
		return "summary", true
	case containsAnyOf(lower, "key contributions", "2.", "**key contrib"):
		return "contributions", true
	case containsAnyOf(lower, "methodology", "3.", "**method"):
		return "methodology", true
	case containsAnyOf(lower, "key findings", "findings", "4.", "**key find"):
		return "findings", true
	case containsAnyOf(lower, "limitations", "5.", "**limit"):
		return "limitations", true
	}
	return "", false
}

func containsAnyOf(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// ClassifyPaper asks the model to categorize the paper. The reply is parsed
// as JSON when possible, otherwise returned verbatim in Raw.
func (c *Client) ClassifyPaper(ctx context.Context, title, abstract string) (*PaperClassification, error) {
	prompt := fmt.Sprintf(`Classify this research paper:

Title: %s
Abstract: %s

Provide classification in JSON format:
{
    "primary_field": "field name",
    "subfields": ["subfield1", "subfield2"],
    "methodology": "methodology type",
    "application_area": "application area",
    "novelty_score": 1-10,
    "impact_potential": "high/medium/low"
}`, title, abstract)

	response, err := c.generate(ctx, "classify", prompt, 500)
	if err != nil {
		return nil, err
	}

	var classification PaperClassification
	if err := json.Unmarshal([]byte(extractJSONObject(response)), &classification); err != nil {
		return &PaperClassification{Raw: response}, nil
	}
	return &classification, nil
}

// extractJSONObject trims any prose the model wrapped around a JSON object.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// AnswerQuestion answers a research question, grounding the reply in the
// provided context when one is given.
func (c *Client) AnswerQuestion(ctx context.Context, question, contextText string) (string, error) {
	if len(contextText) > maxQuestionContext {
		contextText = contextText[:maxQuestionContext]
	}
	if contextText == "" {
		contextText = "No specific context provided"
	}

	prompt := fmt.Sprintf(`Answer this research question based on the provided context:

Question: %s

Context: %s

Provide a clear, informative answer based on the context and your knowledge.`, question, contextText)

	return c.generate(ctx, "answer", prompt, 1000)
}

// GenerateLiteratureReview writes a structured literature review of the
// papers, oriented around the research question. At most ten papers are
// included in the prompt.
func (c *Client) GenerateLiteratureReview(ctx context.Context, papers []*domain.Paper, researchQuestion string) (string, error) {
	included := papers
	if len(included) > maxReviewPapers {
		included = included[:maxReviewPapers]
	}

	var sb strings.Builder
	for _, paper := range included {
		fmt.Fprintf(&sb, "Title: %s\nAbstract: %s\n\n", paper.Title, paper.Abstract)
	}

	prompt := fmt.Sprintf(`Generate a comprehensive literature review for the research question: %q

Based on these papers:
%s
Provide a structured review with:
1. Introduction to the research area
2. Key themes and methodologies
3. Major findings and contributions
4. Research gaps and limitations
5. Future research directions
6. Conclusion

Keep it academic and well-structured.`, researchQuestion, sb.String())

	return c.generate(ctx, "review", prompt, 3000)
}
