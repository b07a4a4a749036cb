package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Crossref REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum number of results per search.
	DefaultMaxResults = 10

	// maxRows caps the rows parameter sent to the works endpoint. Crossref
	// serves small pages faster and politely-behaved clients keep requests
	// modest.
	maxRows = 20

	// sourceName is the human-readable name for this source.
	sourceName = "Crossref"
)

// jatsTagRegex strips JATS XML markup from Crossref abstracts.
var jatsTagRegex = regexp.MustCompile(`<[^>]+>`)

// Config contains configuration options for the Crossref client.
type Config struct {
	// BaseURL is the Crossref REST API base URL.
	BaseURL string

	// MailTo is the contact address advertised in the User-Agent so requests
	// land in Crossref's polite pool.
	MailTo string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RequestInterval is the minimum gap between requests.
	RequestInterval time.Duration

	// MaxResults is the maximum number of results to return per search.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.MailTo == "" {
		c.MailTo = "research@researchmate.dev"
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestInterval == 0 {
		c.RequestInterval = papersources.CrossrefRequestInterval
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for Crossref.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements papersources.PaperSource.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:         cfg.Timeout,
		RequestInterval: cfg.RequestInterval,
		UserAgent:       fmt.Sprintf("ResearchMate/2.0 (mailto:%s)", cfg.MailTo),
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries Crossref for works matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]*domain.Paper, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	rows := maxResults
	if rows > maxRows {
		rows = maxRows
	}

	searchURL := baseURL.JoinPath("works")
	q := searchURL.Query()
	q.Set("query", params.Query)
	q.Set("rows", strconv.Itoa(rows))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var worksResp WorksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&worksResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(worksResp.Message.Items))
	for _, work := range worksResp.Message.Items {
		if len(papers) >= maxResults {
			break
		}
		papers = append(papers, workToPaper(work))
	}

	return papers, nil
}

// GetByID resolves a DOI to its work record.
func (c *Client) GetByID(ctx context.Context, doi string) (*domain.Paper, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	workURL := baseURL.JoinPath("works", doi)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, workURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("paper", doi)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var workResp WorkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&workResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return workToPaper(workResp.Message), nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossref
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// workToPaper converts a Crossref work record to a domain paper.
func workToPaper(work Work) *domain.Paper {
	paper := &domain.Paper{
		Source:        domain.SourceTypeCrossref,
		DOI:           work.DOI,
		URL:           work.URL,
		CitationCount: work.IsReferencedByCount,
		Abstract:      cleanAbstract(work.Abstract),
	}

	if len(work.Title) > 0 {
		paper.Title = strings.TrimSpace(work.Title[0])
	}
	if len(work.ContainerTitle) > 0 {
		paper.Journal = work.ContainerTitle[0]
	}
	if paper.URL == "" && work.DOI != "" {
		paper.URL = "https://doi.org/" + work.DOI
	}

	authors := make([]string, 0, len(work.Author))
	for _, a := range work.Author {
		if name := authorName(a); name != "" {
			authors = append(authors, name)
		}
	}
	paper.Authors = authors

	paper.PublishedDate, paper.Year = formatDateParts(firstDate(work))

	return paper
}

// firstDate picks the most specific publication date the record carries.
func firstDate(work Work) *DateParts {
	for _, d := range []*DateParts{work.Published, work.PublishedPrint, work.PublishedOnline} {
		if d != nil && len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
			return d
		}
	}
	return nil
}

// formatDateParts renders Crossref date-parts as an ISO date string, filling
// in "01" for a missing month or day: [2021, 6] becomes "2021-06-01".
func formatDateParts(d *DateParts) (string, int) {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return "", 0
	}

	parts := d.DateParts[0]
	year := parts[0]
	month, day := 1, 1
	if len(parts) > 1 {
		month = parts[1]
	}
	if len(parts) > 2 {
		day = parts[2]
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), year
}

// authorName renders a Crossref contributor as a display name.
func authorName(a Author) string {
	if a.Name != "" {
		return strings.TrimSpace(a.Name)
	}
	return strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
}

// cleanAbstract strips JATS XML markup that Crossref abstracts are wrapped in.
func cleanAbstract(abstract string) string {
	if abstract == "" {
		return ""
	}
	stripped := jatsTagRegex.ReplaceAllString(abstract, " ")
	return strings.Join(strings.Fields(stripped), " ")
}
