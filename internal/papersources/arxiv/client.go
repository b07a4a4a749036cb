package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "http://export.arxiv.org/api"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search request.
	DefaultMaxResults = 10

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RequestInterval is the minimum gap between requests. arXiv asks
	// clients for a 3 second gap between calls.
	RequestInterval time.Duration

	// MaxResults is the maximum results to return per search request.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestInterval == 0 {
		c.RequestInterval = papersources.ArXivRequestInterval
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:         cfg.Timeout,
		RequestInterval: cfg.RequestInterval,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries arXiv for papers matching the given parameters, sorted by
// relevance (descending).
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]*domain.Paper, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	feed, err := c.fetchFeed(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if len(papers) >= maxResults {
			break
		}
		if paper := entryToPaper(&feed.Entries[i]); paper != nil {
			papers = append(papers, paper)
		}
	}

	return papers, nil
}

// GetByID retrieves a specific paper by its arXiv ID (with or without a
// version suffix).
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"
	query := url.Values{}
	query.Set("id_list", id)
	baseURL.RawQuery = query.Encode()

	feed, err := c.fetchFeed(ctx, baseURL.String())
	if err != nil {
		return nil, err
	}

	if len(feed.Entries) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}

	paper := entryToPaper(&feed.Entries[0])
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}

	return paper, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// fetchFeed performs a GET request and decodes the Atom feed response.
func (c *Client) fetchFeed(ctx context.Context, requestURL string) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
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

	// Parse the Atom XML response (limit body to 10MB).
	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &feed, nil
}

// buildSearchURL constructs the arXiv search API URL. The query text is used
// verbatim as the search expression; a category filter is ANDed in front of
// it when set, so "cat:cs.AI AND transformers" restricts by subject area.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	searchQuery := params.Query
	if params.Category != "" {
		if searchQuery == "" {
			searchQuery = "cat:" + params.Category
		} else {
			searchQuery = "cat:" + params.Category + " AND " + searchQuery
		}
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("search_query", searchQuery)
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("sortBy", "relevance")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// entryToPaper converts an arXiv Atom entry to a domain Paper.
func entryToPaper(entry *Entry) *domain.Paper {
	if entry == nil {
		return nil
	}

	// The arXiv ID is the last path segment of the entry URL, version
	// suffix included: "http://arxiv.org/abs/2301.12345v1" -> "2301.12345v1".
	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	var publishedDate string
	var year int
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			publishedDate = t.Format("2006-01-02")
			year = t.Year()
		}
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	// arXiv wraps titles and abstracts with leading whitespace and newlines.
	title := normalizeWhitespace(entry.Title)
	abstract := normalizeWhitespace(entry.Summary)

	pdfURL := ""
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			pdfURL = link.Href
			break
		}
	}
	if pdfURL == "" {
		pdfURL = "http://arxiv.org/pdf/" + arxivID
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			categories = append(categories, cat.Term)
		}
	}

	return &domain.Paper{
		Title:         title,
		Authors:       authors,
		Abstract:      abstract,
		PublishedDate: publishedDate,
		Year:          year,
		URL:           entry.ID,
		PDFURL:        pdfURL,
		Source:        domain.SourceTypeArXiv,
		DOI:           strings.TrimSpace(entry.DOI),
		ArxivID:       arxivID,
		Categories:    categories,
		Journal:       normalizeWhitespace(entry.JournalRef),
	}
}

// extractArXivID returns everything after the final "/" of the entry URL,
// keeping the version suffix.
func extractArXivID(entryURL string) string {
	entryURL = strings.TrimRight(strings.TrimSpace(entryURL), "/")
	if entryURL == "" {
		return ""
	}
	if idx := strings.LastIndex(entryURL, "/"); idx >= 0 {
		return entryURL[idx+1:]
	}
	return entryURL
}

// normalizeWhitespace trims and collapses runs of whitespace into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
