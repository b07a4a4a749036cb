package pubmed

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
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 10

	// articleBaseURL is the public landing page prefix for PubMed articles.
	articleBaseURL = "https://pubmed.ncbi.nlm.nih.gov/"

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	// Optional but recommended for production use.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RequestInterval is the minimum gap between requests. NCBI allows
	// about 3 requests per second without an API key.
	RequestInterval time.Duration

	// MaxResults is the default maximum results per search.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestInterval == 0 {
		c.RequestInterval = papersources.PubMedRequestInterval
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements PaperSource.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
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

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries PubMed for papers matching the given parameters.
// It performs a two-step search:
//  1. esearch.fcgi retrieves PMIDs matching the query
//  2. efetch.fcgi retrieves full article metadata for those PMIDs
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]*domain.Paper, error) {
	searchResult, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	// Phrase-not-found is an empty result, not an error.
	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		return []*domain.Paper{}, nil
	}

	if len(searchResult.IDList.IDs) == 0 {
		return []*domain.Paper{}, nil
	}

	articles, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	papers := make([]*domain.Paper, 0, len(articles.Articles))
	for _, article := range articles.Articles {
		if len(papers) >= maxResults {
			break
		}
		papers = append(papers, articleToPaper(article))
	}

	return papers, nil
}

// GetByID retrieves a specific paper by its PubMed ID (PMID).
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	articles, err := c.efetch(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	if len(articles.Articles) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}

	return articleToPaper(articles.Articles[0]), nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// esearch performs a search query and returns matching PMIDs.
func (c *Client) esearch(ctx context.Context, params papersources.SearchParams) (*ESearchResult, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("term", params.Query)
	q.Set("retmode", "xml")
	q.Set("retmax", strconv.Itoa(maxResults))
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	var result ESearchResult
	if err := c.fetchXML(ctx, u.String(), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// efetch retrieves full article metadata for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	var result PubmedArticleSet
	if err := c.fetchXML(ctx, u.String(), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// fetchXML performs a GET request and unmarshals the XML response into out.
func (c *Client) fetchXML(ctx context.Context, requestURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// articleToPaper converts a PubmedArticle to a domain.Paper.
func articleToPaper(article PubmedArticle) *domain.Paper {
	citation := article.MedlineCitation
	pmid := citation.PMID.Value

	journal := citation.Article.Journal.Title
	if journal == "" {
		journal = citation.Article.Journal.ISOAbbreviation
	}

	publishedDate, year := extractPublicationDate(citation.Article)

	return &domain.Paper{
		Title:         citation.Article.ArticleTitle,
		Authors:       extractAuthors(citation.Article.AuthorList),
		Abstract:      extractAbstract(citation.Article.Abstract),
		PublishedDate: publishedDate,
		Year:          year,
		URL:           articleBaseURL + pmid + "/",
		Source:        domain.SourceTypePubMed,
		DOI:           extractDOI(citation.Article, article.PubmedData),
		PMID:          pmid,
		Journal:       journal,
	}
}

// extractDOI extracts the DOI from article metadata. ELocationID is checked
// first, then the article ID list.
func extractDOI(article Article, pubmedData PubmedData) string {
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}

	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return aid.Value
		}
	}

	return ""
}

// extractPublicationDate renders the journal issue PubDate as an ISO date
// string plus a year. A missing or unparseable month or day defaults to 01.
func extractPublicationDate(article Article) (string, int) {
	pubDate := article.Journal.JournalIssue.PubDate

	// MedlineDate formats like "2020 Jan-Feb" carry the year up front.
	if pubDate.Year == "" && pubDate.MedlineDate != "" {
		if year := extractYearFromMedlineDate(pubDate.MedlineDate); year > 0 {
			return fmt.Sprintf("%04d-01-01", year), year
		}
		return "", 0
	}

	if pubDate.Year == "" {
		return "", 0
	}

	year, err := strconv.Atoi(pubDate.Year)
	if err != nil {
		return "", 0
	}

	month := parseMonth(pubDate.Month)
	day := 1
	if pubDate.Day != "" {
		if d, err := strconv.Atoi(pubDate.Day); err == nil && d >= 1 && d <= 31 {
			day = d
		}
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), year
}

// monthNames maps lowercase month names (abbreviated and full) to month numbers.
var monthNames = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// parseMonth parses a month string (numeric or name) into a month number,
// defaulting to January for anything unrecognized.
func parseMonth(month string) int {
	if month == "" {
		return 1
	}

	if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
		return m
	}

	if m, ok := monthNames[strings.ToLower(month)]; ok {
		return m
	}

	return 1
}

// extractYearFromMedlineDate extracts the year from a MedlineDate string
// such as "2020 Jan-Feb", "2021 Spring", or "2019-2020".
func extractYearFromMedlineDate(medlineDate string) int {
	parts := strings.Fields(medlineDate)
	if len(parts) == 0 {
		return 0
	}

	yearStr := strings.Split(parts[0], "-")[0]
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0
	}
	return year
}

// extractAbstract concatenates multiple abstract sections into a single string.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	if len(abstract.AbstractTexts) == 1 && abstract.AbstractTexts[0].Label == "" {
		return strings.TrimSpace(abstract.AbstractTexts[0].Value)
	}

	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// extractAuthors converts PubMed authors to display names.
func extractAuthors(authorList *AuthorList) []string {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]string, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		var name string
		if a.CollectiveName != "" {
			name = a.CollectiveName
		} else {
			nameParts := make([]string, 0, 2)
			if a.ForeName != "" {
				nameParts = append(nameParts, a.ForeName)
			}
			if a.LastName != "" {
				nameParts = append(nameParts, a.LastName)
			}
			name = strings.Join(nameParts, " ")
		}

		if name != "" {
			authors = append(authors, name)
		}
	}

	return authors
}
