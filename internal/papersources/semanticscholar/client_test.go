package semanticscholar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/papersources"
)

const searchResponseJSON = `{
	"total": 2,
	"offset": 0,
	"data": [
		{
			"paperId": "abc123",
			"externalIds": {"DOI": "10.1000/xyz", "ArXiv": "2105.00001"},
			"title": "Federated Learning at Scale",
			"abstract": "We study federated learning.",
			"year": 2021,
			"publicationDate": "2021-05-03",
			"url": "https://www.semanticscholar.org/paper/abc123",
			"venue": "ICML",
			"authors": [{"authorId": "1", "name": "Alice Smith"}, {"authorId": "2", "name": "Bob Jones"}],
			"citationCount": 412,
			"openAccessPdf": {"url": "https://example.org/paper.pdf", "status": "GREEN"}
		},
		{
			"paperId": "def456",
			"externalIds": {"PubMed": "33445566"},
			"title": "Clinical Applications of Deep Learning",
			"abstract": null,
			"year": 2020,
			"publicationDate": null,
			"url": null,
			"venue": "",
			"authors": [{"authorId": "3", "name": "Carol White"}],
			"citationCount": 7
		}
	]
}`

const emptyResponseJSON = `{"total": 0, "offset": 0, "data": []}`

func TestNewClient(t *testing.T) {
	t.Run("creates client with default config", func(t *testing.T) {
		client := New(Config{Enabled: true})

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, papersources.SemanticScholarRequestInterval, client.config.RequestInterval)
		assert.Equal(t, DefaultMaxResults, client.config.MaxResults)
		assert.True(t, client.IsEnabled())
	})

	t.Run("creates client with custom config", func(t *testing.T) {
		cfg := Config{
			BaseURL:         "https://custom.example.com",
			APIKey:          "secret",
			Timeout:         time.Minute,
			RequestInterval: time.Second,
			MaxResults:      25,
			Enabled:         true,
		}
		client := New(cfg)

		require.NotNil(t, client)
		assert.Equal(t, cfg.BaseURL, client.config.BaseURL)
		assert.Equal(t, cfg.APIKey, client.config.APIKey)
		assert.Equal(t, cfg.MaxResults, client.config.MaxResults)
	})
}

func TestClient_SourceType(t *testing.T) {
	client := New(Config{Enabled: true})
	assert.Equal(t, domain.SourceTypeSemanticScholar, client.SourceType())
}

func TestClient_Name(t *testing.T) {
	client := New(Config{Enabled: true})
	assert.Equal(t, "Semantic Scholar", client.Name())
}

func TestClient_Search(t *testing.T) {
	t.Run("successful search with results", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/paper/search", r.URL.Path)
			assert.Equal(t, "federated learning", r.URL.Query().Get("query"))
			assert.Equal(t, paperFields, r.URL.Query().Get("fields"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(searchResponseJSON))
		}))
		defer server.Close()

		client := createTestClient(server.URL)

		papers, err := client.Search(context.Background(), papersources.SearchParams{
			Query:      "federated learning",
			MaxResults: 10,
		})
		require.NoError(t, err)
		require.Len(t, papers, 2)

		paper1 := papers[0]
		assert.Equal(t, "Federated Learning at Scale", paper1.Title)
		assert.Equal(t, []string{"Alice Smith", "Bob Jones"}, paper1.Authors)
		assert.Equal(t, 2021, paper1.Year)
		assert.Equal(t, "2021-05-03", paper1.PublishedDate)
		assert.Equal(t, "10.1000/xyz", paper1.DOI)
		assert.Equal(t, "2105.00001", paper1.ArxivID)
		assert.Equal(t, 412, paper1.CitationCount)
		assert.Equal(t, "https://example.org/paper.pdf", paper1.PDFURL)
		assert.Equal(t, "ICML", paper1.Journal)
		assert.Equal(t, domain.SourceTypeSemanticScholar, paper1.Source)

		paper2 := papers[1]
		assert.Equal(t, "Clinical Applications of Deep Learning", paper2.Title)
		assert.Equal(t, "33445566", paper2.PMID)
		assert.Empty(t, paper2.Abstract)
		// A null URL falls back to the canonical paper page.
		assert.Equal(t, "https://www.semanticscholar.org/paper/def456", paper2.URL)
	})

	t.Run("truncates to max results", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(searchResponseJSON))
		}))
		defer server.Close()

		client := createTestClient(server.URL)

		papers, err := client.Search(context.Background(), papersources.SearchParams{
			Query:      "test",
			MaxResults: 1,
		})
		require.NoError(t, err)
		require.Len(t, papers, 1)
	})

	t.Run("sends API key header when configured", func(t *testing.T) {
		var receivedKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			receivedKey = r.Header.Get("x-api-key")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(emptyResponseJSON))
		}))
		defer server.Close()

		httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
			APIKey:       "test-key-123",
			APIKeyHeader: apiKeyHeader,
		})
		client := NewWithHTTPClient(Config{BaseURL: server.URL, Enabled: true}, httpClient)

		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "test"})
		require.NoError(t, err)
		assert.Equal(t, "test-key-123", receivedKey)
	})

	t.Run("retries on rate limit and succeeds", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(searchResponseJSON))
		}))
		defer server.Close()

		httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
			MaxRetries: 3,
			RetryDelay: time.Millisecond,
		})
		client := NewWithHTTPClient(Config{BaseURL: server.URL, Enabled: true}, httpClient)

		papers, err := client.Search(context.Background(), papersources.SearchParams{Query: "test"})
		require.NoError(t, err)
		assert.Len(t, papers, 2)
		assert.Equal(t, 2, attempts)
	})

	t.Run("returns error after retries exhausted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
			MaxRetries: 2,
			RetryDelay: time.Millisecond,
		})
		client := NewWithHTTPClient(Config{BaseURL: server.URL, Enabled: true}, httpClient)

		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "test"})
		require.Error(t, err)
	})

	t.Run("returns typed error on API failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "unsupported field"}`))
		}))
		defer server.Close()

		client := createTestClient(server.URL)

		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "test"})
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "unsupported field")
	})

	t.Run("returns empty result set", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(emptyResponseJSON))
		}))
		defer server.Close()

		client := createTestClient(server.URL)

		papers, err := client.Search(context.Background(), papersources.SearchParams{Query: "zzz"})
		require.NoError(t, err)
		assert.Empty(t, papers)
	})
}

func TestClient_GetByID(t *testing.T) {
	t.Run("successful get by DOI", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "/paper/DOI:10.1000")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"paperId": "abc123",
				"externalIds": {"DOI": "10.1000/xyz"},
				"title": "Federated Learning at Scale",
				"year": 2021,
				"authors": [{"name": "Alice Smith"}]
			}`))
		}))
		defer server.Close()

		client := createTestClient(server.URL)

		paper, err := client.GetByID(context.Background(), "DOI:10.1000/xyz")
		require.NoError(t, err)
		require.NotNil(t, paper)
		assert.Equal(t, "Federated Learning at Scale", paper.Title)
		assert.Equal(t, "10.1000/xyz", paper.DOI)
	})

	t.Run("get by ID not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := createTestClient(server.URL)

		_, err := client.GetByID(context.Background(), "DOI:10.9999/missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

// createTestClient creates a test client with throttling and retries disabled.
func createTestClient(baseURL string) *Client {
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		RequestInterval: 0,
		MaxRetries:      0,
	})

	return NewWithHTTPClient(Config{
		BaseURL: baseURL,
		Enabled: true,
	}, httpClient)
}
