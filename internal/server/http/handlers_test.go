package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmate/research-service/internal/aggregator"
	"github.com/researchmate/research-service/internal/analysis"
	"github.com/researchmate/research-service/internal/auth"
	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/llm"
	"github.com/researchmate/research-service/internal/pdf"
	"github.com/researchmate/research-service/internal/projects"
	"github.com/researchmate/research-service/internal/rag"
)

type fakeSearcher struct {
	papers   []*domain.Paper
	paper    *domain.Paper
	err      error
	lastOpts aggregator.SearchOptions
}

func (f *fakeSearcher) Search(_ context.Context, opts aggregator.SearchOptions) ([]*domain.Paper, error) {
	f.lastOpts = opts
	return f.papers, f.err
}

func (f *fakeSearcher) GetByID(_ context.Context, id string) (*domain.Paper, error) {
	if f.paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return f.paper, f.err
}

func (f *fakeSearcher) Trending(_ context.Context, category string, maxResults, daysBack int) ([]*domain.Paper, error) {
	if !aggregator.ValidCategory(category) {
		return nil, domain.ErrInvalidInput
	}
	return f.papers, f.err
}

type fakeAnalyzer struct {
	trends  *analysis.TemporalTrends
	gaps    *analysis.ResearchGaps
	network *analysis.NetworkSummary
	report  *analysis.TrendReport
	err     error
}

func (f *fakeAnalyzer) AnalyzeTemporalTrends([]*domain.Paper) (*analysis.TemporalTrends, error) {
	return f.trends, f.err
}

func (f *fakeAnalyzer) DetectResearchGaps(context.Context, []*domain.Paper) (*analysis.ResearchGaps, error) {
	return f.gaps, f.err
}

func (f *fakeAnalyzer) AnalyzeCollaborationNetwork([]*domain.Paper) (*analysis.NetworkSummary, error) {
	return f.network, f.err
}

func (f *fakeAnalyzer) GenerateTrendReport(context.Context, []*domain.Paper) (*analysis.TrendReport, error) {
	return f.report, f.err
}

type fakeAnswerer struct {
	answer *rag.Answer
	err    error
}

func (f *fakeAnswerer) AskQuestion(_ context.Context, question string) (*rag.Answer, error) {
	return f.answer, f.err
}

type fakePDFProcessor struct {
	result   *pdf.Result
	err      error
	lastName string
}

func (f *fakePDFProcessor) Process(_ context.Context, filename string, _ []byte) (*pdf.Result, error) {
	f.lastName = filename
	return f.result, f.err
}

func (f *fakePDFProcessor) ProcessURL(_ context.Context, url string) (*pdf.Result, error) {
	f.lastName = url
	return f.result, f.err
}

type fakeClassifier struct {
	classification *llm.PaperClassification
	err            error
}

func (f *fakeClassifier) ClassifyPaper(_ context.Context, _, _ string) (*llm.PaperClassification, error) {
	return f.classification, f.err
}

type serverDeps struct {
	searcher   *fakeSearcher
	analyzer   *fakeAnalyzer
	answerer   QuestionAnswerer
	classifier Classifier
	pdfProc    PDFProcessor
	auth       *auth.Manager
	projects   *projects.Manager
}

func newTestServer(t *testing.T, deps serverDeps) *Server {
	t.Helper()
	if deps.searcher == nil {
		deps.searcher = &fakeSearcher{}
	}
	if deps.analyzer == nil {
		deps.analyzer = &fakeAnalyzer{}
	}
	return NewServer(Config{Address: "127.0.0.1:0", MaxAnalysisPapers: 50},
		deps.searcher, deps.analyzer, deps.answerer, deps.classifier, deps.pdfProc, deps.auth, deps.projects, zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, serverDeps{})

	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)

	rec = doRequest(t, s, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchPapers(t *testing.T) {
	searcher := &fakeSearcher{papers: []*domain.Paper{
		{Title: "one", Source: domain.SourceTypeArXiv},
		{Title: "two", Source: domain.SourceTypeCrossref},
	}}
	s := newTestServer(t, serverDeps{searcher: searcher})

	t.Run("success", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/search?q=graph+learning&max_results=5&sort=date", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp searchResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "graph learning", resp.Query)
		assert.Equal(t, 2, resp.Count)

		assert.Equal(t, 5, searcher.lastOpts.MaxResults)
		assert.Equal(t, domain.SortByDate, searcher.lastOpts.SortBy)
	})

	t.Run("source filter parsed", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/search?q=x+y&sources=arxiv,pubmed", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypePubMed}, searcher.lastOpts.Sources)
	})

	t.Run("missing query", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/search", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "q is required")
	})

	t.Run("unknown source skipped", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/search?q=x&sources=scholar,arxiv", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []domain.SourceType{domain.SourceTypeArXiv}, searcher.lastOpts.Sources)
	})

	t.Run("all sources unknown returns empty result", func(t *testing.T) {
		searcher.lastOpts = aggregator.SearchOptions{}
		rec := doRequest(t, s, http.MethodGet, "/api/v1/search?q=x&sources=scholar,dblp", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp searchResponse
		decodeBody(t, rec, &resp)
		assert.Zero(t, resp.Count)
		// The searcher is never consulted when no requested source is known.
		assert.Empty(t, searcher.lastOpts.Query)
	})

	t.Run("unknown sort order", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/search?q=x&sort=citations", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("max results clamped", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/search?q=x&max_results=5000", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, maxSearchResults, searcher.lastOpts.MaxResults)
	})
}

func TestGetPaper(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s := newTestServer(t, serverDeps{searcher: &fakeSearcher{
			paper: &domain.Paper{Title: "found", ArxivID: "2301.12345"},
		}})

		rec := doRequest(t, s, http.MethodGet, "/api/v1/papers/2301.12345", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"found"`)
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestServer(t, serverDeps{})

		rec := doRequest(t, s, http.MethodGet, "/api/v1/papers/unknown-id", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListCategories(t *testing.T) {
	s := newTestServer(t, serverDeps{})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/categories", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp categoriesResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, len(aggregator.Categories), len(resp.Categories))
	assert.Equal(t, "cs.AI", resp.Categories[0].Code)
}

func TestTrendingPapers(t *testing.T) {
	s := newTestServer(t, serverDeps{searcher: &fakeSearcher{
		papers: []*domain.Paper{{Title: "fresh"}},
	}})

	t.Run("success", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/trending?category=cs.AI", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp trendingResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "cs.AI", resp.Category)
		assert.Equal(t, 30, resp.DaysBack)
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("missing category", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/trending", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown category", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/trending?category=cs.XX", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAnalysisEndpoints(t *testing.T) {
	papers := []*domain.Paper{{Title: "p1", Year: 2023}, {Title: "p2", Year: 2024}}

	t.Run("trends", func(t *testing.T) {
		s := newTestServer(t, serverDeps{
			searcher: &fakeSearcher{papers: papers},
			analyzer: &fakeAnalyzer{trends: &analysis.TemporalTrends{PublicationTrend: map[int]int{2023: 1, 2024: 1}}},
		})

		rec := doRequest(t, s, http.MethodGet, "/api/v1/analysis/trends?topic=graphs", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp trendsResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "graphs", resp.Topic)
		assert.Equal(t, 2, resp.PapersAnalyzed)
		require.NotNil(t, resp.Trends)
	})

	t.Run("gaps", func(t *testing.T) {
		s := newTestServer(t, serverDeps{
			searcher: &fakeSearcher{papers: papers},
			analyzer: &fakeAnalyzer{gaps: &analysis.ResearchGaps{}},
		})

		rec := doRequest(t, s, http.MethodGet, "/api/v1/analysis/gaps?topic=graphs", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("network", func(t *testing.T) {
		s := newTestServer(t, serverDeps{
			searcher: &fakeSearcher{papers: papers},
			analyzer: &fakeAnalyzer{network: &analysis.NetworkSummary{
				Metrics: analysis.NetworkMetrics{TotalAuthors: 3, TotalCollaborations: 2},
			}},
		})

		rec := doRequest(t, s, http.MethodGet, "/api/v1/analysis/network?topic=graphs", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp networkResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "graphs", resp.Topic)
		assert.Equal(t, 3, resp.Network.Metrics.TotalAuthors)
	})

	t.Run("report", func(t *testing.T) {
		s := newTestServer(t, serverDeps{
			searcher: &fakeSearcher{papers: papers},
			analyzer: &fakeAnalyzer{report: &analysis.TrendReport{}},
		})

		rec := doRequest(t, s, http.MethodGet, "/api/v1/analysis/report?topic=graphs", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing topic", func(t *testing.T) {
		s := newTestServer(t, serverDeps{})

		rec := doRequest(t, s, http.MethodGet, "/api/v1/analysis/trends", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no papers found", func(t *testing.T) {
		s := newTestServer(t, serverDeps{searcher: &fakeSearcher{}})

		rec := doRequest(t, s, http.MethodGet, "/api/v1/analysis/trends?topic=nothing", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAskQuestion(t *testing.T) {
	t.Run("answers", func(t *testing.T) {
		s := newTestServer(t, serverDeps{answerer: &fakeAnswerer{answer: &rag.Answer{
			Answer:   "42",
			Question: "meaning?",
		}}})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ask", askRequest{Question: "meaning?"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"42"`)
	})

	t.Run("empty question rejected", func(t *testing.T) {
		s := newTestServer(t, serverDeps{answerer: &fakeAnswerer{}})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ask", askRequest{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "question is required")
	})

	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, serverDeps{})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ask", askRequest{Question: "q"})

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestUploadPDF(t *testing.T) {
	multipartBody := func(t *testing.T, filename string) (*bytes.Buffer, string) {
		t.Helper()
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 test bytes"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())
		return &buf, writer.FormDataContentType()
	}

	t.Run("processes upload", func(t *testing.T) {
		proc := &fakePDFProcessor{result: &pdf.Result{Title: "Uploaded Paper", Pages: 3}}
		s := newTestServer(t, serverDeps{pdfProc: proc})

		body, contentType := multipartBody(t, "paper.pdf")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		s.Router().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Uploaded Paper")
		assert.Equal(t, "paper.pdf", proc.lastName)
	})

	t.Run("rejects non-pdf extension", func(t *testing.T) {
		s := newTestServer(t, serverDeps{pdfProc: &fakePDFProcessor{}})

		body, contentType := multipartBody(t, "notes.txt")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		s.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing file part", func(t *testing.T) {
		s := newTestServer(t, serverDeps{pdfProc: &fakePDFProcessor{}})

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()

		s.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestClassifyPaper(t *testing.T) {
	t.Run("classifies", func(t *testing.T) {
		s := newTestServer(t, serverDeps{classifier: &fakeClassifier{
			classification: &llm.PaperClassification{PrimaryField: "machine learning"},
		}})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/classify",
			classifyRequest{Title: "Attention Is All You Need", Abstract: "We propose the Transformer."})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "machine learning")
	})

	t.Run("requires title", func(t *testing.T) {
		s := newTestServer(t, serverDeps{classifier: &fakeClassifier{}})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/classify", classifyRequest{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, serverDeps{})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/classify", classifyRequest{Title: "t"})

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestIngestPDF(t *testing.T) {
	t.Run("processes remote pdf", func(t *testing.T) {
		proc := &fakePDFProcessor{result: &pdf.Result{Title: "Fetched Paper"}}
		s := newTestServer(t, serverDeps{pdfProc: proc})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest",
			ingestRequest{URL: "https://arxiv.org/pdf/2301.00001.pdf"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Fetched Paper")
		assert.Equal(t, "https://arxiv.org/pdf/2301.00001.pdf", proc.lastName)
	})

	t.Run("rejects missing url", func(t *testing.T) {
		s := newTestServer(t, serverDeps{pdfProc: &fakePDFProcessor{}})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest", ingestRequest{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("blocked download reported as bad request", func(t *testing.T) {
		s := newTestServer(t, serverDeps{pdfProc: &fakePDFProcessor{err: pdf.ErrSSRF}})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest",
			ingestRequest{URL: "http://169.254.169.254/latest"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("download failure reported as bad gateway", func(t *testing.T) {
		s := newTestServer(t, serverDeps{pdfProc: &fakePDFProcessor{err: pdf.ErrDownloadFailed}})

		rec := doRequest(t, s, http.MethodPost, "/api/v1/ingest",
			ingestRequest{URL: "https://example.com/paper.pdf"})

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func newTestProjects(t *testing.T, searcher projects.Searcher) *projects.Manager {
	t.Helper()
	store, err := projects.NewStore(filepath.Join(t.TempDir(), "projects.json"))
	require.NoError(t, err)
	return projects.NewManager(store, searcher, nil, zerolog.Nop())
}

func TestProjectEndpoints(t *testing.T) {
	searcher := &fakeSearcher{papers: []*domain.Paper{{Title: "hit"}}}
	s := newTestServer(t, serverDeps{
		searcher: searcher,
		projects: newTestProjects(t, searcher),
	})

	var created projects.Project

	t.Run("create", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/projects", createProjectRequest{
			Name:             "GNN survey",
			ResearchQuestion: "what scales?",
			Keywords:         []string{"gnn"},
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		decodeBody(t, rec, &created)
		assert.Equal(t, "project_1", created.ID)
	})

	t.Run("create without name", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/projects", createProjectRequest{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "name is required")
	})

	t.Run("list", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/projects", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp listProjectsResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("get", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/projects/"+created.ID, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "GNN survey")
	})

	t.Run("get unknown", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/projects/project_99", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("add paper", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/projects/"+created.ID+"/papers",
			domain.Paper{Title: "manually added"})

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("add note", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/projects/"+created.ID+"/notes",
			addNoteRequest{Note: "check baselines"})

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("literature search", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/projects/"+created.ID+"/search",
			projectSearchRequest{MaxPapers: 5})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp projects.SearchResult
		decodeBody(t, rec, &resp)
		assert.Equal(t, 1, resp.PapersFound)
	})

	t.Run("review without reviewer", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/projects/"+created.ID+"/review", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodDelete, "/api/v1/projects/"+created.ID, nil)

		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, s, http.MethodGet, "/api/v1/projects/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthFlow(t *testing.T) {
	store, err := auth.NewUserStore(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)
	manager, err := auth.NewManager(store, auth.Config{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		BCryptCost: 4,
	}, zerolog.Nop())
	require.NoError(t, err)

	s := newTestServer(t, serverDeps{auth: manager})

	t.Run("register", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/auth/register", registerRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "correct-horse",
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), "user_1")
	})

	t.Run("register with weak password", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/auth/register", registerRequest{
			Username: "bob",
			Email:    "bob@example.com",
			Password: "short",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	var token string

	t.Run("login", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/auth/login", loginRequest{
			Username: "alice",
			Password: "correct-horse",
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var creds auth.Credentials
		decodeBody(t, rec, &creds)
		assert.NotEmpty(t, creds.Token)
		token = creds.Token
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/auth/login", loginRequest{
			Username: "alice",
			Password: "wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("protected route requires token", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/v1/search?q=anything", nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("protected route with token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=anything", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		s.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("health stays open", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/healthz", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(t, serverDeps{answerer: &fakeAnswerer{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}
