// Package httpserver provides the HTTP REST API for the research service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/researchmate/research-service/internal/aggregator"
	"github.com/researchmate/research-service/internal/analysis"
	"github.com/researchmate/research-service/internal/auth"
	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/llm"
	"github.com/researchmate/research-service/internal/observability"
	"github.com/researchmate/research-service/internal/pdf"
	"github.com/researchmate/research-service/internal/projects"
	"github.com/researchmate/research-service/internal/rag"
)

// Searcher finds papers across sources. The aggregator satisfies it.
type Searcher interface {
	Search(ctx context.Context, opts aggregator.SearchOptions) ([]*domain.Paper, error)
	GetByID(ctx context.Context, id string) (*domain.Paper, error)
	Trending(ctx context.Context, category string, maxResults, daysBack int) ([]*domain.Paper, error)
}

// Analyzer runs trend and gap analyses. The analysis package satisfies it.
type Analyzer interface {
	AnalyzeTemporalTrends(papers []*domain.Paper) (*analysis.TemporalTrends, error)
	DetectResearchGaps(ctx context.Context, papers []*domain.Paper) (*analysis.ResearchGaps, error)
	AnalyzeCollaborationNetwork(papers []*domain.Paper) (*analysis.NetworkSummary, error)
	GenerateTrendReport(ctx context.Context, papers []*domain.Paper) (*analysis.TrendReport, error)
}

// QuestionAnswerer answers research questions. The RAG pipeline satisfies it.
type QuestionAnswerer interface {
	AskQuestion(ctx context.Context, question string) (*rag.Answer, error)
}

// Classifier categorizes papers by field and methodology. The LLM client
// satisfies it.
type Classifier interface {
	ClassifyPaper(ctx context.Context, title, abstract string) (*llm.PaperClassification, error)
}

// PDFProcessor handles uploaded and remotely fetched PDFs. The pdf processor
// satisfies it.
type PDFProcessor interface {
	Process(ctx context.Context, filename string, content []byte) (*pdf.Result, error)
	ProcessURL(ctx context.Context, url string) (*pdf.Result, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string

	// MaxAnalysisPapers caps how many papers an analysis endpoint fetches.
	MaxAnalysisPapers int
}

// Server is the HTTP REST API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	searcher    Searcher
	analyzer    Analyzer
	answerer    QuestionAnswerer
	classifier  Classifier
	pdfProc     PDFProcessor
	authManager *auth.Manager
	projects    *projects.Manager
	validate    *validator.Validate
	logger      zerolog.Logger

	metricsPath       string
	maxAnalysisPapers int
}

// NewServer creates the HTTP server with all dependencies. Optional
// capabilities (answerer, classifier, pdfProc, authManager, projects) may be
// nil; the corresponding endpoints then report unavailability, and a nil
// authManager leaves the API open.
func NewServer(
	cfg Config,
	searcher Searcher,
	analyzer Analyzer,
	answerer QuestionAnswerer,
	classifier Classifier,
	pdfProc PDFProcessor,
	authManager *auth.Manager,
	projectsManager *projects.Manager,
	logger zerolog.Logger,
) *Server {
	if cfg.MaxAnalysisPapers <= 0 {
		cfg.MaxAnalysisPapers = 50
	}

	s := &Server{
		searcher:          searcher,
		analyzer:          analyzer,
		answerer:          answerer,
		classifier:        classifier,
		pdfProc:           pdfProc,
		authManager:       authManager,
		projects:          projectsManager,
		validate:          validator.New(),
		logger:            logger.With().Str("component", "http-server").Logger(),
		metricsPath:       cfg.MetricsPath,
		maxAnalysisPapers: cfg.MaxAnalysisPapers,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	// Health and metrics endpoints bypass auth.
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	if s.metricsPath != "" {
		r.Handle(s.metricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)

		// Everything else requires a valid token when auth is enabled.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.authManager))

			r.Get("/search", s.searchPapers)
			r.Get("/papers/{paperID}", s.getPaper)
			r.Get("/categories", s.listCategories)
			r.Get("/trending", s.trendingPapers)

			r.Get("/analysis/trends", s.analyzeTrends)
			r.Get("/analysis/gaps", s.analyzeGaps)
			r.Get("/analysis/network", s.analyzeNetwork)
			r.Get("/analysis/report", s.generateReport)

			r.Post("/ask", s.askQuestion)
			r.Post("/classify", s.classifyPaper)
			r.Post("/upload", s.uploadPDF)
			r.Post("/ingest", s.ingestPDF)

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", s.createProject)
				r.Get("/", s.listProjects)
				r.Get("/{projectID}", s.getProject)
				r.Delete("/{projectID}", s.deleteProject)
				r.Post("/{projectID}/papers", s.addProjectPaper)
				r.Post("/{projectID}/notes", s.addProjectNote)
				r.Post("/{projectID}/search", s.projectSearch)
				r.Post("/{projectID}/review", s.projectReview)
			})
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		rlog := observability.WithRequestContext(s.logger, middleware.GetReqID(r.Context()), r.Method, r.URL.Path)
		rlog.Info().
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the service can answer searches.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  "no paper sources configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
