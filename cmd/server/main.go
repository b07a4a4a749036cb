// Command server runs the research service HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/researchmate/research-service/internal/aggregator"
	"github.com/researchmate/research-service/internal/analysis"
	"github.com/researchmate/research-service/internal/auth"
	"github.com/researchmate/research-service/internal/config"
	"github.com/researchmate/research-service/internal/llm"
	"github.com/researchmate/research-service/internal/observability"
	"github.com/researchmate/research-service/internal/papersources"
	"github.com/researchmate/research-service/internal/papersources/arxiv"
	"github.com/researchmate/research-service/internal/papersources/crossref"
	"github.com/researchmate/research-service/internal/papersources/pubmed"
	"github.com/researchmate/research-service/internal/papersources/semanticscholar"
	"github.com/researchmate/research-service/internal/pdf"
	"github.com/researchmate/research-service/internal/projects"
	"github.com/researchmate/research-service/internal/rag"
	httpserver "github.com/researchmate/research-service/internal/server/http"
	"github.com/researchmate/research-service/internal/vectorstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	registry := buildSourceRegistry(cfg, logger)
	agg := aggregator.New(registry, logger, metrics)

	var llmClient *llm.Client
	if cfg.LLM.Enabled {
		llmClient = llm.New(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			EmbeddingModel: cfg.LLM.EmbeddingModel,
			MaxTokens:      cfg.LLM.MaxTokens,
			Temperature:    cfg.LLM.Temperature,
			Timeout:        cfg.LLM.Timeout,
		}, logger, metrics)
	}

	// The analyzer works without a generator; LLM-backed report narration is
	// skipped when none is configured.
	var generator analysis.Generator
	if llmClient != nil {
		generator = llmClient
	}
	analyzer := analysis.New(generator, logger, metrics)

	var pipeline *rag.Pipeline
	var answerer httpserver.QuestionAnswerer
	if llmClient != nil && cfg.Qdrant.Address != "" {
		store, err := vectorstore.NewClient(vectorstore.Config{
			Address:        cfg.Qdrant.Address,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     cfg.Qdrant.VectorSize,
		})
		if err != nil {
			return fmt.Errorf("connect to vector store: %w", err)
		}
		defer store.Close()

		if err := store.EnsureCollection(context.Background()); err != nil {
			return fmt.Errorf("ensure vector collection: %w", err)
		}

		pipeline = rag.New(store, llmClient, llmClient, rag.Config{
			ChunkSize:    cfg.RAG.ChunkSize,
			ChunkOverlap: cfg.RAG.ChunkOverlap,
			TopK:         cfg.RAG.TopK,
		}, logger, metrics)
		answerer = pipeline
	}

	var classifier httpserver.Classifier
	if llmClient != nil {
		classifier = llmClient
	}

	var summarizer pdf.Summarizer
	if llmClient != nil {
		summarizer = llmClient
	}
	var indexer pdf.Indexer
	if pipeline != nil {
		indexer = pipeline
	}
	pdfProcessor := pdf.NewProcessor(pdf.NewDownloader(pdf.DownloaderConfig{}), summarizer, indexer, logger, metrics)

	var authManager *auth.Manager
	if cfg.Auth.Enabled {
		userStore, err := auth.NewUserStore(dataPath(cfg.Storage.DataDir, cfg.Storage.UsersFile))
		if err != nil {
			return fmt.Errorf("open user store: %w", err)
		}
		authManager, err = auth.NewManager(userStore, auth.Config{
			JWTSecret:  cfg.Auth.JWTSecret,
			TokenTTL:   cfg.Auth.TokenTTL,
			BCryptCost: cfg.Auth.BCryptCost,
		}, logger)
		if err != nil {
			return fmt.Errorf("create auth manager: %w", err)
		}
	}

	projectStore, err := projects.NewStore(dataPath(cfg.Storage.DataDir, cfg.Storage.ProjectsFile))
	if err != nil {
		return fmt.Errorf("open project store: %w", err)
	}
	var reviewer projects.Reviewer
	if llmClient != nil {
		reviewer = llmClient
	}
	projectManager := projects.NewManager(projectStore, agg, reviewer, logger)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	server := httpserver.NewServer(httpserver.Config{
		Address:           cfg.Server.HTTPAddress(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		MetricsPath:       metricsPath,
		MaxAnalysisPapers: cfg.Analysis.MaxPapers,
	}, agg, analyzer, answerer, classifier, pdfProcessor, authManager, projectManager, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info().
		Str("address", cfg.Server.HTTPAddress()).
		Strs("sources", sourceNames(registry)).
		Bool("auth", cfg.Auth.Enabled).
		Bool("llm", cfg.LLM.Enabled).
		Msg("research service started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// buildSourceRegistry registers a client for every enabled paper source.
func buildSourceRegistry(cfg *config.Config, logger zerolog.Logger) *papersources.Registry {
	registry := papersources.NewRegistry()

	if cfg.Sources.ArXiv.Enabled {
		registry.Register(arxiv.New(arxiv.Config{
			BaseURL:         cfg.Sources.ArXiv.BaseURL,
			Timeout:         cfg.Sources.ArXiv.Timeout,
			RequestInterval: cfg.Sources.ArXiv.RequestInterval,
			MaxResults:      cfg.Sources.ArXiv.MaxResults,
			Enabled:         true,
		}))
	}
	if cfg.Sources.SemanticScholar.Enabled {
		registry.Register(semanticscholar.New(semanticscholar.Config{
			BaseURL:         cfg.Sources.SemanticScholar.BaseURL,
			APIKey:          cfg.Sources.SemanticScholar.APIKey,
			Timeout:         cfg.Sources.SemanticScholar.Timeout,
			RequestInterval: cfg.Sources.SemanticScholar.RequestInterval,
			MaxResults:      cfg.Sources.SemanticScholar.MaxResults,
			Enabled:         true,
		}))
	}
	if cfg.Sources.Crossref.Enabled {
		registry.Register(crossref.New(crossref.Config{
			BaseURL:         cfg.Sources.Crossref.BaseURL,
			MailTo:          cfg.Sources.Crossref.MailTo,
			Timeout:         cfg.Sources.Crossref.Timeout,
			RequestInterval: cfg.Sources.Crossref.RequestInterval,
			MaxResults:      cfg.Sources.Crossref.MaxResults,
			Enabled:         true,
		}))
	}
	if cfg.Sources.PubMed.Enabled {
		registry.Register(pubmed.New(pubmed.Config{
			BaseURL:         cfg.Sources.PubMed.BaseURL,
			APIKey:          cfg.Sources.PubMed.APIKey,
			Timeout:         cfg.Sources.PubMed.Timeout,
			RequestInterval: cfg.Sources.PubMed.RequestInterval,
			MaxResults:      cfg.Sources.PubMed.MaxResults,
			Enabled:         true,
		}))
	}

	logger.Info().Int("sources", len(registry.Types())).Msg("paper sources registered")
	return registry
}

// dataPath resolves a storage file against the data directory unless it is
// already absolute.
func dataPath(dataDir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dataDir, file)
}

func sourceNames(registry *papersources.Registry) []string {
	types := registry.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
