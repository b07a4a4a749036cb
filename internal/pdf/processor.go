package pdf

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/rs/zerolog"

	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/llm"
	"github.com/researchmate/research-service/internal/observability"
)

// Summarizer produces a structured summary of a paper. The LLM client
// satisfies it.
type Summarizer interface {
	SummarizePaper(ctx context.Context, title, abstract, content string) (*llm.PaperSummary, error)
}

// Indexer indexes extracted text for retrieval. The RAG pipeline satisfies it.
type Indexer interface {
	IndexText(ctx context.Context, title, source, text string) (int, error)
}

// Result is the outcome of processing an uploaded PDF.
type Result struct {
	Title       string        `json:"title"`
	Abstract    string        `json:"abstract"`
	Summary     string        `json:"summary,omitempty"`
	Pages       int           `json:"pages"`
	WordCount   int           `json:"word_count"`
	TextLength  int           `json:"text_length"`
	ProcessedAt string        `json:"processed_at"`
	Paper       *domain.Paper `json:"paper"`
}

// Processor extracts text from uploaded PDFs, summarizes them when a model
// is configured, and feeds the text into the retrieval index.
type Processor struct {
	downloader *Downloader
	summarizer Summarizer
	indexer    Indexer
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewProcessor creates a Processor. downloader, summarizer, indexer, and
// metrics may all be nil; the corresponding steps are skipped.
func NewProcessor(downloader *Downloader, summarizer Summarizer, indexer Indexer, logger zerolog.Logger, metrics *observability.Metrics) *Processor {
	return &Processor{
		downloader: downloader,
		summarizer: summarizer,
		indexer:    indexer,
		logger:     logger.With().Str("component", "pdf").Logger(),
		metrics:    metrics,
	}
}

// ProcessURL downloads a PDF from a public URL and runs the extraction
// pipeline on it.
func (p *Processor) ProcessURL(ctx context.Context, rawURL string) (*Result, error) {
	if p.downloader == nil {
		return nil, fmt.Errorf("pdf: downloading unavailable: %w", domain.ErrServiceUnavailable)
	}

	download, err := p.downloader.Download(ctx, rawURL)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordPDFFailed()
		}
		return nil, err
	}

	return p.Process(ctx, filenameFromURL(rawURL), download.Content)
}

// filenameFromURL derives a display name from the URL path, falling back to
// a generic name for path-less URLs.
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "download.pdf"
	}
	return path.Base(parsed.Path)
}

// Process extracts text and metadata from the PDF bytes, generates a summary
// when a summarizer is configured, and indexes the text for retrieval.
// Summarization and indexing failures are logged but do not fail processing.
func (p *Processor) Process(ctx context.Context, filename string, content []byte) (*Result, error) {
	extraction, err := ExtractBytes(content)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordPDFFailed()
		}
		return nil, err
	}

	result := &Result{
		Title:       extraction.Title,
		Abstract:    extraction.Abstract,
		Pages:       extraction.PageCount,
		WordCount:   extraction.WordCount,
		TextLength:  extraction.CharCount,
		ProcessedAt: extraction.ExtractedAt,
		Paper:       extraction.Paper(),
	}

	if p.summarizer != nil {
		summary, err := p.summarizer.SummarizePaper(ctx, extraction.Title, extraction.Abstract, extraction.Text)
		if err != nil {
			p.logger.Warn().Err(err).Str("file", filename).Msg("summarization failed")
		} else {
			result.Summary = summary.Summary
		}
	}

	if p.indexer != nil {
		if _, err := p.indexer.IndexText(ctx, extraction.Title, string(domain.SourceTypeUploadedPDF), extraction.Text); err != nil {
			p.logger.Warn().Err(err).Str("file", filename).Msg("could not index extracted text")
		}
	}

	if p.metrics != nil {
		p.metrics.RecordPDFProcessed()
	}
	p.logger.Info().
		Str("file", filename).
		Int("pages", extraction.PageCount).
		Int("words", extraction.WordCount).
		Msg("processed pdf")

	return result, nil
}
