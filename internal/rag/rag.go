// Package rag indexes paper text into a vector store and answers research
// questions grounded in the retrieved chunks.
package rag

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/observability"
	"github.com/researchmate/research-service/internal/vectorstore"
)

// Default pipeline parameters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 5

	// snippetLength caps how much chunk text a source attribution carries.
	snippetLength = 200
)

// chunkNamespace seeds deterministic chunk IDs, making re-indexing the same
// paper an overwrite instead of a duplicate.
var chunkNamespace = uuid.MustParse("8c9d2a74-52f1-4bd0-9c6e-3d5b8f1a7e42")

// Embedder converts texts into embedding vectors. The LLM client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Answerer answers a question given retrieved context. The LLM client
// satisfies it.
type Answerer interface {
	AnswerQuestion(ctx context.Context, question, contextText string) (string, error)
}

// Config holds pipeline parameters.
type Config struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int
	// ChunkOverlap is how many characters adjacent chunks share.
	ChunkOverlap int
	// TopK is the number of chunks retrieved per question.
	TopK int
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
}

// Source attributes part of an answer to an indexed chunk.
type Source struct {
	Title   string  `json:"title"`
	Source  string  `json:"source,omitempty"`
	Snippet string  `json:"content_snippet"`
	ChunkID string  `json:"chunk_id,omitempty"`
	Score   float32 `json:"score"`
}

// Answer is the result of a question against the index.
type Answer struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	Question  string   `json:"question"`
	Timestamp string   `json:"timestamp"`
}

// Pipeline wires the embedder, vector store, and answerer together.
type Pipeline struct {
	store    vectorstore.VectorStore
	embedder Embedder
	answerer Answerer
	config   Config
	logger   zerolog.Logger
	metrics  *observability.Metrics

	now func() time.Time
}

// New creates a pipeline. metrics may be nil.
func New(store vectorstore.VectorStore, embedder Embedder, answerer Answerer, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{
		store:    store,
		embedder: embedder,
		answerer: answerer,
		config:   cfg,
		logger:   logger.With().Str("component", "rag").Logger(),
		metrics:  metrics,
		now:      time.Now,
	}
}

// IndexPapers chunks each paper's title and abstract and upserts the chunks.
// Papers without any text are skipped. Returns the number of chunks indexed.
func (p *Pipeline) IndexPapers(ctx context.Context, papers []*domain.Paper) (int, error) {
	var docs []vectorstore.Document

	for _, paper := range papers {
		text := strings.TrimSpace(paper.Title + "\n\n" + paper.Abstract)
		if text == "" {
			continue
		}

		metadata := map[string]string{
			"title":     paper.Title,
			"source":    string(paper.Source),
			"published": paper.PublishedDate,
			"url":       paper.URL,
		}
		if paper.ArxivID != "" {
			metadata["arxiv_id"] = paper.ArxivID
		}
		if paper.DOI != "" {
			metadata["doi"] = paper.DOI
		}

		docs = append(docs, p.buildDocuments(paperKey(paper), text, metadata)...)
	}

	return p.index(ctx, docs)
}

// IndexText chunks arbitrary text (an uploaded PDF, typically) under the
// given title and source tag. Returns the number of chunks indexed.
func (p *Pipeline) IndexText(ctx context.Context, title, source, text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}

	metadata := map[string]string{
		"title":  title,
		"source": source,
	}
	return p.index(ctx, p.buildDocuments(title, text, metadata))
}

// buildDocuments splits text into chunks and attaches per-chunk metadata.
// Chunk IDs are derived from the paper key and chunk index, so re-indexing
// the same paper overwrites instead of duplicating.
func (p *Pipeline) buildDocuments(key, text string, metadata map[string]string) []vectorstore.Document {
	chunks := SplitText(text, p.config.ChunkSize, p.config.ChunkOverlap)

	docs := make([]vectorstore.Document, 0, len(chunks))
	for i, chunk := range chunks {
		chunkMeta := make(map[string]string, len(metadata)+2)
		for k, v := range metadata {
			chunkMeta[k] = v
		}
		chunkMeta["chunk_id"] = strconv.Itoa(i)
		chunkMeta["chunk_count"] = strconv.Itoa(len(chunks))

		docs = append(docs, vectorstore.Document{
			ID:       uuid.NewSHA1(chunkNamespace, []byte(key+"#"+strconv.Itoa(i))),
			Text:     chunk,
			Metadata: chunkMeta,
		})
	}
	return docs
}

// index embeds and upserts the documents.
func (p *Pipeline) index(ctx context.Context, docs []vectorstore.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	if p.embedder == nil || p.store == nil {
		return 0, fmt.Errorf("rag: indexing unavailable: %w", domain.ErrServiceUnavailable)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("rag: embedding failed: %w", err)
	}
	for i := range docs {
		docs[i].Vector = vectors[i]
	}

	if err := p.store.Upsert(ctx, docs); err != nil {
		return 0, err
	}

	if p.metrics != nil {
		p.metrics.RecordRAGDocumentsIndexed(len(docs))
	}
	p.logger.Info().Int("chunks", len(docs)).Msg("indexed documents")

	return len(docs), nil
}

// AskQuestion retrieves the most relevant chunks for the question and asks
// the model to answer from them. The retrieved chunks are returned as source
// attributions alongside the answer.
func (p *Pipeline) AskQuestion(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrInvalidInput
	}
	if p.embedder == nil || p.answerer == nil || p.store == nil {
		return nil, fmt.Errorf("rag: question answering unavailable: %w", domain.ErrServiceUnavailable)
	}

	vectors, err := p.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding question failed: %w", err)
	}

	hits, err := p.store.Search(ctx, vectors[0], uint64(p.config.TopK))
	if err != nil {
		return nil, fmt.Errorf("rag: retrieval failed: %w", err)
	}

	var contextBuilder strings.Builder
	sources := make([]Source, 0, len(hits))
	for _, hit := range hits {
		contextBuilder.WriteString(hit.Text)
		contextBuilder.WriteString("\n\n")

		sources = append(sources, Source{
			Title:   hit.Metadata["title"],
			Source:  hit.Metadata["source"],
			Snippet: snippet(hit.Text),
			ChunkID: hit.Metadata["chunk_id"],
			Score:   hit.Score,
		})
	}

	answer, err := p.answerer.AnswerQuestion(ctx, question, contextBuilder.String())
	if err != nil {
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.RecordRAGQuestion()
	}
	p.logger.Info().Int("sources", len(sources)).Msg("answered question")

	return &Answer{
		Answer:    answer,
		Sources:   sources,
		Question:  question,
		Timestamp: p.now().Format(time.RFC3339),
	}, nil
}

// snippet truncates chunk text for a source attribution.
func snippet(text string) string {
	if len(text) <= snippetLength {
		return text
	}
	return text[:snippetLength] + "..."
}

// paperKey picks the most stable identifier available for chunk IDs.
func paperKey(paper *domain.Paper) string {
	switch {
	case paper.DOI != "":
		return "doi:" + strings.ToLower(paper.DOI)
	case paper.ArxivID != "":
		return "arxiv:" + paper.ArxivID
	case paper.PMID != "":
		return "pmid:" + paper.PMID
	default:
		return "title:" + domain.NormalizeTitle(paper.Title)
	}
}
