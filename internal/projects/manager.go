package projects

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchmate/research-service/internal/aggregator"
	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/observability"
)

// DefaultSearchPapers caps a literature search when no limit is given.
const DefaultSearchPapers = 20

// Searcher finds papers across the configured sources. The aggregator
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, opts aggregator.SearchOptions) ([]*domain.Paper, error)
}

// Reviewer generates a literature review from a project's papers. The LLM
// client satisfies it.
type Reviewer interface {
	GenerateLiteratureReview(ctx context.Context, papers []*domain.Paper, researchQuestion string) (string, error)
}

// SearchResult is the outcome of a project literature search.
type SearchResult struct {
	ProjectID   string          `json:"project_id"`
	PapersFound int             `json:"papers_found"`
	Papers      []*domain.Paper `json:"papers"`
}

// Review is a generated literature review.
type Review struct {
	ProjectID        string `json:"project_id"`
	Content          string `json:"content"`
	PapersReviewed   int    `json:"papers_reviewed"`
	ResearchQuestion string `json:"research_question"`
	GeneratedAt      string `json:"generated_at"`
}

// Manager coordinates project storage with paper search and review
// generation.
type Manager struct {
	store    *Store
	searcher Searcher
	reviewer Reviewer
	logger   zerolog.Logger
}

// NewManager creates a Manager. searcher and reviewer may be nil; the
// corresponding operations then report unavailability.
func NewManager(store *Store, searcher Searcher, reviewer Reviewer, logger zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		searcher: searcher,
		reviewer: reviewer,
		logger:   logger.With().Str("component", "projects").Logger(),
	}
}

// Create stores a new project for the user.
func (m *Manager) Create(name, researchQuestion string, keywords []string, userID string) (*Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("projects: name is required: %w", domain.ErrInvalidInput)
	}

	project := &Project{
		Name:             name,
		ResearchQuestion: researchQuestion,
		Keywords:         keywords,
		UserID:           userID,
	}
	if _, err := m.store.Create(project); err != nil {
		return nil, err
	}

	plog := observability.WithProjectContext(m.logger, project.ID, userID)
	plog.Info().Msg("created project")
	return project, nil
}

// Get returns a project owned by the user.
func (m *Manager) Get(projectID, userID string) (*Project, error) {
	return m.store.Get(projectID, userID)
}

// List returns the user's projects.
func (m *Manager) List(userID string) ([]*Project, error) {
	return m.store.List(userID)
}

// Delete removes a project owned by the user.
func (m *Manager) Delete(projectID, userID string) error {
	return m.store.Delete(projectID, userID)
}

// AddPaper appends a paper to the project's collection.
func (m *Manager) AddPaper(projectID, userID string, paper *domain.Paper) error {
	if paper == nil {
		return fmt.Errorf("projects: paper is required: %w", domain.ErrInvalidInput)
	}
	return m.store.Update(projectID, userID, func(p *Project) {
		p.Papers = append(p.Papers, paper)
	})
}

// AddNote appends a free-text note to the project.
func (m *Manager) AddNote(projectID, userID, note string) error {
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("projects: note is required: %w", domain.ErrInvalidInput)
	}
	return m.store.Update(projectID, userID, func(p *Project) {
		p.Notes = append(p.Notes, note)
	})
}

// ConductSearch runs a literature search built from the project's research
// question and keywords and adds the found papers to the project.
func (m *Manager) ConductSearch(ctx context.Context, projectID, userID string, maxPapers int) (*SearchResult, error) {
	if m.searcher == nil {
		return nil, fmt.Errorf("projects: search unavailable: %w", domain.ErrServiceUnavailable)
	}
	if maxPapers <= 0 {
		maxPapers = DefaultSearchPapers
	}

	project, err := m.store.Get(projectID, userID)
	if err != nil {
		return nil, err
	}

	query := strings.TrimSpace(project.ResearchQuestion + " " + strings.Join(project.Keywords, " "))
	papers, err := m.searcher.Search(ctx, aggregator.SearchOptions{
		Query:      query,
		MaxResults: maxPapers,
	})
	if err != nil {
		return nil, err
	}

	if err := m.store.Update(projectID, userID, func(p *Project) {
		p.Papers = append(p.Papers, papers...)
	}); err != nil {
		return nil, err
	}

	plog := observability.WithProjectContext(m.logger, projectID, userID)
	plog.Info().
		Int("papers_found", len(papers)).
		Msg("literature search completed")

	return &SearchResult{
		ProjectID:   projectID,
		PapersFound: len(papers),
		Papers:      papers,
	}, nil
}

// GenerateReview produces a literature review from the project's collected
// papers.
func (m *Manager) GenerateReview(ctx context.Context, projectID, userID string) (*Review, error) {
	if m.reviewer == nil {
		return nil, fmt.Errorf("projects: review generation unavailable: %w", domain.ErrServiceUnavailable)
	}

	project, err := m.store.Get(projectID, userID)
	if err != nil {
		return nil, err
	}
	if len(project.Papers) == 0 {
		return nil, fmt.Errorf("projects: no papers in project: %w", domain.ErrNoPapers)
	}

	content, err := m.reviewer.GenerateLiteratureReview(ctx, project.Papers, project.ResearchQuestion)
	if err != nil {
		return nil, fmt.Errorf("projects: review generation failed: %w", err)
	}

	plog := observability.WithProjectContext(m.logger, projectID, userID)
	plog.Info().
		Int("papers", len(project.Papers)).
		Msg("generated literature review")

	return &Review{
		ProjectID:        projectID,
		Content:          content,
		PapersReviewed:   len(project.Papers),
		ResearchQuestion: project.ResearchQuestion,
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
	}, nil
}
