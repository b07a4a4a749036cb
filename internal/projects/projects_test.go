package projects

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmate/research-service/internal/aggregator"
	"github.com/researchmate/research-service/internal/domain"
)

type fakeSearcher struct {
	papers    []*domain.Paper
	err       error
	lastQuery string
	lastMax   int
}

func (f *fakeSearcher) Search(_ context.Context, opts aggregator.SearchOptions) ([]*domain.Paper, error) {
	f.lastQuery = opts.Query
	f.lastMax = opts.MaxResults
	return f.papers, f.err
}

type fakeReviewer struct {
	review       string
	err          error
	lastQuestion string
	lastPapers   int
}

func (f *fakeReviewer) GenerateLiteratureReview(_ context.Context, papers []*domain.Paper, question string) (string, error) {
	f.lastPapers = len(papers)
	f.lastQuestion = question
	return f.review, f.err
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "projects.json"))
	require.NoError(t, err)
	return store
}

func newTestManager(t *testing.T, searcher Searcher, reviewer Reviewer) *Manager {
	t.Helper()
	return NewManager(newTestStore(t), searcher, reviewer, zerolog.Nop())
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.Create(&Project{Name: "GNN survey", UserID: "user_1"})
	require.NoError(t, err)
	assert.Equal(t, "project_1", id1)

	id2, err := store.Create(&Project{Name: "LLM eval", UserID: "user_1"})
	require.NoError(t, err)
	assert.Equal(t, "project_2", id2)

	project, err := store.Get(id1, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "GNN survey", project.Name)
	assert.Equal(t, "active", project.Status)
	assert.NotEmpty(t, project.CreatedAt)
	assert.NotNil(t, project.Papers)

	t.Run("other user's project is not found", func(t *testing.T) {
		_, err := store.Get(id1, "user_2")

		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Get("project_99", "user_1")

		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestStore_CounterSurvivesDeletion(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.Create(&Project{Name: "a", UserID: "u"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(id1, "u"))

	id2, err := store.Create(&Project{Name: "b", UserID: "u"})
	require.NoError(t, err)

	assert.Equal(t, "project_2", id2)
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(&Project{Name: "mine", UserID: "user_1"})
	require.NoError(t, err)
	_, err = store.Create(&Project{Name: "also mine", UserID: "user_1"})
	require.NoError(t, err)
	_, err = store.Create(&Project{Name: "theirs", UserID: "user_2"})
	require.NoError(t, err)

	mine, err := store.List("user_1")
	require.NoError(t, err)
	require.Len(t, mine, 2)

	all, err := store.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")

	store, err := NewStore(path)
	require.NoError(t, err)
	id, err := store.Create(&Project{Name: "durable", UserID: "u"})
	require.NoError(t, err)
	require.NoError(t, store.Update(id, "u", func(p *Project) {
		p.Papers = append(p.Papers, &domain.Paper{Title: "kept"})
	}))

	reopened, err := NewStore(path)
	require.NoError(t, err)

	project, err := reopened.Get(id, "u")
	require.NoError(t, err)
	assert.Equal(t, "durable", project.Name)
	require.Len(t, project.Papers, 1)
	assert.Equal(t, "kept", project.Papers[0].Title)
}

func TestManager_Create(t *testing.T) {
	m := newTestManager(t, nil, nil)

	project, err := m.Create("Attention survey", "how does attention scale?", []string{"attention", "scaling"}, "user_1")

	require.NoError(t, err)
	assert.Equal(t, "project_1", project.ID)
	assert.Equal(t, "user_1", project.UserID)

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := m.Create("  ", "q", nil, "user_1")

		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestManager_AddPaperAndNote(t *testing.T) {
	m := newTestManager(t, nil, nil)
	project, err := m.Create("p", "q", nil, "user_1")
	require.NoError(t, err)

	require.NoError(t, m.AddPaper(project.ID, "user_1", &domain.Paper{Title: "added"}))
	require.NoError(t, m.AddNote(project.ID, "user_1", "follow up on baselines"))

	got, err := m.Get(project.ID, "user_1")
	require.NoError(t, err)
	require.Len(t, got.Papers, 1)
	assert.Equal(t, "added", got.Papers[0].Title)
	assert.Equal(t, []string{"follow up on baselines"}, got.Notes)

	t.Run("nil paper rejected", func(t *testing.T) {
		err := m.AddPaper(project.ID, "user_1", nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("ownership enforced", func(t *testing.T) {
		err := m.AddPaper(project.ID, "user_2", &domain.Paper{Title: "sneaky"})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestManager_ConductSearch(t *testing.T) {
	searcher := &fakeSearcher{papers: []*domain.Paper{
		{Title: "result one"},
		{Title: "result two"},
	}}
	m := newTestManager(t, searcher, nil)

	project, err := m.Create("survey", "how do transformers scale?", []string{"transformers", "scaling laws"}, "user_1")
	require.NoError(t, err)

	result, err := m.ConductSearch(context.Background(), project.ID, "user_1", 0)

	require.NoError(t, err)
	assert.Equal(t, 2, result.PapersFound)
	assert.Equal(t, "how do transformers scale? transformers scaling laws", searcher.lastQuery)
	assert.Equal(t, DefaultSearchPapers, searcher.lastMax)

	stored, err := m.Get(project.ID, "user_1")
	require.NoError(t, err)
	assert.Len(t, stored.Papers, 2)

	t.Run("no searcher configured", func(t *testing.T) {
		bare := newTestManager(t, nil, nil)
		p, err := bare.Create("p", "q", nil, "u")
		require.NoError(t, err)

		_, err = bare.ConductSearch(context.Background(), p.ID, "u", 5)
		assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	})
}

func TestManager_GenerateReview(t *testing.T) {
	reviewer := &fakeReviewer{review: "a thorough review"}
	m := newTestManager(t, nil, reviewer)

	project, err := m.Create("p", "what remains unsolved?", nil, "user_1")
	require.NoError(t, err)

	t.Run("empty project has nothing to review", func(t *testing.T) {
		_, err := m.GenerateReview(context.Background(), project.ID, "user_1")

		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNoPapers))
	})

	require.NoError(t, m.AddPaper(project.ID, "user_1", &domain.Paper{Title: "one"}))
	require.NoError(t, m.AddPaper(project.ID, "user_1", &domain.Paper{Title: "two"}))

	t.Run("generates from collected papers", func(t *testing.T) {
		review, err := m.GenerateReview(context.Background(), project.ID, "user_1")

		require.NoError(t, err)
		assert.Equal(t, "a thorough review", review.Content)
		assert.Equal(t, 2, review.PapersReviewed)
		assert.Equal(t, "what remains unsolved?", review.ResearchQuestion)
		assert.Equal(t, 2, reviewer.lastPapers)
	})

	t.Run("reviewer failure surfaces", func(t *testing.T) {
		reviewer.err = errors.New("model overloaded")

		_, err := m.GenerateReview(context.Background(), project.ID, "user_1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "model overloaded")
	})
}
