// Package projects manages research projects: named collections of papers
// around a research question, owned by a user.
package projects

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/researchmate/research-service/internal/domain"
)

// Project is a research project and its collected papers.
type Project struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ResearchQuestion string          `json:"research_question"`
	Keywords         []string        `json:"keywords"`
	Papers           []*domain.Paper `json:"papers"`
	Notes            []string        `json:"notes"`
	Status           string          `json:"status"`
	UserID           string          `json:"user_id"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// storeFile is the on-disk shape: projects keyed by ID plus a counter that
// keeps generated IDs stable across deletions.
type storeFile struct {
	Projects map[string]*Project `json:"projects"`
	Counter  int                 `json:"counter"`
	SavedAt  string              `json:"saved_at"`
}

// Store persists projects in a JSON file. Mutations rewrite the whole file.
type Store struct {
	mu   sync.RWMutex
	path string
}

// NewStore opens (or creates) the store at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("projects: create data dir: %w", err)
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.save(&storeFile{Projects: map[string]*Project{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Create stores a new project and assigns it a sequential ID.
func (s *Store) Create(project *Project) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return "", err
	}

	file.Counter++
	project.ID = fmt.Sprintf("project_%d", file.Counter)
	now := nowISO()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.Status == "" {
		project.Status = "active"
	}
	if project.Papers == nil {
		project.Papers = []*domain.Paper{}
	}
	if project.Notes == nil {
		project.Notes = []string{}
	}

	file.Projects[project.ID] = project
	if err := s.save(file); err != nil {
		return "", err
	}
	return project.ID, nil
}

// Get returns the project with the given ID. When userID is non-empty the
// project must be owned by that user; a mismatch reports not-found so project
// existence does not leak across users.
func (s *Store) Get(projectID, userID string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	return fetch(file, projectID, userID)
}

// List returns the user's projects sorted by creation time, newest first.
// An empty userID lists every project.
func (s *Store) List(userID string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	projects := make([]*Project, 0, len(file.Projects))
	for _, project := range file.Projects {
		if userID == "" || project.UserID == userID {
			projects = append(projects, project)
		}
	}

	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt != projects[j].CreatedAt {
			return projects[i].CreatedAt > projects[j].CreatedAt
		}
		return projects[i].ID > projects[j].ID
	})
	return projects, nil
}

// Update applies fn to the project and persists the result. fn runs under
// the store lock and must not call back into the store.
func (s *Store) Update(projectID, userID string, fn func(*Project)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	project, err := fetch(file, projectID, userID)
	if err != nil {
		return err
	}

	fn(project)
	project.UpdatedAt = nowISO()
	return s.save(file)
}

// Delete removes the project.
func (s *Store) Delete(projectID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	if _, err := fetch(file, projectID, userID); err != nil {
		return err
	}

	delete(file.Projects, projectID)
	return s.save(file)
}

func fetch(file *storeFile, projectID, userID string) (*Project, error) {
	project, ok := file.Projects[projectID]
	if !ok {
		return nil, domain.NewNotFoundError("project", projectID)
	}
	if userID != "" && project.UserID != userID {
		return nil, domain.NewNotFoundError("project", projectID)
	}
	return project, nil
}

func (s *Store) load() (*storeFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("projects: read store: %w", err)
	}

	file := &storeFile{Projects: map[string]*Project{}}
	if len(data) > 0 {
		if err := json.Unmarshal(data, file); err != nil {
			return nil, fmt.Errorf("projects: parse store: %w", err)
		}
	}
	if file.Projects == nil {
		file.Projects = map[string]*Project{}
	}
	return file, nil
}

func (s *Store) save(file *storeFile) error {
	file.SavedAt = nowISO()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("projects: encode store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("projects: write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("projects: replace store: %w", err)
	}
	return nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
