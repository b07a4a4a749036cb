package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/researchmate/research-service/internal/domain"
	"github.com/researchmate/research-service/internal/projects"
)

type createProjectRequest struct {
	Name             string   `json:"name" validate:"required,max=200"`
	ResearchQuestion string   `json:"research_question" validate:"max=2000"`
	Keywords         []string `json:"keywords" validate:"max=50,dive,max=100"`
}

type listProjectsResponse struct {
	Projects []*projects.Project `json:"projects"`
	Count    int                 `json:"count"`
}

type addNoteRequest struct {
	Note string `json:"note" validate:"required,max=5000"`
}

type projectSearchRequest struct {
	MaxPapers int `json:"max_papers" validate:"min=0,max=100"`
}

// requireProjects responds with 503 when project management is not wired.
func (s *Server) requireProjects(w http.ResponseWriter) bool {
	if s.projects == nil {
		writeError(w, http.StatusServiceUnavailable, "project management is not configured")
		return false
	}
	return true
}

// createProject handles POST /api/v1/projects.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	if !s.requireProjects(w) {
		return
	}

	var req createProjectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	project, err := s.projects.Create(req.Name, req.ResearchQuestion, req.Keywords, currentUserID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

// listProjects handles GET /api/v1/projects.
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	if !s.requireProjects(w) {
		return
	}

	list, err := s.projects.List(currentUserID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listProjectsResponse{Projects: list, Count: len(list)})
}

// getProject handles GET /api/v1/projects/{projectID}.
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	if !s.requireProjects(w) {
		return
	}

	project, err := s.projects.Get(chi.URLParam(r, "projectID"), currentUserID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

// deleteProject handles DELETE /api/v1/projects/{projectID}.
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if !s.requireProjects(w) {
		return
	}

	if err := s.projects.Delete(chi.URLParam(r, "projectID"), currentUserID(r)); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// addProjectPaper handles POST /api/v1/projects/{projectID}/papers. The body
// is a paper record, typically taken verbatim from a search response.
func (s *Server) addProjectPaper(w http.ResponseWriter, r *http.Request) {
	if !s.requireProjects(w) {
		return
	}

	var paper domain.Paper
	if !s.decodeJSON(w, r, &paper) {
		return
	}
	if paper.Title == "" {
		writeError(w, http.StatusBadRequest, "paper title is required")
		return
	}

	projectID := chi.URLParam(r, "projectID")
	if err := s.projects.AddPaper(projectID, currentUserID(r), &paper); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// addProjectNote handles POST /api/v1/projects/{projectID}/notes.
func (s *Server) addProjectNote(w http.ResponseWriter, r *http.Request) {
	if !s.requireProjects(w) {
		return
	}

	var req addNoteRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	projectID := chi.URLParam(r, "projectID")
	if err := s.projects.AddNote(projectID, currentUserID(r), req.Note); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// projectSearch handles POST /api/v1/projects/{projectID}/search. It runs a
// literature search from the project's research question and keywords and
// adds the results to the project.
func (s *Server) projectSearch(w http.ResponseWriter, r *http.Request) {
	if !s.requireProjects(w) {
		return
	}

	req := projectSearchRequest{}
	if r.ContentLength != 0 {
		if !s.decodeJSON(w, r, &req) {
			return
		}
	}

	result, err := s.projects.ConductSearch(r.Context(), chi.URLParam(r, "projectID"), currentUserID(r), req.MaxPapers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// projectReview handles POST /api/v1/projects/{projectID}/review.
func (s *Server) projectReview(w http.ResponseWriter, r *http.Request) {
	if !s.requireProjects(w) {
		return
	}

	review, err := s.projects.GenerateReview(r.Context(), chi.URLParam(r, "projectID"), currentUserID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, review)
}
