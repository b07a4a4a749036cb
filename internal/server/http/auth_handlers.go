package httpserver

import (
	"net/http"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type registerResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// register handles POST /api/v1/auth/register.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if s.authManager == nil {
		writeError(w, http.StatusServiceUnavailable, "authentication is disabled")
		return
	}

	var req registerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	userID, err := s.authManager.Register(req.Username, req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		UserID:   userID,
		Username: req.Username,
	})
}

// login handles POST /api/v1/auth/login.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.authManager == nil {
		writeError(w, http.StatusServiceUnavailable, "authentication is disabled")
		return
	}

	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	creds, err := s.authManager.Login(req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, creds)
}
