package httpserver

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/researchmate/research-service/internal/pdf"
)

// maxUploadSize caps uploaded PDF files.
const maxUploadSize = 50 << 20 // 50 MB

type askRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// askQuestion handles POST /api/v1/ask.
func (s *Server) askQuestion(w http.ResponseWriter, r *http.Request) {
	if s.answerer == nil {
		writeError(w, http.StatusServiceUnavailable, "question answering is not configured")
		return
	}

	var req askRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	answer, err := s.answerer.AskQuestion(r.Context(), req.Question)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// uploadPDF handles POST /api/v1/upload. Expects a multipart form with a
// "file" part containing the PDF.
func (s *Server) uploadPDF(w http.ResponseWriter, r *http.Request) {
	if s.pdfProc == nil {
		writeError(w, http.StatusServiceUnavailable, "PDF processing is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF files are accepted")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	result, err := s.pdfProc.Process(r.Context(), filename, content)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "could not extract text from PDF")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type classifyRequest struct {
	Title    string `json:"title" validate:"required,max=500"`
	Abstract string `json:"abstract" validate:"max=5000"`
}

// classifyPaper handles POST /api/v1/classify.
func (s *Server) classifyPaper(w http.ResponseWriter, r *http.Request) {
	if s.classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "paper classification is not configured")
		return
	}

	var req classifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	classification, err := s.classifier.ClassifyPaper(r.Context(), req.Title, req.Abstract)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, classification)
}

type ingestRequest struct {
	URL string `json:"url" validate:"required,url,max=2000"`
}

// ingestPDF handles POST /api/v1/ingest. It downloads a PDF from a public
// URL and runs the same processing pipeline as an upload.
func (s *Server) ingestPDF(w http.ResponseWriter, r *http.Request) {
	if s.pdfProc == nil {
		writeError(w, http.StatusServiceUnavailable, "PDF processing is not configured")
		return
	}

	var req ingestRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	result, err := s.pdfProc.ProcessURL(r.Context(), req.URL)
	switch {
	case err == nil:
	case errors.Is(err, pdf.ErrSSRF), errors.Is(err, pdf.ErrNotPDF), errors.Is(err, pdf.ErrTooLarge):
		writeError(w, http.StatusBadRequest, "URL does not point to a downloadable PDF")
		return
	case errors.Is(err, pdf.ErrDownloadFailed):
		writeError(w, http.StatusBadGateway, "download failed")
		return
	case errors.Is(err, pdf.ErrInvalidPDF):
		writeError(w, http.StatusUnprocessableEntity, "could not extract text from PDF")
		return
	default:
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
