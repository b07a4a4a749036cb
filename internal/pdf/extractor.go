// Package pdf extracts text from PDF files and turns uploaded papers into
// canonical records. It also downloads PDFs from source-provided URLs.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/researchmate/research-service/internal/domain"
)

// Extraction limits and heuristics.
const (
	// maxTitleScanLines bounds how far into the document the title heuristic looks.
	maxTitleScanLines = 20
	// maxAbstractLength caps the extracted abstract.
	maxAbstractLength = 1000

	unknownTitle     = "Unknown Title"
	abstractNotFound = "Abstract not found"
)

// ErrInvalidPDF is returned when the bytes cannot be parsed as a PDF.
var ErrInvalidPDF = errors.New("pdf: invalid or unreadable file")

// titleSkipWords mark lines that look like front-matter metadata rather than
// a title.
var titleSkipWords = []string{"page", "arxiv", "doi", "submitted", "accepted"}

// abstractEndMarkers are section headers that commonly follow the abstract.
var abstractEndMarkers = []string{"introduction", "1. introduction", "1 introduction", "keywords", "key words"}

// Extraction holds the text and counts pulled from a PDF.
type Extraction struct {
	Text        string `json:"-"`
	Title       string `json:"title"`
	Abstract    string `json:"abstract"`
	PageCount   int    `json:"pages"`
	WordCount   int    `json:"word_count"`
	CharCount   int    `json:"char_count"`
	ExtractedAt string `json:"extracted_at"`
}

// ExtractBytes parses PDF content and extracts its plain text along with
// heuristically detected title and abstract.
func ExtractBytes(content []byte) (*Extraction, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	text := buf.String()

	return &Extraction{
		Text:        text,
		Title:       extractTitle(text),
		Abstract:    extractAbstract(text),
		PageCount:   reader.NumPage(),
		WordCount:   len(strings.Fields(text)),
		CharCount:   len(text),
		ExtractedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Paper builds a canonical uploaded_pdf record from the extraction.
func (e *Extraction) Paper() *domain.Paper {
	return &domain.Paper{
		Title:    e.Title,
		Abstract: e.Abstract,
		Source:   domain.SourceTypeUploadedPDF,
	}
}

// extractTitle scans the first lines of the document for something that
// reads like a title. Short lines, overly long lines, and lines that look
// like front-matter metadata are skipped.
func extractTitle(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > maxTitleScanLines {
		lines = lines[:maxTitleScanLines]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) <= 10 || len(line) >= 200 {
			continue
		}
		if containsAny(strings.ToLower(line), titleSkipWords) {
			continue
		}
		return line
	}
	return unknownTitle
}

// extractAbstract finds the text between an "abstract" marker and the next
// common section header, capped at maxAbstractLength characters.
func extractAbstract(text string) string {
	lower := strings.ToLower(text)

	start := strings.Index(lower, "abstract")
	if start == -1 {
		return abstractNotFound
	}

	abstract := text[start:]
	end := len(abstract)
	abstractLower := strings.ToLower(abstract)
	for _, marker := range abstractEndMarkers {
		if pos := strings.Index(abstractLower, marker); pos != -1 && pos < end {
			end = pos
		}
	}

	abstract = abstract[:end]
	// Drop the "Abstract" marker itself; the match is at position 0.
	abstract = strings.TrimSpace(abstract[len("abstract"):])
	if len(abstract) > maxAbstractLength {
		abstract = abstract[:maxAbstractLength] + "..."
	}
	return abstract
}

func containsAny(s string, words []string) bool {
	for _, word := range words {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}
