package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/researchmate/research-service/internal/domain"
)

// Category pairs an arXiv category code with a display name.
type Category struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Categories is the fixed arXiv category table exposed through the API.
// Order matters: it is the display order.
var Categories = []Category{
	{Code: "cs.AI", Name: "Artificial Intelligence"},
	{Code: "cs.LG", Name: "Machine Learning"},
	{Code: "cs.CL", Name: "Computation and Language"},
	{Code: "cs.CV", Name: "Computer Vision and Pattern Recognition"},
	{Code: "cs.NE", Name: "Neural and Evolutionary Computing"},
	{Code: "cs.RO", Name: "Robotics"},
	{Code: "cs.CR", Name: "Cryptography and Security"},
	{Code: "cs.DB", Name: "Databases"},
	{Code: "cs.DC", Name: "Distributed, Parallel, and Cluster Computing"},
	{Code: "cs.SE", Name: "Software Engineering"},
	{Code: "stat.ML", Name: "Machine Learning (Statistics)"},
	{Code: "q-bio.QM", Name: "Quantitative Methods"},
	{Code: "eess.IV", Name: "Image and Video Processing"},
	{Code: "eess.SP", Name: "Signal Processing"},
	{Code: "math.OC", Name: "Optimization and Control"},
}

// ValidCategory reports whether code appears in the category table.
func ValidCategory(code string) bool {
	for _, c := range Categories {
		if c.Code == code {
			return true
		}
	}
	return false
}

// Trending returns recent papers in an arXiv category, newest first. It is a
// category-scoped search restricted to the last daysBack days and sorted by
// publication date.
func (a *Aggregator) Trending(ctx context.Context, category string, maxResults, daysBack int) ([]*domain.Paper, error) {
	if !ValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, category)
	}
	if daysBack <= 0 {
		daysBack = 30
	}

	from := time.Now().AddDate(0, 0, -daysBack).Format("2006-01-02")

	return a.Search(ctx, SearchOptions{
		Category:   category,
		MaxResults: maxResults,
		Sources:    []domain.SourceType{domain.SourceTypeArXiv},
		SortBy:     domain.SortByDate,
		DateFrom:   from,
	})
}
